package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub(logging.NewLoggerWithService("hub-test"))
	go h.Run()

	server := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	t.Cleanup(server.Close)
	return h, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", want, h.ClientCount())
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h, server := newTestHub(t)

	conns := []*websocket.Conn{dial(t, server), dial(t, server), dial(t, server)}
	waitForClients(t, h, 3)

	payload := []byte(`{"type":"sentiment","post_id":"post-1","sentiment":"negative","emotion":"anger"}`)
	h.Broadcast(payload)

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d read: %v", i, err)
		}
		if string(message) != string(payload) {
			t.Errorf("client %d got %s, want %s", i, message, payload)
		}
	}
}

func TestBroadcastForwardsVerbatim(t *testing.T) {
	h, server := newTestHub(t)

	conn := dial(t, server)
	waitForClients(t, h, 1)

	// Field order and unknown keys must survive the hub untouched.
	payload := []byte(`{"zeta":1,"type":"alert","extra":{"nested":true}}`)
	h.Broadcast(payload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(message) != string(payload) {
		t.Errorf("got %s, want verbatim %s", message, payload)
	}
}

func TestStuckClientEvictedWhileOthersReceive(t *testing.T) {
	h, server := newTestHub(t)

	first := dial(t, server)
	waitForClients(t, h, 1)

	// A client whose send queue is already full: no pumps drain it, so the
	// next fan-out hits the blocked-send branch.
	stuck := &Client{hub: h, send: make(chan []byte)}
	h.register <- stuck
	waitForClients(t, h, 2)

	third := dial(t, server)
	waitForClients(t, h, 3)

	payload := []byte(`{"type":"alert","ratio":0.25,"post_count":12}`)
	h.Broadcast(payload)

	for i, conn := range []*websocket.Conn{first, third} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("healthy client %d read: %v", i, err)
		}
		if string(message) != string(payload) {
			t.Errorf("healthy client %d got %s, want %s", i, message, payload)
		}
	}

	waitForClients(t, h, 2)
	select {
	case _, ok := <-stuck.send:
		if ok {
			t.Error("expected stuck client's send channel closed, got a message")
		}
	case <-time.After(2 * time.Second):
		t.Error("stuck client's send channel was not closed")
	}
}

func TestDisconnectedClientDoesNotBreakFanOut(t *testing.T) {
	h, server := newTestHub(t)

	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, h, 2)

	first.Close()
	waitForClients(t, h, 1)

	payload := []byte(`{"type":"sentiment","post_id":"post-2","sentiment":"positive","emotion":"joy"}`)
	h.Broadcast(payload)

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("surviving client read: %v", err)
	}
	if string(message) != string(payload) {
		t.Errorf("got %s, want %s", message, payload)
	}
}

func TestClientReadsAreDiscarded(t *testing.T) {
	h, server := newTestHub(t)

	conn := dial(t, server)
	waitForClients(t, h, 1)

	// Observers may send frames; the hub ignores them and the connection
	// keeps receiving broadcasts.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"subscribe"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	payload := []byte(`{"type":"sentiment","post_id":"post-3","sentiment":"neutral","emotion":"neutral"}`)
	h.Broadcast(payload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(message) != string(payload) {
		t.Errorf("got %s, want %s", message, payload)
	}
}
