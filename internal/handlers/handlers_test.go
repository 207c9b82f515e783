package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ishwaryaobilisetti/sentiment-platform/internal/hub"
	"github.com/ishwaryaobilisetti/sentiment-platform/internal/store"
	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logging.NewLoggerWithService("gateway-test")
	h := hub.NewHub(logger)
	go h.Run()

	router := gin.New()
	NewGatewayHandlers(store.New(db, logger), h, logger).RegisterRoutes(router)
	return router, mock, h
}

func TestHandleListPosts(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("FROM social_media_posts p").
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "content", "sentiment_label", "emotion"}).
			AddRow("post-2", "meh", "neutral", "neutral").
			AddRow("post-1", "awful", "negative", "anger"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=2", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Posts []struct {
			PostID    string `json:"post_id"`
			Sentiment string `json:"sentiment"`
		} `json:"posts"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Posts) != 2 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
	if resp.Posts[0].PostID != "post-2" || resp.Posts[1].Sentiment != "negative" {
		t.Errorf("unexpected posts: %+v", resp.Posts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHandleListPosts_EmptyIsArrayNotNull(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("FROM social_media_posts p").
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "content", "sentiment_label", "emotion"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"posts":[]`) {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}
}

func TestHandleListAlerts(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	windowEnd := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM sentiment_alerts").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "alert_type", "threshold_value", "actual_value",
			"window_start", "window_end", "post_count", "created_at",
		}).AddRow(int64(1), "high_negative_ratio", 0.1, 0.3,
			windowEnd.Add(-5*time.Minute), windowEnd, 15, windowEnd))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"high_negative_ratio"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHandleSentimentDistribution(t *testing.T) {
	router, mock, _ := newTestRouter(t)

	mock.ExpectQuery("GROUP BY sentiment_label").
		WillReturnRows(sqlmock.NewRows([]string{"sentiment_label", "count"}).
			AddRow("positive", 12).
			AddRow("negative", 3))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sentiment/distribution", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Distribution map[string]int `json:"distribution"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Distribution["positive"] != 12 || resp.Distribution["negative"] != 3 {
		t.Errorf("unexpected distribution: %+v", resp.Distribution)
	}
}

func TestHandleInternalBroadcast_RejectsUnknownType(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/internal/broadcast",
		strings.NewReader(`{"type":"telemetry"}`))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleInternalBroadcast_FansOutToLiveFeed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	// Give the hub a beat to register the client.
	time.Sleep(50 * time.Millisecond)

	payload := `{"type":"sentiment","post_id":"post-1","sentiment":"negative","emotion":"anger"}`
	resp, err := http.Post(server.URL+"/internal/broadcast", "application/json",
		strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(message) != payload {
		t.Errorf("got %s, want verbatim %s", message, payload)
	}
}
