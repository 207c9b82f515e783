package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

// Hub maintains the set of live-feed clients and fans every broadcast out to
// all of them. Clients are pure observers: inbound frames are drained and
// discarded, never interpreted.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	logger     logging.Logger
}

// Client represents one WebSocket observer connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger logging.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run is the hub's main loop. All client-set mutation happens here, so no
// locking is needed elsewhere.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.WithFields(logging.Fields{
				"client_count": len(h.clients),
			}).Info("Live feed client connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.logger.WithFields(logging.Fields{
				"client_count": len(h.clients),
			}).Info("Live feed client disconnected")

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: evict rather than block the fan-out.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast queues a pre-serialized event for delivery to every connected
// client. Events are forwarded verbatim; the hub never reshapes payloads.
// If the queue is full the event is dropped, never blocking the caller.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("Broadcast queue full, dropping event")
	}
}

// ClientCount reports the current number of connected clients. It is
// approximate: the count is sampled from outside the Run loop.
func (h *Hub) ClientCount() int {
	return len(h.clients)
}

// ServeWS upgrades an HTTP request to a WebSocket observer connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: h.logger,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// readPump drains the connection so control frames are processed and closes
// are noticed. Payloads from observers are discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket connection error")
			}
			break
		}
	}
}

// writePump pumps queued events to the WebSocket connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
