package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quill/internal/agent/ports"
	"quill/internal/async"
	"quill/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Hub fans snapshot events out to websocket subscribers. It implements
// ports.SnapshotListener, so registering it on the store is all the wiring
// the event stream needs.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	closed  bool
	logger  *utils.Logger
}

type client struct {
	conn *websocket.Conn
	send chan ports.SnapshotEvent
	// sessionID filters events; empty subscribes to every session.
	sessionID string
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  utils.NewComponentLogger("EventHub"),
	}
}

// OnSnapshotEvent broadcasts one event to every matching subscriber. Slow
// clients whose buffers are full are dropped rather than allowed to stall the
// store's notification path.
func (h *Hub) OnSnapshotEvent(event ports.SnapshotEvent) {
	var slow []*client

	h.mu.RLock()
	for cl := range h.clients {
		if cl.sessionID != "" && cl.sessionID != event.SessionID {
			continue
		}
		select {
		case cl.send <- event:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.logger.Warn("Dropping slow websocket client for session %q", cl.sessionID)
		h.remove(cl)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = true
	return true
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		close(cl.send)
		delete(h.clients, cl)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens in the CORS layer.
		return true
	},
}

// handleWebSocket upgrades the connection and streams snapshot events until
// the client goes away. An optional ?session_id= query narrows the stream.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed: %v", err)
		return
	}

	cl := &client{
		conn:      conn,
		send:      make(chan ports.SnapshotEvent, sendBufferSize),
		sessionID: c.Query("session_id"),
	}
	if !s.hub.add(cl) {
		_ = conn.Close()
		return
	}

	async.Go(s.logger, "ws-writer", func() { s.writePump(cl) })
	async.Go(s.logger, "ws-reader", func() { s.readPump(cl) })
}

// writePump serializes all writes on the connection, ping frames included.
func (s *Server) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case event, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(event); err != nil {
				s.hub.remove(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.hub.remove(cl)
				return
			}
		}
	}
}

// readPump discards inbound frames and detects disconnects.
func (s *Server) readPump(cl *client) {
	defer s.hub.remove(cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}
