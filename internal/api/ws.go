package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub fans messages out to connected websocket clients. Slow clients are
// dropped rather than blocking the broadcast.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]chan []byte
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:   log,
		conns: make(map[*websocket.Conn]chan []byte),
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		select {
		case ch <- msg:
		default:
			h.dropLocked(conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(conn *websocket.Conn) chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	h.dropLocked(conn)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(conn *websocket.Conn) {
	if ch, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		close(ch)
		conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is local-only; cross-origin pages may not connect.
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// handleWS upgrades the connection and serves it until either side closes.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	ch := h.add(conn)
	go h.writeLoop(conn, ch)
	go h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(conn)
				return
			}
		}
	}
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
