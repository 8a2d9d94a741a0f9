package reload

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	Endpoint = "/__reload"
	Message  = "reload"
)

// Script is injected into pages served by the dev server.
const Script = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";` +
	`var s=new WebSocket(p+location.host+"` + Endpoint + `");` +
	`s.onmessage=function(e){if(e.data==="` + Message + `")location.reload();};})();</script>`

// Hub keeps every open reload socket and broadcasts to them.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    map[*websocket.Conn]*sync.Mutex
	closed   bool
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conns[conn] = &sync.Mutex{}
	h.mu.Unlock()
	zap.L().Debug("reload client connected", zap.String("remote", r.RemoteAddr))

	// drain until the browser goes away
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast tells every client to reload and drops those that fail.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.conns))
	for conn, lock := range h.conns {
		targets[conn] = lock
	}
	h.mu.Unlock()
	zap.L().Debug("broadcast reload", zap.Int("clients", len(targets)))
	for conn, writeMu := range targets {
		writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteMessage(websocket.TextMessage, []byte(Message))
		writeMu.Unlock()
		if err != nil {
			zap.L().Debug("reload push failed", zap.Error(err))
			h.remove(conn)
		}
	}
}

func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[*websocket.Conn]*sync.Mutex)
	h.mu.Unlock()
	for conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	return nil
}
