package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketWriter adapts a WebSocket connection to the EventWriter
// interface, so the same loop can stream to a socket client instead of SSE.
// The mutex keeps it single-writer; gorilla connections do not allow
// concurrent writes.
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenTime   *time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

// wsEvent is the JSON envelope a socket client receives; Type carries the
// same event names SSE clients see.
type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WriteEvent sends one named event as a JSON frame.
func (w *WebSocketWriter) WriteEvent(name string, payload any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Track time to first token
	if !w.FirstTokenLogged && w.FirstTokenTime == nil && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstTokenTime = &now
		w.Logger.Printf("Time to first token: %v", now.Sub(w.StartTime))
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(wsEvent{Type: name, Data: payload})
}

// Flush is a no-op; WriteJSON frames flush on write.
func (w *WebSocketWriter) Flush() {}
