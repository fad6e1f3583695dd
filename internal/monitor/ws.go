// Package monitor serves a read-only WebSocket endpoint that mirrors
// the AGW raw-monitor ('k') stream for browser-based spectrum/packet
// tools, grounded on the teacher's internal/http/websocket package
// (gorilla/websocket upgrader, a read-loop answering PING with PONG,
// a write-loop relaying a pubsub channel) — adapted from gin/session
// routing to bare net/http, since this TNC carries no web framework.
package monitor

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/doismellburning/samoyed/internal/fanout"
)

const bufferSize = 1024

// Handler serves the monitor WebSocket endpoint for one channel's
// fan-out topic.
type Handler struct {
	fanout   fanout.Fanout
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler builds a monitor Handler relaying messages published on
// f's topics.
func NewHandler(f fanout.Fanout, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		fanout: f,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeTopic upgrades the request to a WebSocket and relays messages
// published on topic until the client disconnects.
func (h *Handler) ServeTopic(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("monitor: websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		sub := h.fanout.Subscribe(topic)
		defer sub.Close()

		readFailed := make(chan struct{})
		go func() {
			defer close(readFailed)
			for {
				t, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if string(msg) == "PING" {
					if err := conn.WriteMessage(t, []byte("PONG")); err != nil {
						return
					}
				}
			}
		}()

		for {
			select {
			case <-readFailed:
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
					return
				}
			}
		}
	}
}
