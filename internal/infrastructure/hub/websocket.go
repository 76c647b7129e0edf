package hub

import (
	"encoding/json"
	"net/http"
	"time"

	"livemon/internal/core/domain"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSOptions tune the per-connection websocket timers.
type WSOptions struct {
	PingInterval time.Duration // server-side ws ping cadence
	PongTimeout  time.Duration // grace period without any inbound traffic
	WriteTimeout time.Duration
}

func (o *WSOptions) defaults() {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
}

// ServeWS upgrades the request, subscribes the connection as an observer and
// pumps its queue until either side goes away. Inbound traffic is limited to
// liveness pings (answered with a pong); anything else only refreshes the
// read deadline.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, opts WSOptions) {
	opts.defaults()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	o := h.Subscribe()
	defer h.Unsubscribe(o)

	conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
		return nil
	})

	// Writer: drains the observer queue and keeps the connection pinged.
	writeErr := make(chan error, 1)
	go func() {
		pingTicker := time.NewTicker(opts.PingInterval)
		defer pingTicker.Stop()
		// Closing the connection also unblocks the read loop below.
		defer conn.Close()

		for {
			select {
			case msg := <-o.C():
				conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					writeErr <- err
					return
				}
			case <-pingTicker.C:
				conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					writeErr <- err
					return
				}
			case <-o.Done():
				writeErr <- nil
				return
			}
		}
	}()

	// Reader: any inbound frame proves liveness; a JSON ping gets a pong
	// through the observer's own queue so writes stay single-threaded.
	for {
		select {
		case err := <-writeErr:
			if err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debugw("observer write failed", "observer_id", o.ID(), "error", err)
			}
			return
		default:
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debugw("observer read failed", "observer_id", o.ID(), "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))

		var inbound struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(payload, &inbound) == nil && inbound.Type == "ping" {
			h.send(o, domain.Envelope{Type: domain.MessagePong})
		}
	}
}
