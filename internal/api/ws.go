package api

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsHandler serves the same broadcast stream over a WebSocket: each framed
// SSE event goes out as one text message. The read loop exists only to
// notice the peer going away.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request, name string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	pr := s.getPrincipal(r)
	c := s.Hub.Join(name, pr.UserID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn.SetReadLimit(1 << 20)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.Hub.Pump(ctx, c, &wsWriter{conn: conn}, s.Cfg.Heartbeat())
}

type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) WriteEvent(event string) error {
	return w.conn.WriteMessage(websocket.TextMessage, []byte(event))
}
