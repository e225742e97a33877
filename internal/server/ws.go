package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/movelabs/moveguard/internal/monitor"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is handled by the CORS middleware on the API routes;
	// the alert stream is read-only so cross-origin reads are acceptable.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsEnvelope struct {
	Type  string        `json:"type"`
	Alert monitor.Alert `json:"alert"`
}

// handleWS upgrades the connection and streams hub alerts until the client
// goes away or the hub shuts down.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.cfg.Hub.Subscribe()
	defer s.cfg.Hub.Unsubscribe(sub)

	s.log.Debug("websocket client connected", "remote", r.RemoteAddr)

	// Drain reads so close frames and pongs are processed.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case alert := <-sub.Events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsEnvelope{Type: "alert", Alert: alert}); err != nil {
				s.log.Debug("websocket write failed", "remote", r.RemoteAddr, "error", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.Done:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		case <-readerGone:
			return
		}
	}
}
