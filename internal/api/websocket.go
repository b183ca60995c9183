package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsError is sent in place of a ChatResponse when a frame is rejected.
type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket serves GET /v1/ws. Each text frame is a ChatRequest
// and is answered by one ChatResponse frame. Frames without a
// conversation_id continue the conversation the socket started with.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxRequestBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx := r.Context()
	done := make(chan struct{})
	defer close(done)
	go s.wsPing(conn, done)

	defaultID := r.URL.Query().Get("conversation_id")
	if defaultID == "" {
		defaultID = NewID()
	}
	log := s.logger.With("conversation_id", defaultID)
	log.Debug("websocket connected")

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		if req.ConversationID == "" {
			req.ConversationID = defaultID
		}

		// A long agent turn must not trip the read deadline.
		conn.SetReadDeadline(time.Time{})
		resp, err := s.chat(ctx, req)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var frame any = resp
		if err != nil {
			frame = wsError{Error: err.Error()}
		}
		if err := s.wsWrite(conn, frame); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug("websocket write failed", "error", err)
			}
			return
		}
	}
}

// wsWrite and wsPing share the connection; gorilla allows one concurrent
// writer, plus WriteControl from any goroutine.
func (s *Server) wsWrite(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}

func (s *Server) wsPing(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
