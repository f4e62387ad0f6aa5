package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/ponyo877/callwatch/server/domain"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler serves the event protocol as JSON text frames
// ({"event": ..., "data": ...}) at GET /ws?userId=&userName=&userImage=&role=.
type WebSocketHandler struct {
	sessions       Sessions
	originPatterns []string
}

func NewWebSocketHandler(sessions Sessions, originPatterns []string) *WebSocketHandler {
	return &WebSocketHandler{sessions: sessions, originPatterns: originPatterns}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile := profileFromQuery(r)
	if !profile.IsValid() {
		writeError(w, http.StatusUnauthorized, "userId is required")
		return
	}
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Warn().Str("module", "adaptor.websocket").Err(err).Msg("failed to upgrade connection")
		return
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	conn := h.sessions.NewConnection(r.RemoteAddr)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	requestChan := make(chan domain.Envelope, 32)
	go func() {
		defer close(requestChan)
		for {
			typ, b, err := ws.Read(ctx)
			if err != nil {
				if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
					log.Debug().Str("module", "adaptor.websocket").Str("conn", conn.ID).Err(err).Msg("read failed")
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			env, err := decodeFrame(b)
			if err != nil {
				log.Debug().Str("module", "adaptor.websocket").Str("conn", conn.ID).Err(err).Msg("malformed frame")
				continue
			}
			select {
			case requestChan <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	sendDone := make(chan struct{})
	go func() {
		defer close(sendDone)
		for env := range conn.Outbound() {
			writeCtx, writeCancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, ws, env)
			writeCancel()
			if err != nil {
				log.Debug().Str("module", "adaptor.websocket").Str("conn", conn.ID).Err(err).Msg("write failed")
				cancel()
				return
			}
		}
	}()

	if err := h.sessions.Serve(ctx, conn, profile, requestChan); err != nil {
		log.Warn().Str("module", "adaptor.websocket").Str("conn", conn.ID).Err(err).Msg("session refused")
		ws.Close(websocket.StatusPolicyViolation, err.Error())
	}
	<-sendDone
}

// decodeFrame parses one client frame. A malformed frame is dropped and the
// socket stays open.
func decodeFrame(b []byte) (domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return domain.Envelope{}, errors.Join(domain.ErrInvalidRequest, err)
	}
	if !env.IsValid() {
		return domain.Envelope{}, domain.ErrInvalidRequest
	}
	return env, nil
}
