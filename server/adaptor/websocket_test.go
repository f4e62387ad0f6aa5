package adaptor

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponyo877/callwatch/server/domain"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func readUntil(t *testing.T, c *websocket.Conn, event string) domain.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var env domain.Envelope
		require.NoError(t, wsjson.Read(ctx, c, &env))
		if env.Event == event {
			return env
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	srv, _ := newTestServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	teacher := dialWS(t, base+"?userId=T&userName=Teacher&role=teacher")
	student := dialWS(t, base+"?userId=S&userName=Sam")
	ctx := context.Background()

	require.NoError(t, wsjson.Write(ctx, teacher, map[string]any{"event": "join_call", "data": "r1"}))
	readUntil(t, teacher, domain.EventPeerStatusUpdate)

	require.NoError(t, student.Write(ctx, websocket.MessageText, []byte(`{not json`)))
	require.NoError(t, wsjson.Write(ctx, student, map[string]any{"event": "join_call", "data": map[string]string{"callId": "r1"}}))
	readUntil(t, teacher, domain.EventChatSystem)

	require.NoError(t, wsjson.Write(ctx, student, map[string]any{
		"event": "chat:message",
		"data":  map[string]string{"callId": "r1", "content": "hi"},
	}))
	env := readUntil(t, teacher, domain.EventChatMessage)
	var msg domain.ChatPayload
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "Sam", msg.UserName)
	assert.Equal(t, domain.RoleStudent, msg.Role)

	require.NoError(t, student.Close(websocket.StatusNormalClosure, ""))
	readUntil(t, teacher, domain.EventUserLeft)
}

func TestWebSocketRequiresUserID(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := srv.Client().Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
