package callpb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
	}{
		{"object", "monitoring:event", `{"callId":"r1","eventType":"tab_switch","details":"Switched Tab"}`},
		{"bare string", "join_call", `"r1"`},
		{"array", "getOnlineUsers", `["u1","u2"]`},
		{"no data", "ping", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMessage(tt.event, json.RawMessage(tt.data))
			require.NoError(t, err)

			event, data, err := ParseMessage(m)
			require.NoError(t, err)
			assert.Equal(t, tt.event, event)
			if tt.data == "" {
				assert.Empty(t, data)
				return
			}
			assert.JSONEq(t, tt.data, string(data))
		})
	}
}

func TestMessageErrors(t *testing.T) {
	_, err := NewMessage("x", json.RawMessage(`{broken`))
	assert.Error(t, err)

	_, _, err = ParseMessage(&structpb.Struct{})
	assert.ErrorIs(t, err, ErrNoEvent)
}
