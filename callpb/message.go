package callpb

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrNoEvent = errors.New("message has no event name")

// NewMessage wraps an event name and its JSON payload. Empty data leaves the
// "data" field out.
func NewMessage(event string, data json.RawMessage) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		"event": structpb.NewStringValue(event),
	}
	if len(data) > 0 {
		v := &structpb.Value{}
		if err := protojson.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("failed to convert %s payload: %w", event, err)
		}
		fields["data"] = v
	}
	return &structpb.Struct{Fields: fields}, nil
}

// ParseMessage is the inverse of NewMessage.
func ParseMessage(m *structpb.Struct) (string, json.RawMessage, error) {
	event := m.GetFields()["event"].GetStringValue()
	if event == "" {
		return "", nil, ErrNoEvent
	}
	v, ok := m.GetFields()["data"]
	if !ok || v == nil {
		return event, nil, nil
	}
	data, err := protojson.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to convert %s payload: %w", event, err)
	}
	return event, data, nil
}
