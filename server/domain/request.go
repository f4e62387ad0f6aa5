package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type RequestKind int

const (
	RequestJoin RequestKind = iota
	RequestLeave
	RequestMonitoring
	RequestChat
	RequestTyping
	RequestStopTyping
	RequestStatus
)

func (k RequestKind) String() string {
	switch k {
	case RequestJoin:
		return "join"
	case RequestLeave:
		return "leave"
	case RequestMonitoring:
		return "monitoring"
	case RequestChat:
		return "chat"
	case RequestTyping:
		return "typing"
	case RequestStopTyping:
		return "stop_typing"
	case RequestStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Request is a decoded inbound event. Only the payload matching Kind is populated.
type Request struct {
	Kind       RequestKind
	RoomID     string
	Monitoring MonitoringPayload
	Chat       ChatPayload
	Typing     TypingPayload
	Status     StatusRequestPayload
}

func NewJoinRequest(roomID string) Request {
	return Request{Kind: RequestJoin, RoomID: roomID}
}

func NewLeaveRequest(roomID string) Request {
	return Request{Kind: RequestLeave, RoomID: roomID}
}

// ParseRequest decodes an inbound envelope into a Request. Malformed or
// incomplete payloads yield ErrInvalidRequest, unknown names ErrUnknownEvent.
func ParseRequest(env Envelope) (Request, error) {
	var req Request
	switch env.Event {
	case EventJoinCall, EventLeaveCall:
		roomID, err := decodeRoomID(env)
		if err != nil {
			return Request{}, err
		}
		req = NewJoinRequest(roomID)
		if env.Event == EventLeaveCall {
			req = NewLeaveRequest(roomID)
		}
	case EventMonitoring:
		var p MonitoringPayload
		if err := env.Decode(&p); err != nil {
			return Request{}, err
		}
		req = Request{Kind: RequestMonitoring, RoomID: p.RoomID, Monitoring: p}
	case EventChatMessage:
		var p ChatPayload
		if err := env.Decode(&p); err != nil {
			return Request{}, err
		}
		req = Request{Kind: RequestChat, RoomID: p.RoomID, Chat: p}
	case EventChatTyping, EventChatStopTyping:
		var p TypingPayload
		if err := env.Decode(&p); err != nil {
			return Request{}, err
		}
		req = Request{Kind: RequestTyping, RoomID: p.RoomID, Typing: p}
		if env.Event == EventChatStopTyping {
			req.Kind = RequestStopTyping
		}
	case EventPeerRequestStatus:
		var p StatusRequestPayload
		if err := env.Decode(&p); err != nil {
			return Request{}, err
		}
		req = Request{Kind: RequestStatus, RoomID: p.RoomID, Status: p}
	default:
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if !req.IsValid() {
		return Request{}, fmt.Errorf("%w: %s", ErrInvalidRequest, req)
	}
	return req, nil
}

// join_call carries either a bare room id string or an object.
func decodeRoomID(env Envelope) (string, error) {
	var roomID string
	if err := json.Unmarshal(env.Data, &roomID); err == nil {
		return strings.TrimSpace(roomID), nil
	}
	var p RoomPayload
	if err := env.Decode(&p); err != nil {
		return "", err
	}
	return strings.TrimSpace(p.RoomID), nil
}

func (r Request) IsValid() bool {
	if r.RoomID == "" {
		return false
	}
	switch r.Kind {
	case RequestJoin, RequestLeave, RequestTyping, RequestStopTyping, RequestStatus:
		return true
	case RequestMonitoring:
		return r.Monitoring.Kind.IsValid()
	case RequestChat:
		return strings.TrimSpace(r.Chat.Content) != ""
	default:
		return false
	}
}

// ClaimedUserID is the user id the client put in the payload, if any.
func (r Request) ClaimedUserID() string {
	switch r.Kind {
	case RequestMonitoring:
		return r.Monitoring.UserID
	case RequestChat:
		return r.Chat.UserID
	case RequestTyping, RequestStopTyping:
		return r.Typing.UserID
	case RequestStatus:
		return r.Status.UserID
	default:
		return ""
	}
}

func (r Request) String() string {
	switch r.Kind {
	case RequestMonitoring:
		return r.Kind.String() + ": " + string(r.Monitoring.Kind) + " -> " + r.RoomID
	case RequestChat:
		return r.Kind.String() + ": " + r.Chat.Content + " -> " + r.RoomID
	default:
		return r.Kind.String() + ": " + r.RoomID
	}
}
