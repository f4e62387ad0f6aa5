package domain

import (
	"encoding/json"
	"time"
)

// Client to server events.
const (
	EventJoinCall          = "join_call"
	EventLeaveCall         = "leave_call"
	EventMonitoring        = "monitoring:event"
	EventChatMessage       = "chat:message"
	EventChatTyping        = "chat:typing"
	EventChatStopTyping    = "chat:stopTyping"
	EventPeerRequestStatus = "peer:request_status"
)

// Server to client events. chat:message, chat:typing and chat:stopTyping are echoed
// under their inbound names.
const (
	EventOnlineUsers      = "getOnlineUsers"
	EventRoomUsersUpdated = "room:users_updated"
	EventChatSystem       = "chat:system"
	EventPeerStatusUpdate = "peer:status_update"
	EventMonitoringUpdate = "monitoring:update"
	EventUserLeft         = "user:left"
	EventPeerLeft         = "peer:left"
)

type RoomPayload struct {
	RoomID string `json:"callId"`
}

type MonitoringPayload struct {
	RoomID    string    `json:"callId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserImage string    `json:"userImage,omitempty"`
	Kind      EventKind `json:"eventType"`
	Detail    string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UnmarshalJSON also accepts the student* field names older clients send.
func (p *MonitoringPayload) UnmarshalJSON(b []byte) error {
	type plain MonitoringPayload
	var aux struct {
		plain
		StudentID    string `json:"studentId"`
		StudentName  string `json:"studentName"`
		StudentImage string `json:"studentImage"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = MonitoringPayload(aux.plain)
	if p.UserID == "" {
		p.UserID = aux.StudentID
	}
	if p.UserName == "" {
		p.UserName = aux.StudentName
	}
	if p.UserImage == "" {
		p.UserImage = aux.StudentImage
	}
	return nil
}

func (p MonitoringPayload) Event() MonitoringEvent {
	return MonitoringEvent{
		RoomID:    p.RoomID,
		UserID:    p.UserID,
		UserName:  p.UserName,
		UserImage: p.UserImage,
		Kind:      p.Kind,
		Detail:    p.Detail,
		Timestamp: p.Timestamp,
	}
}

type ChatPayload struct {
	ID        string    `json:"id,omitempty"`
	RoomID    string    `json:"callId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	UserImage string    `json:"userImage,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingPayload struct {
	RoomID   string `json:"callId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type StatusRequestPayload struct {
	RoomID string `json:"callId"`
	UserID string `json:"userId,omitempty"`
}

type RosterPayload struct {
	RoomID string   `json:"callId"`
	Count  int      `json:"count"`
	Users  []string `json:"users"`
}

type SystemPayload struct {
	Message string `json:"message"`
}

type PeerStatusPayload struct {
	UserID       string `json:"userId"`
	UserName     string `json:"userName,omitempty"`
	UserImage    string `json:"userImage,omitempty"`
	Status       Status `json:"status"`
	LastActivity string `json:"lastActivity"`
}

type UserLeftPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"callId"`
}

type PeerLeftPayload struct {
	UserID string `json:"userId"`
}
