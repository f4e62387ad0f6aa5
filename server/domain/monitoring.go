package domain

import "time"

// MonitoringEvent is one engagement signal reported by a client.
type MonitoringEvent struct {
	ID        string
	RoomID    string
	UserID    string
	UserName  string
	UserImage string
	Kind      EventKind
	Detail    string
	Timestamp time.Time
	CreatedAt time.Time
}

func (e MonitoringEvent) IsValid() bool {
	return e.RoomID != "" && e.UserID != "" && e.Kind.IsValid()
}

func (e MonitoringEvent) Payload() MonitoringPayload {
	return MonitoringPayload{
		RoomID:    e.RoomID,
		UserID:    e.UserID,
		UserName:  e.UserName,
		UserImage: e.UserImage,
		Kind:      e.Kind,
		Detail:    e.Detail,
		Timestamp: e.Timestamp,
	}
}

// Note is a free-text remark a teacher leaves about a student in a call.
type Note struct {
	ID        string
	TeacherID string
	StudentID string
	RoomID    string
	Text      string
	CreatedAt time.Time
}

func (n Note) IsValid() bool {
	return n.TeacherID != "" && n.StudentID != "" && n.RoomID != "" && n.Text != ""
}

// Report is the raw material for a per-student engagement report.
// Events are oldest first, notes newest first.
type Report struct {
	Student *Profile
	Events  []MonitoringEvent
	Notes   []Note
}
