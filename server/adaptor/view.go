package adaptor

import (
	"time"

	"github.com/ponyo877/callwatch/server/domain"
	"github.com/ponyo877/callwatch/server/usecase"
)

// JSON shapes of the HTTP API. The CLI decodes the same types.

type ProfileView struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`
	Role      string `json:"role"`
}

type EventView struct {
	ID           string    `json:"id"`
	CallID       string    `json:"callId"`
	StudentID    string    `json:"studentId"`
	StudentName  string    `json:"studentName,omitempty"`
	StudentImage string    `json:"studentImage,omitempty"`
	EventType    string    `json:"eventType"`
	Details      string    `json:"details,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	CreatedAt    time.Time `json:"createdAt"`
}

type NoteView struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacherId"`
	StudentID string    `json:"studentId"`
	CallID    string    `json:"callId"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReportView struct {
	Student *ProfileView `json:"student"`
	Events  []EventView  `json:"events"`
	Notes   []NoteView   `json:"notes"`
}

type PeerView struct {
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName,omitempty"`
	Status       string    `json:"status"`
	LastActivity string    `json:"lastActivity"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PresenceView struct {
	CallID string     `json:"callId"`
	Users  []string   `json:"users"`
	Active int        `json:"active"`
	Peers  []PeerView `json:"peers"`
}

func toProfileView(p domain.Profile) ProfileView {
	return ProfileView{
		UserID:    p.UserID,
		UserName:  p.DisplayName(),
		UserImage: p.Image,
		Role:      p.Role.String(),
	}
}

func toEventView(e domain.MonitoringEvent) EventView {
	return EventView{
		ID:           e.ID,
		CallID:       e.RoomID,
		StudentID:    e.UserID,
		StudentName:  e.UserName,
		StudentImage: e.UserImage,
		EventType:    string(e.Kind),
		Details:      e.Detail,
		Timestamp:    e.Timestamp,
		CreatedAt:    e.CreatedAt,
	}
}

func toEventViews(events []domain.MonitoringEvent) []EventView {
	views := make([]EventView, len(events))
	for i, e := range events {
		views[i] = toEventView(e)
	}
	return views
}

func toNoteView(n domain.Note) NoteView {
	return NoteView{
		ID:        n.ID,
		TeacherID: n.TeacherID,
		StudentID: n.StudentID,
		CallID:    n.RoomID,
		Note:      n.Text,
		CreatedAt: n.CreatedAt,
	}
}

func toReportView(r domain.Report) ReportView {
	view := ReportView{
		Events: toEventViews(r.Events),
		Notes:  make([]NoteView, len(r.Notes)),
	}
	for i, n := range r.Notes {
		view.Notes[i] = toNoteView(n)
	}
	if r.Student != nil {
		p := toProfileView(*r.Student)
		view.Student = &p
	}
	return view
}

func toPresenceView(s usecase.RoomSnapshot) PresenceView {
	view := PresenceView{
		CallID: s.RoomID,
		Users:  s.Roster,
		Active: s.Active,
		Peers:  make([]PeerView, len(s.Peers)),
	}
	for i, p := range s.Peers {
		view.Peers[i] = PeerView{
			UserID:       p.UserID,
			UserName:     p.UserName,
			Status:       string(p.Status),
			LastActivity: p.LastActivity,
			UpdatedAt:    p.UpdatedAt,
		}
	}
	return view
}
