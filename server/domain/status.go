package domain

import "time"

type Status string

const (
	StatusFocused    Status = "focused"
	StatusDistracted Status = "distracted"
	StatusOffline    Status = "offline"
)

type EventKind string

const (
	KindDistraction EventKind = "distraction"
	KindFocus       EventKind = "focus"
	KindTabSwitch   EventKind = "tab_switch"
	KindWindowBlur  EventKind = "window_blur"
	KindWarning     EventKind = "warning"
	KindComply      EventKind = "comply"
)

var EventKinds = []EventKind{
	KindDistraction,
	KindFocus,
	KindTabSwitch,
	KindWindowBlur,
	KindWarning,
	KindComply,
}

func (k EventKind) IsValid() bool {
	switch k {
	case KindDistraction, KindFocus, KindTabSwitch, KindWindowBlur, KindWarning, KindComply:
		return true
	default:
		return false
	}
}

// Classify maps a monitoring event kind to the presence status it implies.
// The second result is false for kinds that leave the status untouched (warning, unknown).
func Classify(kind EventKind) (Status, bool) {
	switch kind {
	case KindFocus, KindComply:
		return StatusFocused, true
	case KindDistraction, KindTabSwitch, KindWindowBlur:
		return StatusDistracted, true
	default:
		return "", false
	}
}

// DefaultActivity is the last-activity text used when an event carries no detail.
func DefaultActivity(kind EventKind) string {
	switch kind {
	case KindFocus:
		return "Regained Focus"
	case KindComply:
		return "Complied"
	case KindWarning:
		return "Warning Threshold"
	default:
		return "Distracted"
	}
}

type PeerStatus struct {
	RoomID       string
	UserID       string
	UserName     string
	UserImage    string
	Status       Status
	LastActivity string
	UpdatedAt    time.Time
}

// IsActive reports whether the peer counts towards a room's active participants.
func (p PeerStatus) IsActive() bool {
	return p.Status != StatusOffline
}

func (p PeerStatus) Payload() PeerStatusPayload {
	return PeerStatusPayload{
		UserID:       p.UserID,
		UserName:     p.UserName,
		UserImage:    p.UserImage,
		Status:       p.Status,
		LastActivity: p.LastActivity,
	}
}
