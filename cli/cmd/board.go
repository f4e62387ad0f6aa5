package cmd

import (
	"cmp"
	"slices"
	"time"

	"github.com/ponyo877/callwatch/server/domain"
)

// studentRow is what the dashboard knows about one participant.
type studentRow struct {
	UserID       string
	UserName     string
	Status       domain.Status
	LastActivity string
	Distractions int
	Warnings     int
	UpdatedAt    time.Time
}

func (r studentRow) name() string {
	return nameOr(r.UserName, r.UserID)
}

// board folds the events of one call into per-student rows. It is not safe
// for concurrent use; the watch UI only touches it from the draw loop.
type board struct {
	self string
	rows map[string]*studentRow
}

func newBoard(self string) *board {
	return &board{self: self, rows: map[string]*studentRow{}}
}

func (b *board) row(userID string) *studentRow {
	r, ok := b.rows[userID]
	if !ok {
		r = &studentRow{UserID: userID, Status: domain.StatusFocused}
		b.rows[userID] = r
	}
	return r
}

// Apply updates the board from one server event and reports whether anything changed.
func (b *board) Apply(env domain.Envelope) bool {
	switch env.Event {
	case domain.EventMonitoringUpdate:
		var p domain.MonitoringPayload
		if env.Decode(&p) != nil || p.UserID == "" || p.UserID == b.self {
			return false
		}
		r := b.row(p.UserID)
		if p.UserName != "" {
			r.UserName = p.UserName
		}
		if p.Kind == domain.KindWarning {
			r.Warnings++
		} else if status, ok := domain.Classify(p.Kind); ok && status == domain.StatusDistracted {
			r.Distractions++
		}
		r.UpdatedAt = p.Timestamp
		return true
	case domain.EventPeerStatusUpdate:
		var p domain.PeerStatusPayload
		if env.Decode(&p) != nil || p.UserID == "" || p.UserID == b.self {
			return false
		}
		r := b.row(p.UserID)
		if p.UserName != "" {
			r.UserName = p.UserName
		}
		r.Status = p.Status
		r.LastActivity = p.LastActivity
		return true
	case domain.EventRoomUsersUpdated:
		var p domain.RosterPayload
		if env.Decode(&p) != nil {
			return false
		}
		changed := false
		for _, id := range p.Users {
			if id == b.self {
				continue
			}
			if r, ok := b.rows[id]; !ok || r.Status == domain.StatusOffline {
				b.row(id).Status = domain.StatusFocused
				changed = true
			}
		}
		return changed
	case domain.EventPeerLeft, domain.EventUserLeft:
		var p domain.PeerLeftPayload
		if env.Decode(&p) != nil {
			return false
		}
		r, ok := b.rows[p.UserID]
		if !ok {
			return false
		}
		r.Status = domain.StatusOffline
		return true
	}
	return false
}

// Rows returns the students ordered distracted first, then by name.
func (b *board) Rows() []studentRow {
	rows := make([]studentRow, 0, len(b.rows))
	for _, r := range b.rows {
		rows = append(rows, *r)
	}
	rank := map[domain.Status]int{domain.StatusDistracted: 0, domain.StatusFocused: 1, domain.StatusOffline: 2}
	slices.SortFunc(rows, func(x, y studentRow) int {
		return cmp.Or(
			cmp.Compare(rank[x.Status], rank[y.Status]),
			cmp.Compare(x.name(), y.name()),
			cmp.Compare(x.UserID, y.UserID),
		)
	})
	return rows
}

// Counts returns how many students are focused, distracted and offline.
func (b *board) Counts() (focused, distracted, offline int) {
	for _, r := range b.rows {
		switch r.Status {
		case domain.StatusDistracted:
			distracted++
		case domain.StatusOffline:
			offline++
		default:
			focused++
		}
	}
	return focused, distracted, offline
}
