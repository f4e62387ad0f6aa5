package domain

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type PresenceUpdate struct {
	RoomID    string
	UserID    string
	UserName  string
	UserImage string
	Status    Status
	Activity  string
	When      time.Time
	// Force applies the update regardless of ordering. Forced updates carry
	// server time and never become the baseline reported times are compared to.
	Force bool
}

type presenceEntry struct {
	PeerStatus
	// reportedAt is the newest When of a non-forced update.
	reportedAt time.Time
}

// PresenceStore holds the derived status of every user that joined a room
// during the process lifetime. Entries are never deleted, only marked offline.
type PresenceStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*presenceEntry
	nowF  func() time.Time
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		rooms: make(map[string]map[string]*presenceEntry),
		nowF:  time.Now,
	}
}

// Update applies u unless an earlier non-forced update reported a newer time
// (last write wins by When among reported times). It returns the resulting
// entry and whether u was applied.
func (s *PresenceStore) Update(u PresenceUpdate) (PeerStatus, bool) {
	if u.When.IsZero() {
		u.When = s.nowF()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	peers, ok := s.rooms[u.RoomID]
	if !ok {
		peers = make(map[string]*presenceEntry)
		s.rooms[u.RoomID] = peers
	}
	entry, ok := peers[u.UserID]
	if !ok {
		entry = &presenceEntry{PeerStatus: PeerStatus{RoomID: u.RoomID, UserID: u.UserID}}
		peers[u.UserID] = entry
	} else if !u.Force && u.When.Before(entry.reportedAt) {
		return entry.PeerStatus, false
	}
	if u.UserName != "" {
		entry.UserName = u.UserName
	}
	if u.UserImage != "" {
		entry.UserImage = u.UserImage
	}
	entry.Status = u.Status
	entry.LastActivity = u.Activity
	if u.Force {
		if u.When.After(entry.UpdatedAt) {
			entry.UpdatedAt = u.When
		}
	} else {
		entry.reportedAt = u.When
		entry.UpdatedAt = u.When
	}
	return entry.PeerStatus, true
}

// MarkOffline keeps the last activity text so late queries can still show it.
func (s *PresenceStore) MarkOffline(roomID, userID string) (PeerStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID][userID]
	if !ok {
		return PeerStatus{}, false
	}
	entry.Status = StatusOffline
	if now := s.nowF(); now.After(entry.UpdatedAt) {
		entry.UpdatedAt = now
	}
	return entry.PeerStatus, true
}

// RoomsOf returns every room in which userID has an entry.
func (s *PresenceStore) RoomsOf(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []string
	for roomID, peers := range s.rooms {
		if _, ok := peers[userID]; ok {
			rooms = append(rooms, roomID)
		}
	}
	slices.Sort(rooms)
	return rooms
}

func (s *PresenceStore) Get(roomID, userID string) (PeerStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rooms[roomID][userID]
	if !ok {
		return PeerStatus{}, false
	}
	return entry.PeerStatus, true
}

// Query returns every known peer of the room except excludingUserID, offline ones included.
func (s *PresenceStore) Query(roomID, excludingUserID string) []PeerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	peers := make([]PeerStatus, 0, len(s.rooms[roomID]))
	for userID, entry := range s.rooms[roomID] {
		if userID == excludingUserID {
			continue
		}
		peers = append(peers, entry.PeerStatus)
	}
	slices.SortFunc(peers, func(a, b PeerStatus) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return peers
}

func (s *PresenceStore) ActiveCount(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, entry := range s.rooms[roomID] {
		if entry.IsActive() {
			n++
		}
	}
	return n
}
