package domain

import (
	"slices"
	"sync"
)

// RoomMembership keeps room -> user -> connections and connection -> rooms.
// Both indexes change under the same lock, so no reader sees one side without the other.
type RoomMembership struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]map[string]struct{}
	connRooms map[string]map[string]struct{}
}

type JoinResult struct {
	Roster []string
	// Joined is false when the connection was already in the room.
	Joined bool
	// FirstForUser is true when none of the user's connections was in the room before.
	FirstForUser bool
}

func NewRoomMembership() *RoomMembership {
	return &RoomMembership{
		rooms:     make(map[string]map[string]map[string]struct{}),
		connRooms: make(map[string]map[string]struct{}),
	}
}

func (m *RoomMembership) Join(roomID, connectionID, userID string) JoinResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[string]map[string]struct{})
		m.rooms[roomID] = members
	}
	conns, userPresent := members[userID]
	if !userPresent {
		conns = make(map[string]struct{})
		members[userID] = conns
	}
	_, connPresent := conns[connectionID]
	conns[connectionID] = struct{}{}

	rooms, ok := m.connRooms[connectionID]
	if !ok {
		rooms = make(map[string]struct{})
		m.connRooms[connectionID] = rooms
	}
	rooms[roomID] = struct{}{}

	return JoinResult{
		Roster:       rosterLocked(members),
		Joined:       !connPresent,
		FirstForUser: !userPresent,
	}
}

// Leave removes the user and all of its connections from the room. Absent users are a no-op.
func (m *RoomMembership) Leave(roomID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return
	}
	for connID := range members[userID] {
		m.unindexLocked(connID, roomID)
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}
}

// LeaveConnection removes a single connection of userID from the room.
// removed is false when the connection was not a member; userGone reports
// that the user has no other connection left in the room.
func (m *RoomMembership) LeaveConnection(roomID, connectionID, userID string) (removed, userGone bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		return false, false
	}
	conns, ok := members[userID]
	if !ok {
		return false, false
	}
	if _, ok := conns[connectionID]; !ok {
		return false, false
	}
	delete(conns, connectionID)
	m.unindexLocked(connectionID, roomID)
	if len(conns) > 0 {
		return true, false
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	}
	return true, true
}

func (m *RoomMembership) unindexLocked(connectionID, roomID string) {
	rooms, ok := m.connRooms[connectionID]
	if !ok {
		return
	}
	delete(rooms, roomID)
	if len(rooms) == 0 {
		delete(m.connRooms, connectionID)
	}
}

func (m *RoomMembership) Roster(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return rosterLocked(m.rooms[roomID])
}

func rosterLocked(members map[string]map[string]struct{}) []string {
	roster := make([]string, 0, len(members))
	for userID := range members {
		roster = append(roster, userID)
	}
	slices.Sort(roster)
	return roster
}

func (m *RoomMembership) RoomsFor(connectionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]string, 0, len(m.connRooms[connectionID]))
	for roomID := range m.connRooms[connectionID] {
		rooms = append(rooms, roomID)
	}
	slices.Sort(rooms)
	return rooms
}

func (m *RoomMembership) Contains(roomID, userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.rooms[roomID][userID]
	return ok
}

func (m *RoomMembership) Rooms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]string, 0, len(m.rooms))
	for roomID := range m.rooms {
		rooms = append(rooms, roomID)
	}
	slices.Sort(rooms)
	return rooms
}
