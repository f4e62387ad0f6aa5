package domain

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// RoomLocator answers which rooms a connection has joined.
type RoomLocator interface {
	RoomsFor(connectionID string) []string
}

type userEntry struct {
	profile     Profile
	connections map[string]struct{}
}

// ConnectionRegistry owns every live Connection and indexes them by user.
// It never broadcasts; callers decide what to announce.
type ConnectionRegistry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	users       map[string]*userEntry
	rooms       RoomLocator
}

type UnregisterResult struct {
	Connection *Connection
	UserID     string
	// Rooms the connection had joined at the time it was removed.
	Rooms []string
	// LastConnection is true when the user has no connection left.
	LastConnection bool
}

func NewConnectionRegistry(rooms RoomLocator) *ConnectionRegistry {
	return &ConnectionRegistry{
		connections: make(map[string]*Connection),
		users:       make(map[string]*userEntry),
		rooms:       rooms,
	}
}

// Register identifies conn as profile.UserID. Registering the same connection
// again overwrites its mapping, moving it to the new user if the id changed.
func (r *ConnectionRegistry) Register(conn *Connection, profile Profile) error {
	if conn == nil || !profile.IsValid() {
		return ErrNotIdentified
	}
	if conn.State() == StateClosed {
		return ErrConnectionClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.connections[conn.ID]; ok {
		r.detachLocked(conn.ID, prev.UserID())
	}
	conn.Identify(profile)
	r.connections[conn.ID] = conn

	entry, ok := r.users[profile.UserID]
	if !ok {
		entry = &userEntry{connections: make(map[string]struct{})}
		r.users[profile.UserID] = entry
	}
	entry.profile = profile.Merge(entry.profile)
	entry.connections[conn.ID] = struct{}{}

	log.Debug().Str("module", "core.registry").Str("conn", conn.ID).Str("user", profile.UserID).Int("user_connections", len(entry.connections)).Msg("connection registered")
	return nil
}

// Unregister removes the connection. The second result is false when the id was unknown.
func (r *ConnectionRegistry) Unregister(connectionID string) (UnregisterResult, bool) {
	r.mu.Lock()
	conn, ok := r.connections[connectionID]
	if !ok {
		r.mu.Unlock()
		return UnregisterResult{}, false
	}
	userID := conn.UserID()
	delete(r.connections, connectionID)
	last := r.detachLocked(connectionID, userID)
	r.mu.Unlock()

	var rooms []string
	if r.rooms != nil {
		rooms = r.rooms.RoomsFor(connectionID)
	}
	log.Debug().Str("module", "core.registry").Str("conn", connectionID).Str("user", userID).Bool("last", last).Msg("connection unregistered")
	return UnregisterResult{
		Connection:     conn,
		UserID:         userID,
		Rooms:          rooms,
		LastConnection: last,
	}, true
}

func (r *ConnectionRegistry) detachLocked(connectionID, userID string) bool {
	entry, ok := r.users[userID]
	if !ok {
		return true
	}
	delete(entry.connections, connectionID)
	if len(entry.connections) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// Lookup returns the ids of the user's open connections, empty when unknown.
func (r *ConnectionRegistry) Lookup(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	if !ok {
		return []string{}
	}
	ids := make([]string, 0, len(entry.connections))
	for id := range entry.connections {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *ConnectionRegistry) Connections(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	if !ok {
		return nil
	}
	conns := make([]*Connection, 0, len(entry.connections))
	for id := range entry.connections {
		if conn, ok := r.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	return conns
}

func (r *ConnectionRegistry) Connection(connectionID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connectionID]
	return conn, ok
}

func (r *ConnectionRegistry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

// AllUserIDs lists every user with at least one open connection.
func (r *ConnectionRegistry) AllUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *ConnectionRegistry) Profile(userID string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.users[userID]
	if !ok {
		return Profile{}, false
	}
	return entry.profile, true
}

func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[userID]
	return ok
}

func (r *ConnectionRegistry) Count() (connections, users int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.users)
}
