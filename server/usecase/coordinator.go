package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ponyo877/callwatch/server/domain"
)

const defaultPersistTimeout = 5 * time.Second

// Options configure a SessionCoordinator. Recorder and Profiles may be nil.
type Options struct {
	Recorder       EventRecorder
	Profiles       ProfileLookup
	QueueSize      int
	PersistTimeout time.Duration
	// StrictIdentity drops events whose payload names a different user than the connection.
	StrictIdentity bool
}

// SessionCoordinator owns the connection registry, room membership and
// presence state of one process and runs the call protocol on top of them.
type SessionCoordinator struct {
	registry    *domain.ConnectionRegistry
	membership  *domain.RoomMembership
	presence    *domain.PresenceStore
	broadcaster *domain.Broadcaster
	rooms       *roomLocks

	recorder       EventRecorder
	profiles       ProfileLookup
	queueSize      int
	persistTimeout time.Duration
	strictIdentity bool
	nowF           func() time.Time

	pending   sync.WaitGroup
	accepted  atomic.Int64
	rejected  atomic.Int64
	startTime time.Time
}

type Stats struct {
	Connections int
	Users       int
	Rooms       int
	Accepted    int64
	Rejected    int64
	Uptime      string
}

// RoomSnapshot is a read-only view of one room.
type RoomSnapshot struct {
	RoomID string
	Roster []string
	Peers  []domain.PeerStatus
	Active int
}

// NewSessionCoordinator creates a coordinator with fresh, empty state.
func NewSessionCoordinator(opts Options) *SessionCoordinator {
	membership := domain.NewRoomMembership()
	registry := domain.NewConnectionRegistry(membership)
	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = defaultPersistTimeout
	}
	return &SessionCoordinator{
		registry:       registry,
		membership:     membership,
		presence:       domain.NewPresenceStore(),
		broadcaster:    domain.NewBroadcaster(registry, membership),
		rooms:          newRoomLocks(),
		recorder:       opts.Recorder,
		profiles:       opts.Profiles,
		queueSize:      opts.QueueSize,
		persistTimeout: persistTimeout,
		strictIdentity: opts.StrictIdentity,
		nowF:           time.Now,
		startTime:      time.Now(),
	}
}

// NewConnection creates an unidentified connection for a transport to drive.
func (c *SessionCoordinator) NewConnection(remote string) *domain.Connection {
	return domain.NewConnection(domain.NewID(), remote, c.queueSize)
}

// Serve runs one connection from identification to cleanup. It returns when
// requests is closed or ctx is done; membership cleanup has completed by then
// and the connection's outbound queue is closed.
func (c *SessionCoordinator) Serve(ctx context.Context, conn *domain.Connection, profile domain.Profile, requests <-chan domain.Envelope) error {
	if err := c.Connect(ctx, conn, profile); err != nil {
		conn.Close()
		return err
	}
	defer c.Disconnect(conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-requests:
			if !ok {
				return nil
			}
			c.dispatchSafe(conn, env)
		}
	}
}

// Connect registers an identified connection and announces the online users.
func (c *SessionCoordinator) Connect(ctx context.Context, conn *domain.Connection, profile domain.Profile) error {
	if !profile.IsValid() {
		return domain.ErrNotIdentified
	}
	profile = c.completeProfile(ctx, profile)
	if err := c.registry.Register(conn, profile); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	log.Info().Str("module", "usecase.coordinator").Str("conn", conn.ID).Str("user", profile.UserID).Str("role", profile.Role.String()).Str("remote", conn.Remote).Msg("connected")

	c.broadcastOnlineUsers()
	return nil
}

func (c *SessionCoordinator) completeProfile(ctx context.Context, profile domain.Profile) domain.Profile {
	if c.profiles != nil && (profile.Name == "" || profile.Image == "" || profile.Role == "") {
		lookupCtx, cancel := context.WithTimeout(ctx, c.persistTimeout)
		defer cancel()
		stored, err := c.profiles.GetUser(lookupCtx, profile.UserID)
		if err != nil {
			log.Debug().Str("module", "usecase.coordinator").Str("user", profile.UserID).Err(err).Msg("profile lookup failed")
		} else {
			profile = profile.Merge(stored)
		}
	}
	if profile.Role == "" {
		profile.Role = domain.RoleStudent
	}
	return profile
}

// Disconnect removes the connection from every room it joined, announces the
// departure where the user has no other connection left in the room, and closes it.
func (c *SessionCoordinator) Disconnect(conn *domain.Connection) {
	res, ok := c.registry.Unregister(conn.ID)
	conn.Close()
	if !ok {
		return
	}
	profile := conn.Profile()
	for _, roomID := range res.Rooms {
		unlock := c.rooms.lock(roomID)
		c.leaveRoomLocked(conn.ID, profile, roomID)
		unlock()
	}
	if res.LastConnection {
		c.retireStrayPresence(res.UserID)
	}
	c.broadcastOnlineUsers()

	log.Info().Str("module", "usecase.coordinator").Str("conn", conn.ID).Str("user", res.UserID).Strs("rooms", res.Rooms).Bool("last", res.LastConnection).Int("dropped", conn.Dropped()).Msg("disconnected")
}

// retireStrayPresence marks offline the entries a user created in rooms it was
// not a member of, such as monitoring sent to an unjoined or already left room.
func (c *SessionCoordinator) retireStrayPresence(userID string) {
	for _, roomID := range c.presence.RoomsOf(userID) {
		unlock := c.rooms.lock(roomID)
		if peer, ok := c.presence.Get(roomID, userID); ok && peer.IsActive() && !c.membership.Contains(roomID, userID) {
			peer, _ = c.presence.MarkOffline(roomID, userID)
			c.toRoom(roomID, domain.EventPeerStatusUpdate, peer.Payload())
		}
		unlock()
	}
}

func (c *SessionCoordinator) dispatchSafe(conn *domain.Connection, env domain.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "usecase.coordinator").Str("conn", conn.ID).Str("event", env.Event).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	if err := c.Dispatch(conn, env); err != nil {
		log.Debug().Str("module", "usecase.coordinator").Str("conn", conn.ID).Str("event", env.Event).Err(err).Msg("event dropped")
	}
}

// Dispatch handles one inbound envelope. A returned error means the event was
// dropped; the connection stays usable.
func (c *SessionCoordinator) Dispatch(conn *domain.Connection, env domain.Envelope) error {
	if conn.State() != domain.StateIdentified {
		c.rejected.Add(1)
		return domain.ErrNotIdentified
	}
	req, err := domain.ParseRequest(env)
	if err != nil {
		c.rejected.Add(1)
		return err
	}
	if c.strictIdentity {
		if claimed := req.ClaimedUserID(); claimed != "" && claimed != conn.UserID() {
			c.rejected.Add(1)
			return fmt.Errorf("%w: %s claimed %s", domain.ErrIdentityMismatch, conn.UserID(), claimed)
		}
	}
	switch req.Kind {
	case domain.RequestChat, domain.RequestTyping, domain.RequestStopTyping, domain.RequestStatus:
		if !c.membership.Contains(req.RoomID, conn.UserID()) {
			c.rejected.Add(1)
			return fmt.Errorf("%w: %s in %s", domain.ErrNotMember, conn.UserID(), req.RoomID)
		}
	}
	c.accepted.Add(1)

	switch req.Kind {
	case domain.RequestJoin:
		c.handleJoin(conn, req.RoomID)
	case domain.RequestLeave:
		c.handleLeave(conn, req.RoomID)
	case domain.RequestMonitoring:
		c.handleMonitoring(conn, req.Monitoring)
	case domain.RequestChat:
		c.handleChat(conn, req.Chat)
	case domain.RequestTyping:
		c.handleTyping(conn, domain.EventChatTyping, req.Typing)
	case domain.RequestStopTyping:
		c.handleTyping(conn, domain.EventChatStopTyping, req.Typing)
	case domain.RequestStatus:
		c.handleStatusRequest(conn, req.RoomID)
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownEvent, req.Kind)
	}
	return nil
}

func (c *SessionCoordinator) handleJoin(conn *domain.Connection, roomID string) {
	unlock := c.rooms.lock(roomID)
	defer unlock()

	profile := conn.Profile()
	res := c.membership.Join(roomID, conn.ID, profile.UserID)
	if !res.FirstForUser {
		if res.Joined {
			c.catchUp(conn, roomID, res.Roster)
		}
		return
	}
	peer, _ := c.presence.Update(domain.PresenceUpdate{
		RoomID:    roomID,
		UserID:    profile.UserID,
		UserName:  profile.DisplayName(),
		UserImage: profile.Image,
		Status:    domain.StatusFocused,
		Activity:  "Joined",
		When:      c.nowF(),
		Force:     true,
	})

	c.toRoom(roomID, domain.EventRoomUsersUpdated, rosterPayload(roomID, res.Roster))
	c.toRoom(roomID, domain.EventChatSystem, domain.SystemPayload{Message: profile.DisplayName() + " joined the call"})
	c.toRoom(roomID, domain.EventPeerStatusUpdate, peer.Payload())

	log.Info().Str("module", "usecase.coordinator").Str("room", roomID).Str("user", profile.UserID).Int("members", len(res.Roster)).Msg("joined")
}

// catchUp sends the roster and every peer's status to one more connection of
// a user who is already in the room, without announcing anything to the room.
func (c *SessionCoordinator) catchUp(conn *domain.Connection, roomID string, roster []string) {
	c.toConn(conn, domain.EventRoomUsersUpdated, rosterPayload(roomID, roster))
	for _, peer := range c.presence.Query(roomID, conn.UserID()) {
		c.toConn(conn, domain.EventPeerStatusUpdate, peer.Payload())
	}
}

func (c *SessionCoordinator) handleLeave(conn *domain.Connection, roomID string) {
	unlock := c.rooms.lock(roomID)
	defer unlock()
	c.leaveRoomLocked(conn.ID, conn.Profile(), roomID)
}

// leaveRoomLocked must run under the room's lock.
func (c *SessionCoordinator) leaveRoomLocked(connectionID string, profile domain.Profile, roomID string) {
	removed, userGone := c.membership.LeaveConnection(roomID, connectionID, profile.UserID)
	if !removed || !userGone {
		return
	}
	c.presence.MarkOffline(roomID, profile.UserID)

	c.toRoom(roomID, domain.EventUserLeft, domain.UserLeftPayload{UserID: profile.UserID, RoomID: roomID})
	c.toRoom(roomID, domain.EventPeerLeft, domain.PeerLeftPayload{UserID: profile.UserID})
	c.toRoom(roomID, domain.EventChatSystem, domain.SystemPayload{Message: profile.DisplayName() + " left the call"})
	c.toRoom(roomID, domain.EventRoomUsersUpdated, rosterPayload(roomID, c.membership.Roster(roomID)))

	log.Info().Str("module", "usecase.coordinator").Str("room", roomID).Str("user", profile.UserID).Msg("left")
}

func (c *SessionCoordinator) handleMonitoring(conn *domain.Connection, p domain.MonitoringPayload) {
	if p.UserID == "" {
		p.UserID = conn.UserID()
	}
	if p.UserName == "" || p.UserImage == "" {
		if profile, ok := c.registry.Profile(p.UserID); ok {
			if p.UserName == "" {
				p.UserName = profile.DisplayName()
			}
			if p.UserImage == "" {
				p.UserImage = profile.Image
			}
		}
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = c.nowF()
	}

	unlock := c.rooms.lock(p.RoomID)
	defer unlock()

	status, changes := domain.Classify(p.Kind)
	var peer domain.PeerStatus
	applied := false
	if changes {
		activity := p.Detail
		if activity == "" {
			activity = domain.DefaultActivity(p.Kind)
		}
		peer, applied = c.presence.Update(domain.PresenceUpdate{
			RoomID:    p.RoomID,
			UserID:    p.UserID,
			UserName:  p.UserName,
			UserImage: p.UserImage,
			Status:    status,
			Activity:  activity,
			When:      p.Timestamp,
		})
	}

	c.toRoom(p.RoomID, domain.EventMonitoringUpdate, p)
	if applied {
		c.toRoom(p.RoomID, domain.EventPeerStatusUpdate, peer.Payload())
	}
	c.persist(p.Event())
}

func (c *SessionCoordinator) handleChat(conn *domain.Connection, p domain.ChatPayload) {
	profile := conn.Profile()
	if p.UserID == "" {
		p.UserID = profile.UserID
	}
	if p.UserName == "" {
		p.UserName = profile.DisplayName()
	}
	if p.UserImage == "" {
		p.UserImage = profile.Image
	}
	if p.Role == "" {
		p.Role = profile.Role
	}
	if p.ID == "" {
		p.ID = domain.NewID()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = c.nowF()
	}

	unlock := c.rooms.lock(p.RoomID)
	defer unlock()
	c.toRoom(p.RoomID, domain.EventChatMessage, p)
}

func (c *SessionCoordinator) handleTyping(conn *domain.Connection, event string, p domain.TypingPayload) {
	if p.UserID == "" {
		p.UserID = conn.UserID()
	}
	unlock := c.rooms.lock(p.RoomID)
	defer unlock()

	if _, err := c.broadcaster.ToRoomExcept(p.RoomID, event, p, conn.UserID()); err != nil {
		log.Error().Str("module", "usecase.coordinator").Str("event", event).Err(err).Msg("broadcast failed")
	}
}

// handleStatusRequest answers with one peer:status_update per known peer so
// late joiners see everyone without waiting for the next event.
func (c *SessionCoordinator) handleStatusRequest(conn *domain.Connection, roomID string) {
	unlock := c.rooms.lock(roomID)
	defer unlock()

	userID := conn.UserID()
	for _, peer := range c.presence.Query(roomID, userID) {
		if _, err := c.broadcaster.ToUser(userID, domain.EventPeerStatusUpdate, peer.Payload()); err != nil {
			log.Error().Str("module", "usecase.coordinator").Err(err).Msg("status reply failed")
		}
	}
}

func (c *SessionCoordinator) toRoom(roomID, event string, payload any) {
	if _, err := c.broadcaster.ToRoom(roomID, event, payload); err != nil {
		log.Error().Str("module", "usecase.coordinator").Str("room", roomID).Str("event", event).Err(err).Msg("broadcast failed")
	}
}

func (c *SessionCoordinator) toConn(conn *domain.Connection, event string, payload any) {
	env, err := domain.NewEnvelope(event, payload)
	if err == nil {
		err = conn.Send(env)
	}
	if err != nil {
		log.Debug().Str("module", "usecase.coordinator").Str("conn", conn.ID).Str("event", event).Err(err).Msg("direct send failed")
	}
}

func (c *SessionCoordinator) broadcastOnlineUsers() {
	if _, err := c.broadcaster.ToAll(domain.EventOnlineUsers, c.registry.AllUserIDs()); err != nil {
		log.Error().Str("module", "usecase.coordinator").Err(err).Msg("online users broadcast failed")
	}
}

func rosterPayload(roomID string, roster []string) domain.RosterPayload {
	return domain.RosterPayload{RoomID: roomID, Count: len(roster), Users: roster}
}

// persist writes the event in the background. The broadcast has already
// happened and is not undone when the write fails.
func (c *SessionCoordinator) persist(event domain.MonitoringEvent) {
	if c.recorder == nil {
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		defer cancel()
		if _, err := c.recorder.CreateEvent(ctx, event); err != nil {
			log.Warn().Str("module", "usecase.coordinator").Str("room", event.RoomID).Str("user", event.UserID).Err(err).Msg("failed to persist monitoring event")
		}
	}()
}

// Wait blocks until background persistence writes have finished.
func (c *SessionCoordinator) Wait() {
	c.pending.Wait()
}

func (c *SessionCoordinator) Snapshot(roomID string) RoomSnapshot {
	return RoomSnapshot{
		RoomID: roomID,
		Roster: c.membership.Roster(roomID),
		Peers:  c.presence.Query(roomID, ""),
		Active: c.presence.ActiveCount(roomID),
	}
}

func (c *SessionCoordinator) Stats() Stats {
	conns, users := c.registry.Count()
	return Stats{
		Connections: conns,
		Users:       users,
		Rooms:       len(c.membership.Rooms()),
		Accepted:    c.accepted.Load(),
		Rejected:    c.rejected.Load(),
		Uptime:      time.Since(c.startTime).String(),
	}
}
