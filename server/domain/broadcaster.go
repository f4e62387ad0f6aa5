package domain

import (
	"github.com/rs/zerolog/log"
)

// Broadcaster resolves targets through the registry and membership and
// enqueues one shared envelope per target connection. Sends never block;
// connections that closed in the meantime are skipped.
type Broadcaster struct {
	registry   *ConnectionRegistry
	membership *RoomMembership
}

func NewBroadcaster(registry *ConnectionRegistry, membership *RoomMembership) *Broadcaster {
	return &Broadcaster{
		registry:   registry,
		membership: membership,
	}
}

// ToRoom delivers to every connection of every user in the room's roster.
func (b *Broadcaster) ToRoom(roomID, event string, payload any) (int, error) {
	return b.ToRoomExcept(roomID, event, payload, "")
}

func (b *Broadcaster) ToRoomExcept(roomID, event string, payload any, excludedUserID string) (int, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return 0, err
	}
	var targets []*Connection
	for _, userID := range b.membership.Roster(roomID) {
		if userID == excludedUserID {
			continue
		}
		targets = append(targets, b.registry.Connections(userID)...)
	}
	return b.deliver(env, targets, roomID), nil
}

func (b *Broadcaster) ToUser(userID, event string, payload any) (int, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return 0, err
	}
	return b.deliver(env, b.registry.Connections(userID), ""), nil
}

func (b *Broadcaster) ToAll(event string, payload any) (int, error) {
	env, err := NewEnvelope(event, payload)
	if err != nil {
		return 0, err
	}
	return b.deliver(env, b.registry.All(), ""), nil
}

func (b *Broadcaster) deliver(env Envelope, targets []*Connection, roomID string) int {
	sent := 0
	seen := make(map[string]struct{}, len(targets))
	for _, conn := range targets {
		if _, dup := seen[conn.ID]; dup {
			continue
		}
		seen[conn.ID] = struct{}{}
		if err := conn.Send(env); err != nil {
			continue
		}
		sent++
	}
	log.Debug().Str("module", "core.broadcaster").Str("event", env.Event).Str("room", roomID).Int("targets", len(targets)).Int("sent_to", sent).Msg("broadcast result")
	return sent
}
