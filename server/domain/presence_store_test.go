package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceStoreUpdate(t *testing.T) {
	s := NewPresenceStore()
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	got, applied := s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", UserName: "Ann", Status: StatusFocused, Activity: "Joined", When: t0})
	require.True(t, applied)
	assert.Equal(t, StatusFocused, got.Status)
	assert.Equal(t, "Ann", got.UserName)

	got, applied = s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusDistracted, Activity: "Switched Tab", When: t0.Add(time.Second)})
	require.True(t, applied)
	assert.Equal(t, StatusDistracted, got.Status)
	assert.Equal(t, "Switched Tab", got.LastActivity)
	assert.Equal(t, "Ann", got.UserName, "name survives updates without one")

	t.Run("stale update is ignored", func(t *testing.T) {
		got, applied := s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused, Activity: "late", When: t0})
		assert.False(t, applied)
		assert.Equal(t, StatusDistracted, got.Status)
	})

	t.Run("zero time uses the clock", func(t *testing.T) {
		s := NewPresenceStore()
		s.nowF = func() time.Time { return t0 }
		got, _ := s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused})
		assert.Equal(t, t0, got.UpdatedAt)
	})
}

func TestPresenceStoreMarkOffline(t *testing.T) {
	s := NewPresenceStore()
	s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusDistracted, Activity: "Switched Tab"})
	s.Update(PresenceUpdate{RoomID: "r1", UserID: "u2", Status: StatusFocused, Activity: "Joined"})

	got, ok := s.MarkOffline("r1", "u1")
	require.True(t, ok)
	assert.Equal(t, StatusOffline, got.Status)
	assert.Equal(t, "Switched Tab", got.LastActivity)

	_, ok = s.MarkOffline("r1", "ghost")
	assert.False(t, ok)

	assert.Equal(t, 1, s.ActiveCount("r1"))
	stored, ok := s.Get("r1", "u1")
	require.True(t, ok)
	assert.False(t, stored.IsActive())
}

func TestPresenceStoreQuery(t *testing.T) {
	s := NewPresenceStore()
	for _, id := range []string{"u3", "u1", "u2"} {
		s.Update(PresenceUpdate{RoomID: "r1", UserID: id, Status: StatusFocused})
	}
	s.Update(PresenceUpdate{RoomID: "r2", UserID: "u9", Status: StatusFocused})

	peers := s.Query("r1", "u2")
	require.Len(t, peers, 2)
	assert.Equal(t, "u1", peers[0].UserID)
	assert.Equal(t, "u3", peers[1].UserID)

	assert.Empty(t, s.Query("unknown", ""))
}

func TestPresenceStoreForcedUpdate(t *testing.T) {
	s := NewPresenceStore()
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusDistracted, When: t0.Add(time.Hour)})
	s.MarkOffline("r1", "u1")

	got, applied := s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused, Activity: "Joined", When: t0, Force: true})
	assert.True(t, applied)
	assert.Equal(t, StatusFocused, got.Status)
	assert.Equal(t, "Joined", got.LastActivity)
	assert.False(t, got.UpdatedAt.Before(t0.Add(time.Hour)))
}

func TestPresenceStoreServerTimeIsNotABaseline(t *testing.T) {
	s := NewPresenceStore()
	serverNow := time.Date(2025, 1, 1, 10, 0, 10, 0, time.UTC)
	clientNow := serverNow.Add(-2 * time.Second)

	s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused, Activity: "Joined", When: serverNow, Force: true})

	got, applied := s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusDistracted, Activity: "Switched Tab", When: clientNow})
	require.True(t, applied)
	assert.Equal(t, StatusDistracted, got.Status)
	assert.Equal(t, clientNow, got.UpdatedAt)

	s.nowF = func() time.Time { return serverNow.Add(time.Minute) }
	s.MarkOffline("r1", "u1")
	got, applied = s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused, Activity: "Regained Focus", When: clientNow.Add(time.Second)})
	require.True(t, applied)
	assert.Equal(t, StatusFocused, got.Status)

	_, applied = s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusDistracted, When: clientNow})
	assert.False(t, applied, "older reported time is still stale")
}

func TestPresenceStoreRoomsOf(t *testing.T) {
	s := NewPresenceStore()
	s.Update(PresenceUpdate{RoomID: "r2", UserID: "u1", Status: StatusFocused})
	s.Update(PresenceUpdate{RoomID: "r1", UserID: "u1", Status: StatusFocused})
	s.Update(PresenceUpdate{RoomID: "r3", UserID: "u2", Status: StatusFocused})

	assert.Equal(t, []string{"r1", "r2"}, s.RoomsOf("u1"))
	assert.Empty(t, s.RoomsOf("nobody"))
}
