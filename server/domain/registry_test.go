package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*ConnectionRegistry, *RoomMembership) {
	membership := NewRoomMembership()
	return NewConnectionRegistry(membership), membership
}

func TestRegistryRegister(t *testing.T) {
	t.Run("multiple connections for one user", func(t *testing.T) {
		registry, _ := newTestRegistry()
		c1 := NewConnection("c1", "test", 0)
		c2 := NewConnection("c2", "test", 0)

		require.NoError(t, registry.Register(c1, NewProfile("u1", "Ann", "", RoleStudent)))
		require.NoError(t, registry.Register(c2, NewProfile("u1", "", "ann.png", RoleStudent)))

		assert.Equal(t, []string{"c1", "c2"}, registry.Lookup("u1"))
		assert.Equal(t, []string{"u1"}, registry.AllUserIDs())

		profile, ok := registry.Profile("u1")
		require.True(t, ok)
		assert.Equal(t, "Ann", profile.Name)
		assert.Equal(t, "ann.png", profile.Image)
	})

	t.Run("re-register is idempotent", func(t *testing.T) {
		registry, _ := newTestRegistry()
		c1 := NewConnection("c1", "test", 0)

		require.NoError(t, registry.Register(c1, NewProfile("u1", "Ann", "", RoleStudent)))
		require.NoError(t, registry.Register(c1, NewProfile("u1", "Ann", "", RoleStudent)))

		assert.Equal(t, []string{"c1"}, registry.Lookup("u1"))
		conns, users := registry.Count()
		assert.Equal(t, 1, conns)
		assert.Equal(t, 1, users)
	})

	t.Run("re-register under another user moves the connection", func(t *testing.T) {
		registry, _ := newTestRegistry()
		c1 := NewConnection("c1", "test", 0)

		require.NoError(t, registry.Register(c1, NewProfile("u1", "", "", RoleStudent)))
		require.NoError(t, registry.Register(c1, NewProfile("u2", "", "", RoleStudent)))

		assert.Empty(t, registry.Lookup("u1"))
		assert.Equal(t, []string{"c1"}, registry.Lookup("u2"))
		assert.Equal(t, []string{"u2"}, registry.AllUserIDs())
	})

	t.Run("missing identity", func(t *testing.T) {
		registry, _ := newTestRegistry()
		err := registry.Register(NewConnection("c1", "test", 0), Profile{})
		assert.ErrorIs(t, err, ErrNotIdentified)
	})

	t.Run("closed connection", func(t *testing.T) {
		registry, _ := newTestRegistry()
		conn := NewConnection("c1", "test", 0)
		conn.Close()
		err := registry.Register(conn, NewProfile("u1", "", "", RoleStudent))
		assert.ErrorIs(t, err, ErrConnectionClosed)
	})
}

func TestRegistryUnregister(t *testing.T) {
	registry, membership := newTestRegistry()
	c1 := NewConnection("c1", "test", 0)
	c2 := NewConnection("c2", "test", 0)
	require.NoError(t, registry.Register(c1, NewProfile("u1", "", "", RoleStudent)))
	require.NoError(t, registry.Register(c2, NewProfile("u1", "", "", RoleStudent)))
	membership.Join("r1", "c1", "u1")
	membership.Join("r2", "c1", "u1")

	res, ok := registry.Unregister("c1")
	require.True(t, ok)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, []string{"r1", "r2"}, res.Rooms)
	assert.False(t, res.LastConnection)
	assert.Equal(t, []string{"c2"}, registry.Lookup("u1"))

	res, ok = registry.Unregister("c2")
	require.True(t, ok)
	assert.True(t, res.LastConnection)
	assert.Empty(t, res.Rooms)
	assert.False(t, registry.IsOnline("u1"))
	assert.Empty(t, registry.AllUserIDs())

	_, ok = registry.Unregister("c2")
	assert.False(t, ok)
}

func TestRegistryLookupUnknownUser(t *testing.T) {
	registry, _ := newTestRegistry()
	ids := registry.Lookup("nobody")
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry, _ := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			conn := NewConnection(id, "test", 0)
			_ = registry.Register(conn, NewProfile(fmt.Sprintf("u%d", i%5), "", "", RoleStudent))
			_ = registry.AllUserIDs()
			registry.Unregister(id)
		}(i)
	}
	wg.Wait()

	conns, users := registry.Count()
	assert.Zero(t, conns)
	assert.Zero(t, users)
}
