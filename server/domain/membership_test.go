package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMembershipJoinLeave(t *testing.T) {
	m := NewRoomMembership()

	res := m.Join("r1", "c1", "u1")
	assert.True(t, res.Joined)
	assert.True(t, res.FirstForUser)
	assert.Equal(t, []string{"u1"}, res.Roster)

	res = m.Join("r1", "c1", "u1")
	assert.False(t, res.Joined)
	assert.False(t, res.FirstForUser)

	res = m.Join("r1", "c2", "u2")
	assert.Equal(t, []string{"u1", "u2"}, res.Roster)

	m.Leave("r1", "u1")
	assert.Equal(t, []string{"u2"}, m.Roster("r1"))
	assert.Empty(t, m.RoomsFor("c1"))

	m.Leave("r1", "u1")
	assert.Equal(t, []string{"u2"}, m.Roster("r1"))
}

func TestMembershipLeaveConnection(t *testing.T) {
	m := NewRoomMembership()
	m.Join("r1", "c1", "u1")
	res := m.Join("r1", "c2", "u1")
	assert.True(t, res.Joined)
	assert.False(t, res.FirstForUser)

	removed, gone := m.LeaveConnection("r1", "c1", "u1")
	assert.True(t, removed)
	assert.False(t, gone)
	assert.True(t, m.Contains("r1", "u1"))

	removed, gone = m.LeaveConnection("r1", "c1", "u1")
	assert.False(t, removed)
	assert.False(t, gone)

	removed, gone = m.LeaveConnection("r1", "c2", "u1")
	assert.True(t, removed)
	assert.True(t, gone)
	assert.False(t, m.Contains("r1", "u1"))
	assert.Empty(t, m.Rooms())
}

func TestMembershipRoomsFor(t *testing.T) {
	m := NewRoomMembership()
	m.Join("r2", "c1", "u1")
	m.Join("r1", "c1", "u1")
	m.Join("r3", "c2", "u1")

	assert.Equal(t, []string{"r1", "r2"}, m.RoomsFor("c1"))
	assert.Equal(t, []string{"r3"}, m.RoomsFor("c2"))
	assert.Empty(t, m.RoomsFor("unknown"))
}

// Every roster entry must have a reverse index entry at any observation point.
func TestMembershipIndexesStayConsistent(t *testing.T) {
	m := NewRoomMembership()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	violations := make(chan string, 1)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			m.mu.RLock()
			for roomID, members := range m.rooms {
				for _, conns := range members {
					for connID := range conns {
						if _, ok := m.connRooms[connID][roomID]; !ok {
							select {
							case violations <- connID + "@" + roomID:
							default:
							}
						}
					}
				}
			}
			m.mu.RUnlock()
		}
	}()

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", i)
			userID := fmt.Sprintf("u%d", i%4)
			for j := 0; j < 50; j++ {
				m.Join("r1", connID, userID)
				m.LeaveConnection("r1", connID, userID)
			}
		}(i)
	}
	wg.Wait()
	close(stop)

	select {
	case v := <-violations:
		t.Fatalf("roster entry without reverse index: %s", v)
	default:
	}
	assert.Empty(t, m.Roster("r1"))
}
