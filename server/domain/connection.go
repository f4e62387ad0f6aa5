package domain

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const DefaultQueueSize = 256

type ConnectionState int

const (
	StateUnidentified ConnectionState = iota
	StateIdentified
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateUnidentified:
		return "unidentified"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection is one live transport link. The transport drains Outbound and
// writes each envelope to the wire; everything else only ever calls Send.
type Connection struct {
	ID          string
	Remote      string
	ConnectedAt time.Time

	mu       sync.Mutex
	profile  Profile
	state    ConnectionState
	outbound chan Envelope
	dropped  int
}

// NewID returns a lexically sortable unique id.
func NewID() string {
	return ulid.Make().String()
}

func NewConnection(id, remote string, queueSize int) *Connection {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Connection{
		ID:          id,
		Remote:      remote,
		ConnectedAt: time.Now(),
		state:       StateUnidentified,
		outbound:    make(chan Envelope, queueSize),
	}
}

func (c *Connection) Identify(profile Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.profile = profile
	c.state = StateIdentified
}

func (c *Connection) Profile() Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

func (c *Connection) UserID() string {
	return c.Profile().UserID
}

func (c *Connection) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) Outbound() <-chan Envelope {
	return c.outbound
}

// Send enqueues env without blocking. When the queue is full the oldest
// pending envelope is discarded to make room.
func (c *Connection) Send(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrConnectionClosed
	}
	for {
		select {
		case c.outbound <- env:
			return nil
		default:
		}
		select {
		case <-c.outbound:
			c.dropped++
		default:
		}
	}
}

// Close is idempotent. Envelopes already queued stay readable from Outbound.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	close(c.outbound)
}

func (c *Connection) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Connection) String() string {
	p := c.Profile()
	if p.UserID == "" {
		return c.ID + "(" + c.State().String() + ")"
	}
	return p.UserID + "@" + c.ID + "(" + c.State().String() + ")"
}
