package livefeed

import (
	"sync"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

// DefaultClientBuffer is the number of undelivered events a client may hold
// before further events are dropped for it.
const DefaultClientBuffer = 16

// Scope selects the events a live feed subscriber receives. A zero FloorPlanID
// subscribes to every floor plan of the tenant.
type Scope struct {
	TenantID    uuid.UUID
	FloorPlanID uuid.UUID
}

// CompanyWide reports whether the scope covers the whole tenant.
func (s Scope) CompanyWide() bool {
	return s.FloorPlanID == uuid.Nil
}

// Matches reports whether event belongs to the scope.
func (s Scope) Matches(event domain.LiveEvent) bool {
	if event.TenantID != s.TenantID {
		return false
	}
	return s.CompanyWide() || event.FloorPlanID == s.FloorPlanID
}

// Client is one live feed connection. The transport reads Messages until Done
// is closed.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	scope  Scope

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a client holding up to buffer pending messages.
func NewClient(userID uuid.UUID, scope Scope, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:     uuid.New(),
		UserID: userID,
		scope:  scope,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) Scope() Scope {
	return c.scope
}

// Messages yields encoded events. It is never closed; watch Done instead.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Done is closed once the client has been evicted from the registry.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// deliver hands msg to the client without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) deliver(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
