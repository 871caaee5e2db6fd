// Package registry manages connections and their identified user sessions
// with thread-safe access.
package registry

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/developer5167/chatspotWebservices/internal/domain/user"
)

var ErrInvalidConnection = errors.New("invalid connection")

// Sink delivers outbound events to one client. Implementations must be safe
// for concurrent use and must not block the caller.
type Sink interface {
	Send(event string, payload any) error
}

// Connection binds a transport sink to an optional identified user entry.
type Connection struct {
	ID   string
	Sink Sink

	mu    sync.Mutex
	entry *user.Entry
}

// Entry returns the identified user entry, or nil before identification.
func (c *Connection) Entry() *user.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}

// UserID returns the identified user ID, or "" before identification.
func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return ""
	}
	return c.entry.ID
}

// SetState updates the session state of the identified entry, if any.
func (c *Connection) SetState(s user.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry != nil {
		c.entry.State = s
	}
}

// Registry owns all connections and the user-ID index into them.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]string // user ID -> connection ID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns:  make(map[string]*Connection),
		byUser: make(map[string]string),
	}
}

// Register adds a new connection and returns it.
func (r *Registry) Register(sink Sink) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Connection{
		ID:   uuid.New().String(),
		Sink: sink,
	}
	r.conns[c.ID] = c
	return c
}

// Identify binds a user entry to a connection. If the user ID was bound to
// another connection, the binding moves to the new one (reconnect).
func (r *Registry) Identify(connID string, entry *user.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return ErrInvalidConnection
	}

	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	r.byUser[entry.ID] = connID
	return nil
}

// Get returns a connection by its ID.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	return c, ok
}

// GetByUser returns the connection currently bound to a user ID.
func (r *Registry) GetByUser(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	c, ok := r.conns[connID]
	return c, ok
}

// Unregister removes a connection and returns its identified entry, if any,
// so the caller can clean up queue and session state. Idempotent.
func (r *Registry) Unregister(connID string) *user.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil
	}
	delete(r.conns, connID)

	c.mu.Lock()
	entry := c.entry
	c.mu.Unlock()

	if entry != nil {
		entry.State = user.StateDisconnected
		if r.byUser[entry.ID] == connID {
			delete(r.byUser, entry.ID)
		}
	}
	return entry
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// IdentifiedCount returns the number of connections with a bound user.
func (r *Registry) IdentifiedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

// Broadcast sends an event to every connection. Sends go through the sink,
// which must not block; a failed send only affects that connection.
func (r *Registry) Broadcast(event string, payload any) {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		// Errors are ignored; a dead sink is cleaned up on disconnect.
		_ = c.Sink.Send(event, payload)
	}
}
