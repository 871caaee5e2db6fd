// Package chat tracks the logical rooms used for message and signaling
// relay between paired connections.
package chat

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/app/registry"
)

// member is one connection joined to a room.
type member struct {
	connID string
	sink   registry.Sink
}

// Rooms maps chat ids to their joined connections. A room holds at most
// two human members; bot chats have a single one.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string][]member
}

// NewRooms creates an empty room table.
func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string][]member),
	}
}

// Join adds a connection to the room, creating it on first join.
// Re-joining with the same connection id replaces the previous sink, so
// a reconnect does not leave a dead member behind.
func (r *Rooms) Join(chatID, connID string, sink registry.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[chatID]
	for i, m := range members {
		if m.connID == connID {
			members[i].sink = sink
			return
		}
	}
	r.rooms[chatID] = append(members, member{connID: connID, sink: sink})
	zlog.Debug().Msgf("joined room: chat=%s conn=%s members=%d", chatID, connID, len(r.rooms[chatID]))
}

// Leave removes a connection from the room. The room is dropped when the
// last member leaves. Idempotent.
func (r *Rooms) Leave(chatID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[chatID]
	for i, m := range members {
		if m.connID == connID {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(r.rooms, chatID)
		return
	}
	r.rooms[chatID] = members
}

// LeaveAll removes the connection from every room it joined.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chatID, members := range r.rooms {
		for i, m := range members {
			if m.connID == connID {
				members = append(members[:i], members[i+1:]...)
				break
			}
		}
		if len(members) == 0 {
			delete(r.rooms, chatID)
		} else {
			r.rooms[chatID] = members
		}
	}
}

// Close removes the room and all members.
func (r *Rooms) Close(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, chatID)
}

// Relay sends the event to every member of the room except the sender.
// Delivery is best-effort; a dead sink does not block the others.
func (r *Rooms) Relay(chatID, senderConnID, event string, payload any) {
	r.mu.RLock()
	members := make([]member, len(r.rooms[chatID]))
	copy(members, r.rooms[chatID])
	r.mu.RUnlock()

	for _, m := range members {
		if m.connID == senderConnID {
			continue
		}
		if err := m.sink.Send(event, payload); err != nil {
			zlog.Warn().Msgf("relay failed: chat=%s conn=%s event=%s error=%v", chatID, m.connID, event, err)
		}
	}
}

// Send delivers the event to every member of the room.
func (r *Rooms) Send(chatID, event string, payload any) {
	r.Relay(chatID, "", event, payload)
}

// Contains reports whether the connection is a member of the room.
func (r *Rooms) Contains(chatID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.rooms[chatID] {
		if m.connID == connID {
			return true
		}
	}
	return false
}

// Count returns the number of live rooms.
func (r *Rooms) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
