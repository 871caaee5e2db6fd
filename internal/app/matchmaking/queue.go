// Package matchmaking provides the waiting queue, the first-fit
// compatibility matcher and the eviction scheduler.
package matchmaking

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/developer5167/chatspotWebservices/internal/domain/user"
)

var (
	// ErrAlreadyQueued is returned when an ID already has a waiting entry.
	ErrAlreadyQueued = errors.New("already in the waiting queue")
)

// Kind tags a waiting entry as a real user or a synthetic one.
type Kind int

const (
	KindHuman Kind = iota
	KindVirtual
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindHuman:
		return "human"
	case KindVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// Entry is a single waiting entry in the matchmaking queue.
type Entry struct {
	ID           string
	Gender       string
	InterestedIn string
	Kind         Kind
	ProfileID    string // Set for virtual entries only
	EnqueuedAt   time.Time
}

// Queue is the insertion-ordered waiting queue. At most one entry per ID.
type Queue struct {
	mu      sync.RWMutex
	entries []*Entry
	index   map[string]*Entry
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		entries: make([]*Entry, 0),
		index:   make(map[string]*Entry),
	}
}

// Add appends an entry. Returns ErrAlreadyQueued if the ID is present.
func (q *Queue) Add(e *Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[e.ID]; ok {
		return ErrAlreadyQueued
	}
	q.entries = append(q.entries, e)
	q.index[e.ID] = e
	return nil
}

// Remove deletes the entry with the given ID. Idempotent; reports whether
// an entry was actually removed.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[id]; !ok {
		return false
	}
	delete(q.index, id)
	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the entry with the given ID.
func (q *Queue) Get(id string) (*Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	e, ok := q.index[id]
	return e, ok
}

// Contains reports whether an entry with the given ID is queued.
func (q *Queue) Contains(id string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	_, ok := q.index[id]
	return ok
}

// FindMatch scans human entries in insertion order and returns the first
// one mutually compatible with the candidate. First-fit: the oldest
// compatible entry wins. Virtual entries never participate. A positive
// maxScan bounds how many human entries are examined; 0 scans all.
func (q *Queue) FindMatch(gender, interestedIn string, maxScan int) (*Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	scanned := 0
	for _, e := range q.entries {
		if e.Kind != KindHuman {
			continue
		}
		if maxScan > 0 && scanned >= maxScan {
			break
		}
		scanned++
		if user.Compatible(gender, interestedIn, e.Gender, e.InterestedIn) {
			return e, true
		}
	}
	return nil, false
}

// Len returns the total number of waiting entries, virtual padding included.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// HumanCount returns the number of human waiting entries.
func (q *Queue) HumanCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, e := range q.entries {
		if e.Kind == KindHuman {
			n++
		}
	}
	return n
}

// VirtualIDs returns the IDs of all virtual entries in insertion order.
func (q *Queue) VirtualIDs() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var ids []string
	for _, e := range q.entries {
		if e.Kind == KindVirtual {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Virtuals returns the virtual entries in insertion order.
func (q *Queue) Virtuals() []*Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []*Entry
	for _, e := range q.entries {
		if e.Kind == KindVirtual {
			out = append(out, e)
		}
	}
	return out
}

// VirtualCount returns the number of virtual entries.
func (q *Queue) VirtualCount() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, e := range q.entries {
		if e.Kind == KindVirtual {
			n++
		}
	}
	return n
}

// RemoveVirtualByProfile removes the virtual entry backed by the given
// profile, if one exists.
func (q *Queue) RemoveVirtualByProfile(profileID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Kind == KindVirtual && e.ProfileID == profileID {
			delete(q.index, e.ID)
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}
