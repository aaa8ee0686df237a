// Package session tracks live bidirectional transport sessions in a
// fixed-size slot table. Slots mirror the transport's own connection slots
// 1:1 and are recycled; session identifiers are process-unique and never
// reused.
package session

import (
	"errors"
	"sync"
	"time"
)

// DefaultCapacity matches the connection slot count of the firmware's
// WebSocket server.
const DefaultCapacity = 8

// ErrCapacity is returned by Register when every slot is occupied. New
// connections are rejected rather than evicting an existing session.
var ErrCapacity = errors.New("session registry full")

type slot struct {
	id          uint64
	peer        string
	connectedAt time.Time
	active      bool
}

// Handle identifies a registered session. It is valid until Unregister.
type Handle struct {
	slot int
	id   uint64
}

// ID returns the process-unique session identifier.
func (h Handle) ID() uint64 { return h.id }

// Slot returns the slot index occupied by the session.
func (h Handle) Slot() int { return h.slot }

// Descriptor describes an active session for status rendering.
type Descriptor struct {
	SessionID uint64 `json:"session_id"`
	Slot      int    `json:"slot"`
	Peer      string `json:"peer"`
	Uptime    int64  `json:"uptime"`
}

// Registry is the fixed-size session table. It is mutex-guarded because
// transport goroutines register and unregister concurrently with the
// control loop reading counts.
type Registry struct {
	mu      sync.Mutex
	slots   []slot
	counter uint64
}

// NewRegistry creates a registry with the given slot capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		slots: make([]slot, capacity),
	}
}

// Register claims the first free slot for the peer and assigns the next
// session identifier. Returns ErrCapacity when the table is full.
func (r *Registry) Register(peer string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].active {
			continue
		}
		r.counter++
		r.slots[i] = slot{
			id:          r.counter,
			peer:        peer,
			connectedAt: time.Now(),
			active:      true,
		}
		return Handle{slot: i, id: r.counter}, nil
	}
	return Handle{}, ErrCapacity
}

// Unregister releases the handle's slot. The table is never compacted, so
// slot indices stay stable for the lifetime of a connection. Stale handles
// (slot since reused) are ignored.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.slot < 0 || h.slot >= len(r.slots) {
		return
	}
	if r.slots[h.slot].id != h.id {
		return
	}
	r.slots[h.slot].active = false
}

// ActiveCount returns the number of occupied slots.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i := range r.slots {
		if r.slots[i].active {
			count++
		}
	}
	return count
}

// ForEachActive calls fn for every active session in slot order.
func (r *Registry) ForEachActive(fn func(Descriptor)) {
	for _, d := range r.Describe() {
		fn(d)
	}
}

// Describe returns descriptors for every active session in slot order.
func (r *Registry) Describe() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	descriptors := make([]Descriptor, 0, len(r.slots))
	for i := range r.slots {
		if !r.slots[i].active {
			continue
		}
		descriptors = append(descriptors, Descriptor{
			SessionID: r.slots[i].id,
			Slot:      i,
			Peer:      r.slots[i].peer,
			Uptime:    int64(time.Since(r.slots[i].connectedAt).Seconds()),
		})
	}
	return descriptors
}

// Capacity returns the fixed slot count.
func (r *Registry) Capacity() int {
	return len(r.slots)
}
