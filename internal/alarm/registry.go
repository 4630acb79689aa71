// internal/alarm/registry.go
package alarm

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultCapacity matches the clock's five alarm slots.
const DefaultCapacity = 5

// MaxLabelLen is the longest label accepted, in bytes.
const MaxLabelLen = 99

var (
	ErrCapacityExceeded = errors.New("max alarm reached")
	ErrInvalidSlot      = errors.New("invalid alarm slot")
	ErrInvalidTime      = errors.New("invalid alarm time")
	ErrInvalidLabel     = errors.New("invalid alarm label")
)

type State int

const (
	Free State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "ACTIVE"
	}
	return "FREE"
}

// Entry is a copy of one slot. Free entries carry no time or label.
type Entry struct {
	Slot  int
	State State
	Time  string
	Label string
}

// Registry is a fixed set of alarm slots. Every read and write holds mu,
// including the matcher's per-tick scan.
type Registry struct {
	mu    sync.Mutex
	slots []Entry
}

func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	slots := make([]Entry, capacity)
	for i := range slots {
		slots[i] = Entry{Slot: i, State: Free}
	}
	return &Registry{slots: slots}
}

func (r *Registry) Capacity() int {
	return len(r.slots)
}

// Create claims the lowest free slot. A full registry is reported before
// the time or label is validated.
func (r *Registry) Create(clock, label string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := -1
	for i := range r.slots {
		if r.slots[i].State == Free {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, ErrCapacityExceeded
	}
	if err := ValidateTime(clock); err != nil {
		return -1, err
	}
	if len(label) > MaxLabelLen {
		return -1, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidLabel, len(label), MaxLabelLen)
	}
	r.slots[slot] = Entry{Slot: slot, State: Active, Time: clock, Label: label}
	return slot, nil
}

// Delete tombstones an active slot.
func (r *Registry) Delete(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 || slot >= len(r.slots) {
		return fmt.Errorf("%w: %d out of range [0, %d)", ErrInvalidSlot, slot, len(r.slots))
	}
	if r.slots[slot].State != Active {
		return fmt.Errorf("%w: %d is already free", ErrInvalidSlot, slot)
	}
	r.slots[slot] = Entry{Slot: slot, State: Free}
	return nil
}

// List returns every slot in index order, free ones included.
func (r *Registry) List() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.slots))
	copy(out, r.slots)
	return out
}

func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.slots {
		if e.State == Active {
			n++
		}
	}
	return n
}

// Due returns the active entries whose time key equals clock.
func (r *Registry) Due(clock string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Entry
	for _, e := range r.slots {
		if e.State == Active && matchKey(e.Time) == clock {
			due = append(due, e)
		}
	}
	return due
}

// ValidateTime accepts "HH:MM" or "HH:MM:SS".
func ValidateTime(clock string) error {
	if len(clock) != 5 && len(clock) != 8 {
		return fmt.Errorf("%w: %q", ErrInvalidTime, clock)
	}
	limits := []int{24, 60, 60}
	for i := 0; i*3 < len(clock); i++ {
		field := clock[i*3 : i*3+2]
		if i*3+2 < len(clock) && clock[i*3+2] != ':' {
			return fmt.Errorf("%w: %q", ErrInvalidTime, clock)
		}
		if field[0] < '0' || field[0] > '9' || field[1] < '0' || field[1] > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidTime, clock)
		}
		if int(field[0]-'0')*10+int(field[1]-'0') >= limits[i] {
			return fmt.Errorf("%w: %q", ErrInvalidTime, clock)
		}
	}
	return nil
}

// matchKey expands "HH:MM" to the tick at the top of that minute.
func matchKey(clock string) string {
	if len(clock) == 5 {
		return clock + ":00"
	}
	return clock
}
