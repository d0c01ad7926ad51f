package sequencer

import (
	"fmt"
	"sync"
)

// Mode is how a channel is currently used
type Mode int

const (
	Free Mode = iota
	EqualTempered
	Microtonal
)

func (m Mode) String() string {
	switch m {
	case Free:
		return "free"
	case EqualTempered:
		return "equal-tempered"
	case Microtonal:
		return "microtonal"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Slot is the bookkeeping for one logical channel.
//
// Refs == 0 exactly when Mode == Free. A Microtonal slot has exactly one
// reference since the bent note owns the channel's bend register; any number
// of EqualTempered notes may share a slot.
type Slot struct {
	Refs int
	Mode Mode
}

// Allocator hands out logical channels to sounding notes. All reads and
// writes of the channel table go through it.
type Allocator struct {
	mu    sync.Mutex
	slots []Slot
}

// NewAllocator creates a table of channels free slots.
func NewAllocator(channels int) *Allocator {
	return &Allocator{slots: make([]Slot, channels)}
}

// Len returns the number of logical channels
func (a *Allocator) Len() int {
	return len(a.slots)
}

// AcquireMicrotonal claims req for a bent note, or the lowest free channel
// if req is in use.
func (a *Allocator) AcquireMicrotonal(req int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(req); err != nil {
		return 0, err
	}
	ch := req
	if a.slots[ch].Refs != 0 {
		ch = a.scan(func(s Slot) bool { return s.Refs == 0 })
		if ch < 0 {
			return 0, fmt.Errorf("%w for microtonal note (requested %d)", ErrNoFreeChannel, req)
		}
	}
	a.slots[ch] = Slot{Refs: 1, Mode: Microtonal}
	return ch, nil
}

// AcquireEqualTempered adds a reference to req if it is free or shared by
// equal-tempered notes; otherwise to the lowest channel that is.
func (a *Allocator) AcquireEqualTempered(req int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(req); err != nil {
		return 0, err
	}
	ch := req
	if !sharable(a.slots[ch]) {
		ch = a.scan(sharable)
		if ch < 0 {
			return 0, fmt.Errorf("%w for equal-tempered note (requested %d)", ErrNoFreeChannel, req)
		}
	}
	a.slots[ch].Refs++
	a.slots[ch].Mode = EqualTempered
	return ch, nil
}

// Release drops one reference to ch. A microtonal release must leave the
// channel free; anything else is a ChannelInvariantViolation, as is
// releasing a channel nobody holds.
func (a *Allocator) Release(ch int, microtonal bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(ch); err != nil {
		return err
	}
	s := a.slots[ch]
	switch {
	case s.Refs == 0:
		return &ChannelInvariantViolation{Channel: ch, Slot: s, Reason: "release of a free channel"}
	case microtonal && s.Mode != Microtonal:
		return &ChannelInvariantViolation{Channel: ch, Slot: s, Reason: "microtonal release of a non-microtonal channel"}
	case !microtonal && s.Mode != EqualTempered:
		return &ChannelInvariantViolation{Channel: ch, Slot: s, Reason: "equal-tempered release of a non-equal-tempered channel"}
	}

	s.Refs--
	if microtonal && s.Refs != 0 {
		a.slots[ch] = s
		return &ChannelInvariantViolation{Channel: ch, Slot: s, Reason: "microtonal release left references behind"}
	}
	if s.Refs == 0 {
		s.Mode = Free
	}
	a.slots[ch] = s
	return nil
}

// Reset frees every channel. Only valid after a panic has silenced the
// devices.
func (a *Allocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.slots {
		a.slots[i] = Slot{}
	}
}

// Slot returns the state of ch.
func (a *Allocator) Slot(ch int) Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ch < 0 || ch >= len(a.slots) {
		return Slot{}
	}
	return a.slots[ch]
}

// Snapshot returns a copy of the whole table.
func (a *Allocator) Snapshot() []Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Slot, len(a.slots))
	copy(out, a.slots)
	return out
}

// InUse counts channels that are not free.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, s := range a.slots {
		if s.Mode != Free {
			n++
		}
	}
	return n
}

func (a *Allocator) check(ch int) error {
	if ch < 0 || ch >= len(a.slots) {
		return fmt.Errorf("%w: %d (have %d)", ErrChannelRange, ch, len(a.slots))
	}
	return nil
}

// scan returns the lowest channel satisfying ok, or -1.
func (a *Allocator) scan(ok func(Slot) bool) int {
	for ch, s := range a.slots {
		if ok(s) {
			return ch
		}
	}
	return -1
}

func sharable(s Slot) bool {
	return s.Refs == 0 || s.Mode == EqualTempered
}
