package sequencer

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestAcquireMicrotonal(t *testing.T) {
	a := NewAllocator(4)

	ch, err := a.AcquireMicrotonal(2)
	if err != nil || ch != 2 {
		t.Fatalf("AcquireMicrotonal(2) = %d, %v; want 2", ch, err)
	}
	if s := a.Slot(2); s != (Slot{Refs: 1, Mode: Microtonal}) {
		t.Errorf("slot 2 = %+v", s)
	}

	// requested channel busy: lowest free channel
	ch, err = a.AcquireMicrotonal(2)
	if err != nil || ch != 0 {
		t.Fatalf("rerouted AcquireMicrotonal(2) = %d, %v; want 0", ch, err)
	}

	// an equal-tempered channel is not free for a bent note
	if _, err := a.AcquireEqualTempered(1); err != nil {
		t.Fatal(err)
	}
	ch, err = a.AcquireMicrotonal(1)
	if err != nil || ch != 3 {
		t.Fatalf("AcquireMicrotonal(1) = %d, %v; want 3", ch, err)
	}

	if _, err := a.AcquireMicrotonal(0); !errors.Is(err, ErrNoFreeChannel) {
		t.Errorf("full table error = %v, want ErrNoFreeChannel", err)
	}
}

func TestAcquireEqualTemperedShares(t *testing.T) {
	a := NewAllocator(3)

	for i := 0; i < 2; i++ {
		ch, err := a.AcquireEqualTempered(1)
		if err != nil || ch != 1 {
			t.Fatalf("AcquireEqualTempered(1) #%d = %d, %v; want 1", i, ch, err)
		}
	}
	if s := a.Slot(1); s != (Slot{Refs: 2, Mode: EqualTempered}) {
		t.Errorf("slot 1 = %+v, want 2 equal-tempered refs", s)
	}

	// a bent channel cannot be shared
	if _, err := a.AcquireMicrotonal(0); err != nil {
		t.Fatal(err)
	}
	ch, err := a.AcquireEqualTempered(0)
	if err != nil || ch != 1 {
		t.Errorf("AcquireEqualTempered(0) = %d, %v; want the shared channel 1", ch, err)
	}

	// every channel bent
	b := NewAllocator(2)
	b.AcquireMicrotonal(0)
	b.AcquireMicrotonal(1)
	if _, err := b.AcquireEqualTempered(0); !errors.Is(err, ErrNoFreeChannel) {
		t.Errorf("error = %v, want ErrNoFreeChannel", err)
	}
}

func TestRelease(t *testing.T) {
	a := NewAllocator(2)

	a.AcquireEqualTempered(0)
	a.AcquireEqualTempered(0)
	if err := a.Release(0, false); err != nil {
		t.Fatal(err)
	}
	if s := a.Slot(0); s != (Slot{Refs: 1, Mode: EqualTempered}) {
		t.Errorf("after one release slot 0 = %+v", s)
	}
	if err := a.Release(0, false); err != nil {
		t.Fatal(err)
	}
	if s := a.Slot(0); s != (Slot{}) {
		t.Errorf("after last release slot 0 = %+v, want free", s)
	}

	a.AcquireMicrotonal(1)
	if err := a.Release(1, true); err != nil {
		t.Fatal(err)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d, want 0", a.InUse())
	}
}

func TestReleaseViolations(t *testing.T) {
	a := NewAllocator(2)

	var v *ChannelInvariantViolation
	if err := a.Release(0, false); !errors.As(err, &v) {
		t.Errorf("release of free channel error = %v, want ChannelInvariantViolation", err)
	}
	if s := a.Slot(0); s != (Slot{}) {
		t.Errorf("failed release changed slot: %+v", s)
	}

	a.AcquireEqualTempered(0)
	if err := a.Release(0, true); !errors.As(err, &v) {
		t.Errorf("microtonal release of tempered channel error = %v, want ChannelInvariantViolation", err)
	}

	a.AcquireMicrotonal(1)
	if err := a.Release(1, false); !errors.As(err, &v) {
		t.Errorf("tempered release of bent channel error = %v, want ChannelInvariantViolation", err)
	}

	if err := a.Release(5, false); !errors.Is(err, ErrChannelRange) {
		t.Errorf("out of range error = %v, want ErrChannelRange", err)
	}
	if _, err := a.AcquireEqualTempered(-1); !errors.Is(err, ErrChannelRange) {
		t.Errorf("negative channel error = %v, want ErrChannelRange", err)
	}
}

func TestReset(t *testing.T) {
	a := NewAllocator(3)
	a.AcquireMicrotonal(0)
	a.AcquireEqualTempered(1)
	a.AcquireEqualTempered(1)
	a.Reset()
	for ch, s := range a.Snapshot() {
		if s != (Slot{}) {
			t.Errorf("slot %d = %+v after Reset", ch, s)
		}
	}
}

// op is one generated allocator call
type op struct {
	Acquire    bool
	Microtonal bool
	Channel    int
}

func genOp(channels int) gopter.Gen {
	return gopter.CombineGens(
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, channels-1),
	).Map(func(v []interface{}) op {
		return op{Acquire: v[0].(bool), Microtonal: v[1].(bool), Channel: v[2].(int)}
	})
}

func TestAllocatorProperties(t *testing.T) {
	const channels = 6

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	// Each acquired channel is released by the same kind of note, the way
	// the scheduler does it.
	properties.Property("slots stay consistent under any acquire/release sequence", prop.ForAll(
		func(ops []op) bool {
			a := NewAllocator(channels)
			type held struct {
				ch         int
				microtonal bool
			}
			var holding []held

			for _, o := range ops {
				if o.Acquire {
					var (
						ch  int
						err error
					)
					if o.Microtonal {
						ch, err = a.AcquireMicrotonal(o.Channel)
					} else {
						ch, err = a.AcquireEqualTempered(o.Channel)
					}
					if err == nil {
						holding = append(holding, held{ch, o.Microtonal})
					} else if !errors.Is(err, ErrNoFreeChannel) {
						return false
					}
				} else if len(holding) > 0 {
					i := o.Channel % len(holding)
					h := holding[i]
					holding = append(holding[:i], holding[i+1:]...)
					if err := a.Release(h.ch, h.microtonal); err != nil {
						return false
					}
				}

				for _, s := range a.Snapshot() {
					if (s.Refs == 0) != (s.Mode == Free) {
						return false
					}
					if s.Mode == Microtonal && s.Refs != 1 {
						return false
					}
				}
			}

			for _, h := range holding {
				if err := a.Release(h.ch, h.microtonal); err != nil {
					return false
				}
			}
			return a.InUse() == 0
		},
		gen.SliceOf(genOp(channels)),
	))

	properties.Property("requested channel is used when free", prop.ForAll(
		func(req int, microtonal bool) bool {
			a := NewAllocator(channels)
			var ch int
			if microtonal {
				ch, _ = a.AcquireMicrotonal(req)
			} else {
				ch, _ = a.AcquireEqualTempered(req)
			}
			return ch == req
		},
		gen.IntRange(0, channels-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
