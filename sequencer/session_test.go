package sequencer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go-microtone/midi"
)

// cancelClock is a virtual clock that cancels its run instead of waiting
// past stopAt.
type cancelClock struct {
	*VirtualClock
	stopAt time.Duration
	cancel context.CancelFunc
}

func (c *cancelClock) WaitUntil(ctx context.Context, at time.Duration) error {
	if at >= c.stopAt {
		c.cancel()
	}
	return c.VirtualClock.WaitUntil(ctx, at)
}

func newTestSession(devices int, opts ...Option) (*Session, []*midi.Recorder) {
	recs := make([]*midi.Recorder, devices)
	outs := make([]midi.Output, devices)
	for i := range recs {
		recs[i] = midi.NewRecorder("synth")
		outs[i] = recs[i]
	}
	registry := midi.NewRegistry(outs...)
	registry.SetPanicDelay(0)
	opts = append([]Option{WithClock(NewVirtualClock()), WithNotice(io.Discard)}, opts...)
	return NewSession(registry, opts...), recs
}

func TestSessionRun(t *testing.T) {
	session, recs := newTestSession(2)
	if session.Allocator().Len() != 32 {
		t.Fatalf("allocator has %d channels, want 32", session.Allocator().Len())
	}

	comp := Composition{
		Note{Key: 60, Duration: 1, Channel: 0, Velocity: 100},
		Note{Key: 62.5, Duration: 1, Channel: 17, Velocity: 100},
	}
	rep, err := session.Run(context.Background(), comp)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Interrupted || rep.Sounded != 2 || rep.Released != 2 {
		t.Errorf("report = %+v", rep)
	}

	if n := len(recs[0].Events()); n != 2 {
		t.Errorf("device 0 got %d events, want 2", n)
	}
	got := recs[1].Events()
	if len(got) != 4 || got[1] != midi.NoteOnEvent(1, 62, 100) {
		t.Errorf("device 1 got %v", got)
	}
	for i, rec := range recs {
		if !rec.Closed() {
			t.Errorf("device %d left open", i)
		}
	}
	if session.Scheduler() == nil {
		t.Error("Scheduler() is nil after a run")
	}
}

func TestSessionKeepOpen(t *testing.T) {
	session, recs := newTestSession(1, KeepOpen())
	comp := Composition{Note{Key: 60, Duration: 1}}

	for i := 0; i < 2; i++ {
		if _, err := session.Run(context.Background(), comp); err != nil {
			t.Fatalf("run %d error: %v", i, err)
		}
	}
	if recs[0].Closed() {
		t.Error("device closed despite KeepOpen")
	}
	if n := len(recs[0].Events()); n != 4 {
		t.Errorf("got %d events over two runs, want 4", n)
	}
}

func TestSessionInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &cancelClock{VirtualClock: NewVirtualClock(), stopAt: time.Second, cancel: cancel}

	session, recs := newTestSession(1, WithClock(clock))
	comp := Composition{
		Note{Key: 60.5, Duration: 2, Velocity: 100},
		Note{Key: 64, Onset: 0.5, Duration: 2, Velocity: 100},
		Note{Key: 67, Onset: 1, Duration: 1, Velocity: 100},
	}

	rep, err := session.Run(ctx, comp)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for an interruption", err)
	}
	if !rep.Interrupted {
		t.Error("report not marked interrupted")
	}
	if rep.Sounded != 2 || rep.Released != 0 {
		t.Errorf("report = %+v", rep)
	}

	// bend + on, on, then panic on all 16 channels
	events := recs[0].Events()
	if len(events) != 3+2*midi.ChannelsPerDevice {
		t.Fatalf("got %d events, want %d", len(events), 3+2*midi.ChannelsPerDevice)
	}
	for ch := 0; ch < midi.ChannelsPerDevice; ch++ {
		if e := events[3+2*ch]; e != midi.ControlEvent(uint8(ch), midi.AllSoundOff) {
			t.Errorf("panic event %d = %s", 2*ch, e)
		}
		if e := events[4+2*ch]; e != midi.ControlEvent(uint8(ch), midi.ResetAllControllers) {
			t.Errorf("panic event %d = %s", 2*ch+1, e)
		}
	}

	if n := session.Allocator().InUse(); n != 0 {
		t.Errorf("%d channels in use after panic", n)
	}
	if !recs[0].Closed() {
		t.Error("device left open after interruption")
	}
}

func TestSessionPlayHelpers(t *testing.T) {
	session, recs := newTestSession(1, KeepOpen())

	rep, err := session.PlayNote(context.Background(), 61.5, 0.5, 4, 80)
	if err != nil || rep.Released != 1 {
		t.Fatalf("PlayNote() = %+v, %v", rep, err)
	}
	rep, err = session.PlayChord(context.Background(), []float64{60, 64, 67.5}, 0.5, 4, 80)
	if err != nil || rep.Released != 3 {
		t.Fatalf("PlayChord() = %+v, %v", rep, err)
	}

	got := recs[0].Events()
	if got[1] != midi.NoteOnEvent(4, 61, 80) {
		t.Errorf("note sounded as %s", got[1])
	}
	// bend + on + off + reset, then two shared notes and one rerouted bent note
	if len(got) != 4+4+4 {
		t.Errorf("got %d events, want 12", len(got))
	}
	if session.Allocator().InUse() != 0 {
		t.Errorf("%d channels in use", session.Allocator().InUse())
	}
}

func TestSessionInvariantViolation(t *testing.T) {
	var session *Session
	// clearing the table behind the scheduler's back corrupts it
	session, recs := newTestSession(1, WithObserver(func(d Dispatch) {
		if d.Event.Type == midi.NoteOn {
			session.Allocator().Reset()
		}
	}))

	rep, err := session.Run(context.Background(), Composition{Note{Key: 60.5, Duration: 1, Velocity: 100}})
	var v *ChannelInvariantViolation
	if !errors.As(err, &v) {
		t.Fatalf("Run() error = %v, want ChannelInvariantViolation", err)
	}
	if v.Channel != 0 {
		t.Errorf("violation on channel %d, want 0", v.Channel)
	}
	if rep.Interrupted {
		t.Error("a corrupt table is not an interruption")
	}

	// bend, on, off, bend reset, then the panic
	events := recs[0].Events()
	if len(events) != 4+2*midi.ChannelsPerDevice {
		t.Fatalf("got %d events, want %d", len(events), 4+2*midi.ChannelsPerDevice)
	}
	for ch := 0; ch < midi.ChannelsPerDevice; ch++ {
		if e := events[4+2*ch]; e != midi.ControlEvent(uint8(ch), midi.AllSoundOff) {
			t.Errorf("panic event %d = %s", 2*ch, e)
		}
		if e := events[5+2*ch]; e != midi.ControlEvent(uint8(ch), midi.ResetAllControllers) {
			t.Errorf("panic event %d = %s", 2*ch+1, e)
		}
	}

	if n := session.Allocator().InUse(); n != 0 {
		t.Errorf("%d channels in use after panic", n)
	}
	if !recs[0].Closed() {
		t.Error("device left open after the session aborted")
	}
}
