package sequencer

import (
	"container/heap"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-microtone/debug"
	"go-microtone/midi"
)

// State is where a note is in its lifetime.
type State int

const (
	Pending State = iota
	Sounding
	Released
	Skipped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Sounding:
		return "sounding"
	case Released:
		return "released"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Router finds the device and physical channel behind a logical channel.
// *midi.Registry implements it.
type Router interface {
	Resolve(logical int) (midi.Output, uint8, error)
}

// Dispatch is one message as it was sent: when, for which note, on which
// logical channel. Live playback and export see the same shape.
type Dispatch struct {
	At      time.Duration
	Note    Note
	Channel int
	Device  string
	Event   midi.Event
}

// Report summarises a run.
type Report struct {
	Notes       int // notes scheduled, skipped ones included
	Sounded     int
	Released    int
	Skipped     []NoteError
	Dropped     int // messages a device refused
	Interrupted bool
}

// Scheduler plays notes against an allocator. It runs every transition from
// a single loop in time order, so each acquire or release completes before
// the next transition starts.
type Scheduler struct {
	alloc  *Allocator
	router Router
	opts   options

	queue  actionQueue
	seq    uint64
	report Report
	active atomic.Int64
}

// noteTask is one note's state machine
type noteTask struct {
	note    Note
	pitch   midi.Pitch
	state   State
	channel int
	out     midi.Output
	phys    uint8
}

// NewScheduler creates a scheduler that takes channels from alloc and
// sends through router.
func NewScheduler(alloc *Allocator, router Router, opts ...Option) *Scheduler {
	return &Scheduler{
		alloc:  alloc,
		router: router,
		opts:   applyOptions(opts...),
	}
}

// Schedule expands events as one composition and registers both
// transitions of every note.
func (s *Scheduler) Schedule(events ...Event) {
	s.ScheduleNotes(Composition(events).Notes()...)
}

// ScheduleNotes registers both transitions of every note. Notes that cannot
// be translated are recorded in the report and never touch the allocator.
func (s *Scheduler) ScheduleNotes(notes ...Note) {
	for _, n := range notes {
		s.report.Notes++
		if !n.timingOK() {
			s.skip(n, ErrTiming)
			continue
		}
		p, err := midi.SplitKey(n.Key, s.opts.bendRange)
		if err != nil {
			s.skip(n, err)
			continue
		}
		if n.Velocity > 127 {
			n.Velocity = 127
		}
		t := &noteTask{note: n, pitch: p}
		s.push(n.Start(), func() error { return s.start(t) })
		s.push(n.End(), func() error { return s.stop(t) })
	}
}

// Pending returns the number of transitions not yet run.
func (s *Scheduler) Pending() int {
	return s.queue.Len()
}

// Active returns the number of notes currently sounding. Safe to call from
// other goroutines.
func (s *Scheduler) Active() int {
	return int(s.active.Load())
}

// Run starts the clock and runs every registered transition, returning once
// all have fired. If ctx ends first the remaining transitions are abandoned
// and an *InterruptedSession is returned; a ChannelInvariantViolation stops
// the run immediately.
func (s *Scheduler) Run(ctx context.Context) (Report, error) {
	s.opts.clock.Start()
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if err := s.opts.clock.WaitUntil(ctx, next.at); err != nil {
			return s.report, &InterruptedSession{Pending: s.queue.Len(), Err: err}
		}
		heap.Pop(&s.queue)
		if err := next.run(); err != nil {
			return s.report, err
		}
	}
	return s.report, nil
}

// start is the Pending -> Sounding transition
func (s *Scheduler) start(t *noteTask) error {
	var (
		ch  int
		err error
	)
	if t.pitch.Microtonal {
		ch, err = s.alloc.AcquireMicrotonal(t.note.Channel)
	} else {
		ch, err = s.alloc.AcquireEqualTempered(t.note.Channel)
	}
	if err != nil {
		t.state = Skipped
		s.skip(t.note, err)
		return nil
	}

	out, phys, err := s.router.Resolve(ch)
	if err != nil {
		t.state = Skipped
		s.skip(t.note, err)
		return s.alloc.Release(ch, t.pitch.Microtonal)
	}
	if ch != t.note.Channel {
		s.opts.logger.Debug("note rerouted",
			zap.Float64("key", t.note.Key),
			zap.Int("requested", t.note.Channel),
			zap.Int("channel", ch))
	}

	t.channel, t.out, t.phys = ch, out, phys
	t.state = Sounding
	s.report.Sounded++
	s.active.Add(1)

	on, _ := t.pitch.Events(phys, t.note.Velocity)
	for _, e := range on {
		s.send(t, e)
	}
	return nil
}

// stop is the Sounding -> Released transition
func (s *Scheduler) stop(t *noteTask) error {
	if t.state != Sounding {
		return nil
	}
	_, off := t.pitch.Events(t.phys, t.note.Velocity)
	for _, e := range off {
		s.send(t, e)
	}
	if err := s.alloc.Release(t.channel, t.pitch.Microtonal); err != nil {
		return err
	}
	t.state = Released
	s.report.Released++
	s.active.Add(-1)
	return nil
}

func (s *Scheduler) send(t *noteTask, e midi.Event) {
	if err := t.out.Send(e); err != nil {
		s.report.Dropped++
		s.opts.logger.Warn("message dropped", zap.Error(err))
		return
	}
	debug.LogEvery(100, "dispatch", "%s on %s", e, t.out.ID())
	if len(s.opts.observers) == 0 {
		return
	}
	d := Dispatch{
		At:      s.opts.clock.Elapsed(),
		Note:    t.note,
		Channel: t.channel,
		Device:  t.out.ID(),
		Event:   e,
	}
	for _, fn := range s.opts.observers {
		fn(d)
	}
}

func (s *Scheduler) skip(n Note, err error) {
	ne := NoteError{Note: n, Err: err}
	s.report.Skipped = append(s.report.Skipped, ne)
	s.opts.logger.Warn("note skipped", zap.Error(ne))
}

func (s *Scheduler) push(at time.Duration, run func() error) {
	heap.Push(&s.queue, &action{at: at, seq: s.seq, run: run})
	s.seq++
}

// action is a timed transition. Equal times run in registration order.
type action struct {
	at  time.Duration
	seq uint64
	run func() error
}

type actionQueue []*action

func (q actionQueue) Len() int { return len(q) }

func (q actionQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q actionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *actionQueue) Push(x any) { *q = append(*q, x.(*action)) }

func (q *actionQueue) Pop() any {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return a
}
