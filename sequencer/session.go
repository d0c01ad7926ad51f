package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-microtone/midi"
)

// Session plays compositions on a registry of opened devices. It owns the
// channel table for those devices.
type Session struct {
	registry *midi.Registry
	alloc    *Allocator
	opts     options
	sched    atomic.Pointer[Scheduler]
}

// NewSession creates a session over registry with one channel slot per
// logical channel it backs.
func NewSession(registry *midi.Registry, opts ...Option) *Session {
	return &Session{
		registry: registry,
		alloc:    NewAllocator(registry.Channels()),
		opts:     applyOptions(opts...),
	}
}

// Allocator exposes the channel table for monitoring.
func (s *Session) Allocator() *Allocator {
	return s.alloc
}

// Clock returns the clock the session schedules against.
func (s *Session) Clock() Clock {
	return s.opts.clock
}

// Scheduler returns the scheduler of the run in progress, if any.
func (s *Session) Scheduler() *Scheduler {
	return s.sched.Load()
}

// Run dispatches comp and waits for every note to be released.
//
// If ctx ends first the run is interrupted: every channel of every device is
// silenced with Panic, the report is marked Interrupted and no error is
// returned. A ChannelInvariantViolation also panics the devices and is
// returned. Unless KeepOpen was given the registry is closed on every path.
func (s *Session) Run(ctx context.Context, comp Composition) (rep Report, err error) {
	log := s.opts.logger
	defer func() {
		if s.opts.keepOpen {
			return
		}
		fmt.Fprintln(s.opts.notice, "cleaning up...")
		if cerr := s.registry.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close devices: %w", cerr))
		}
	}()

	sched := NewScheduler(s.alloc, s.registry, s.schedulerOptions()...)
	sched.Schedule(comp...)
	s.sched.Store(sched)
	log.Info("session start",
		zap.Int("notes", sched.report.Notes),
		zap.Int("devices", s.registry.Len()),
		zap.Duration("length", comp.End()))

	rep, err = sched.Run(ctx)

	var interrupted *InterruptedSession
	switch {
	case errors.As(err, &interrupted):
		fmt.Fprintln(s.opts.notice, "\npanic!")
		log.Warn("session interrupted", zap.Int("pending", interrupted.Pending), zap.Error(interrupted.Err))
		s.silence()
		rep.Interrupted = true
		return rep, nil
	case err != nil:
		log.Error("session aborted", zap.Error(err))
		s.silence()
		return rep, err
	}

	log.Info("session done",
		zap.Int("sounded", rep.Sounded),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Int("dropped", rep.Dropped))
	return rep, nil
}

// PlayNote sounds one note now and returns once it has been released.
// Combine with KeepOpen to play several in a row.
func (s *Session) PlayNote(ctx context.Context, key, duration float64, channel int, velocity uint8) (Report, error) {
	return s.Run(ctx, Composition{Note{Key: key, Duration: duration, Channel: channel, Velocity: velocity}})
}

// PlayChord sounds keys together now and returns once all are released.
func (s *Session) PlayChord(ctx context.Context, keys []float64, duration float64, channel int, velocity uint8) (Report, error) {
	return s.Run(ctx, Composition{Chord{Keys: keys, Duration: duration, Channel: channel, Velocity: velocity}})
}

// silence silences every device and clears the channel table, whose counts
// no longer match anything sounding.
func (s *Session) silence() {
	s.registry.Panic()
	s.alloc.Reset()
}

func (s *Session) schedulerOptions() []Option {
	o := s.opts
	opts := []Option{
		WithClock(o.clock),
		WithBendRange(o.bendRange),
		WithLogger(o.logger),
	}
	for _, fn := range o.observers {
		opts = append(opts, WithObserver(fn))
	}
	return opts
}
