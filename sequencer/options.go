package sequencer

import (
	"io"
	"os"

	"go.uber.org/zap"

	"go-microtone/debug"
	"go-microtone/midi"
)

type options struct {
	clock     Clock
	bendRange float64
	logger    *zap.Logger
	observers []func(Dispatch)
	keepOpen  bool
	notice    io.Writer
}

// Option configures a Scheduler or Session.
type Option func(*options)

// WithClock sets the clock transitions wait on. Defaults to a RealClock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithBendRange sets the synth's bend range in semitones.
func WithBendRange(semitones float64) Option {
	return func(o *options) {
		o.bendRange = semitones
	}
}

// WithLogger sets the logger. Defaults to debug.L().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver registers fn to see every message that was sent.
func WithObserver(fn func(Dispatch)) Option {
	return func(o *options) {
		o.observers = append(o.observers, fn)
	}
}

// KeepOpen leaves the devices open when a Session run ends, for
// interactive use where the registry outlives one composition.
func KeepOpen() Option {
	return func(o *options) {
		o.keepOpen = true
	}
}

// WithNotice sets where user-facing notices (panic, cleanup) are printed.
func WithNotice(w io.Writer) Option {
	return func(o *options) {
		o.notice = w
	}
}

func applyOptions(opts ...Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.clock == nil {
		o.clock = NewRealClock()
	}
	if o.bendRange == 0 {
		o.bendRange = midi.DefaultBendRange
	}
	if o.logger == nil {
		o.logger = debug.L()
	}
	if o.notice == nil {
		o.notice = os.Stderr
	}
	return o
}
