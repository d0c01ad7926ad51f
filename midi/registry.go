package midi

import (
	"fmt"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go-microtone/debug"
)

// DefaultPanicDelay is the pause after each channel's panic messages.
const DefaultPanicDelay = 50 * time.Millisecond

// portListTimeout bounds port enumeration (CoreMIDI can hang)
const portListTimeout = 3 * time.Second

// Registry maps logical channels onto a fixed set of opened output devices.
// Device i backs logical channels 16*i through 16*i+15.
type Registry struct {
	outputs     []Output
	mu          sync.RWMutex
	panicDelay  time.Duration
	closeDriver bool
}

// NewRegistry wraps already-opened outputs, in device order.
func NewRegistry(outputs ...Output) *Registry {
	return &Registry{
		outputs:    outputs,
		panicDelay: DefaultPanicDelay,
	}
}

// OpenRegistry opens the first count output ports whose names contain
// selector, in enumeration order.
func OpenRegistry(count int, selector string) (*Registry, error) {
	outs, err := ListOutPorts(portListTimeout)
	if err != nil {
		return nil, err
	}
	matched := MatchPorts(outs, selector)
	if len(matched) < count {
		return nil, fmt.Errorf("%w: want %d matching %q, found %d", ErrNoPorts, count, selector, len(matched))
	}

	r := NewRegistry()
	r.closeDriver = true
	for i := 0; i < count; i++ {
		out, err := OpenPortOutput(matched[i])
		if err != nil {
			return nil, multierr.Append(err, r.Close())
		}
		debug.L().Info("opened output", zap.Int("device", i), zap.String("port", out.ID()))
		r.outputs = append(r.outputs, out)
	}
	return r, nil
}

// SetPanicDelay sets the pause between channels during Panic.
func (r *Registry) SetPanicDelay(d time.Duration) {
	r.mu.Lock()
	r.panicDelay = d
	r.mu.Unlock()
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outputs)
}

// Channels returns the number of logical channels backed by the registry.
func (r *Registry) Channels() int {
	return r.Len() * ChannelsPerDevice
}

// Outputs returns a snapshot of the registered devices
func (r *Registry) Outputs() []Output {
	r.mu.RLock()
	defer r.mu.RUnlock()
	outs := make([]Output, len(r.outputs))
	copy(outs, r.outputs)
	return outs
}

// Resolve returns the device and physical channel backing a logical channel.
func (r *Registry) Resolve(logical int) (Output, uint8, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev := logical / ChannelsPerDevice
	if logical < 0 || dev >= len(r.outputs) {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownChannel, logical)
	}
	return r.outputs[dev], uint8(logical % ChannelsPerDevice), nil
}

// Panic sends all-sound-off then reset-all-controllers on every channel of
// every device. Failures are logged and otherwise ignored.
func (r *Registry) Panic() {
	r.mu.RLock()
	outputs := r.outputs
	delay := r.panicDelay
	r.mu.RUnlock()

	log := debug.L()
	for _, out := range outputs {
		log.Warn("panic", zap.String("device", out.ID()))
		for ch := uint8(0); ch < ChannelsPerDevice; ch++ {
			for _, ctl := range [...]uint8{AllSoundOff, ResetAllControllers} {
				if err := out.Send(ControlEvent(ch, ctl)); err != nil {
					log.Warn("panic message dropped", zap.Error(err))
				}
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

// Close closes every device and, for registries opened from ports, the
// MIDI driver. The registry is empty afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for _, out := range r.outputs {
		if cerr := out.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s: %w", out.ID(), cerr))
		}
	}
	r.outputs = nil
	if r.closeDriver {
		gomidi.CloseDriver()
		r.closeDriver = false
	}
	return err
}
