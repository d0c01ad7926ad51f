package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// ErrClosed is returned by Send on a closed output.
var ErrClosed = errors.New("output closed")

// Output is an opened MIDI output device.
type Output interface {
	ID() string
	Send(e Event) error
	Close() error
}

// PortOutput sends to a gomidi output port
type PortOutput struct {
	id   string
	port drivers.Out
	send func(msg gomidi.Message) error
}

// OpenPortOutput opens port for sending.
func OpenPortOutput(port drivers.Out) (*PortOutput, error) {
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", port.String(), err)
	}
	return &PortOutput{id: port.String(), port: port, send: send}, nil
}

func (p *PortOutput) ID() string {
	return p.id
}

func (p *PortOutput) Send(e Event) error {
	if p.send == nil {
		return &DeviceIOError{Device: p.id, Event: e, Err: ErrClosed}
	}
	if err := p.send(e.Message()); err != nil {
		return &DeviceIOError{Device: p.id, Event: e, Err: err}
	}
	return nil
}

func (p *PortOutput) Close() error {
	p.send = nil
	if p.port == nil || !p.port.IsOpen() {
		return nil
	}
	return p.port.Close()
}

// ListOutPorts returns the output ports, giving up after timeout
// (CoreMIDI can hang while enumerating).
func ListOutPorts(timeout time.Duration) ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("listing output ports timed out after %s", timeout)
	}
}

// MatchPorts returns the ports whose name contains selector
// (case-insensitive), in enumeration order.
func MatchPorts(outs []drivers.Out, selector string) []drivers.Out {
	selector = strings.ToLower(selector)
	var matched []drivers.Out
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), selector) {
			matched = append(matched, out)
		}
	}
	return matched
}

// Recorder is an in-memory output that keeps everything sent to it.
// Used for dry runs and tests.
type Recorder struct {
	id     string
	mu     sync.Mutex
	events []Event
	closed bool
	fail   func(Event) error
}

// NewRecorder creates an empty recorder.
func NewRecorder(id string) *Recorder {
	return &Recorder{id: id}
}

func (r *Recorder) ID() string {
	return r.id
}

func (r *Recorder) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return &DeviceIOError{Device: r.id, Event: e, Err: ErrClosed}
	}
	if r.fail != nil {
		if err := r.fail(e); err != nil {
			return &DeviceIOError{Device: r.id, Event: e, Err: err}
		}
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// FailWith makes Send reject every event for which fn returns an error.
func (r *Recorder) FailWith(fn func(Event) error) {
	r.mu.Lock()
	r.fail = fn
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Discard returns an output that accepts and drops every event.
func Discard(id string) Output {
	return discard(id)
}

type discard string

func (d discard) ID() string       { return string(d) }
func (d discard) Send(Event) error { return nil }
func (d discard) Close() error     { return nil }
