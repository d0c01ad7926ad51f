package midi

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyOutOfRange is returned for key numbers whose integer part is not 0-127.
	ErrKeyOutOfRange = errors.New("key out of range")
	// ErrBendRange is returned for a non-positive bend range.
	ErrBendRange = errors.New("bend range must be positive")
	// ErrUnknownChannel is returned when no opened device backs a logical channel.
	ErrUnknownChannel = errors.New("logical channel not backed by a device")
	// ErrNoPorts is returned when fewer output ports match than were requested.
	ErrNoPorts = errors.New("not enough matching output ports")
)

// ZeroFrequencyError reports a key number that maps to a non-positive frequency.
type ZeroFrequencyError struct {
	Key float64
}

func (e *ZeroFrequencyError) Error() string {
	return fmt.Sprintf("key %g maps to 0 Hz", e.Key)
}

// DeviceIOError wraps a failure to send one message to a device.
type DeviceIOError struct {
	Device string
	Event  Event
	Err    error
}

func (e *DeviceIOError) Error() string {
	return fmt.Sprintf("send %s to %s: %v", e.Event, e.Device, e.Err)
}

func (e *DeviceIOError) Unwrap() error {
	return e.Err
}
