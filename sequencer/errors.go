package sequencer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFreeChannel is returned when a scan finds no channel usable by the note.
	ErrNoFreeChannel = errors.New("no free channel")
	// ErrChannelRange is returned for a logical channel outside the table.
	ErrChannelRange = errors.New("channel out of range")
	// ErrTiming is returned for a note whose onset or duration is negative,
	// not finite, or ends too far out to schedule.
	ErrTiming = errors.New("onset and duration must be finite, non-negative and in range")
	// ErrExportLength is returned when a composition is too long for a MIDI file.
	ErrExportLength = errors.New("composition too long to export")
)

// ChannelInvariantViolation means the channel table is corrupt. It is fatal
// to the session.
type ChannelInvariantViolation struct {
	Channel int
	Slot    Slot
	Reason  string
}

func (e *ChannelInvariantViolation) Error() string {
	return fmt.Sprintf("channel %d (%s, refs=%d): %s", e.Channel, e.Slot.Mode, e.Slot.Refs, e.Reason)
}

// InterruptedSession is returned by Scheduler.Run when its context ends
// before every note has been released.
type InterruptedSession struct {
	Pending int // transitions that never fired
	Err     error
}

func (e *InterruptedSession) Error() string {
	return fmt.Sprintf("session interrupted with %d pending transitions: %v", e.Pending, e.Err)
}

func (e *InterruptedSession) Unwrap() error {
	return e.Err
}

// NoteError records why a note was not played.
type NoteError struct {
	Note Note
	Err  error
}

func (e NoteError) Error() string {
	return fmt.Sprintf("note key=%g onset=%g ch=%d: %v", e.Note.Key, e.Note.Onset, e.Note.Channel, e.Err)
}

func (e NoteError) Unwrap() error {
	return e.Err
}
