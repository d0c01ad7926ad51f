package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn    uint8 = 0x90
	NoteOff   uint8 = 0x80
	CC        uint8 = 0xB0
	PitchBend uint8 = 0xE0
)

// Controllers sent by Panic
const (
	AllSoundOff         uint8 = 120
	ResetAllControllers uint8 = 121
)

// ChannelsPerDevice is the number of physical channels on one output device.
const ChannelsPerDevice = 16

// Event is a 3-byte channel-voice message addressed to a physical channel.
// For PitchBend, Data1 and Data2 hold the low and high 7 bits of the bend.
type Event struct {
	Type    uint8 // NoteOn, NoteOff, CC, PitchBend
	Channel uint8 // physical channel 0-15
	Data1   uint8
	Data2   uint8
}

// NoteOnEvent builds a note-on for key at velocity.
func NoteOnEvent(ch, key, velocity uint8) Event {
	return Event{Type: NoteOn, Channel: ch, Data1: key, Data2: velocity}
}

// NoteOffEvent builds a note-off with a release velocity of 0.
func NoteOffEvent(ch, key uint8) Event {
	return Event{Type: NoteOff, Channel: ch, Data1: key}
}

// BendEvent builds a pitch-bend carrying the 14-bit value.
func BendEvent(ch uint8, value uint16) Event {
	lsb, msb := PackBend(value)
	return Event{Type: PitchBend, Channel: ch, Data1: lsb, Data2: msb}
}

// ControlEvent builds a control change with value 0.
func ControlEvent(ch, controller uint8) Event {
	return Event{Type: CC, Channel: ch, Data1: controller}
}

// Bend returns the 14-bit value of a PitchBend event.
func (e Event) Bend() uint16 {
	return uint16(e.Data1&0x7f) | uint16(e.Data2&0x7f)<<7
}

// Bytes returns the raw wire bytes.
func (e Event) Bytes() [3]byte {
	return [3]byte{e.Type | e.Channel&0x0f, e.Data1, e.Data2}
}

// Message converts the event to a gomidi message ready for a port.
func (e Event) Message() gomidi.Message {
	switch e.Type {
	case NoteOn:
		return gomidi.NoteOn(e.Channel, e.Data1, e.Data2)
	case NoteOff:
		return gomidi.NoteOff(e.Channel, e.Data1)
	case CC:
		return gomidi.ControlChange(e.Channel, e.Data1, e.Data2)
	case PitchBend:
		return gomidi.Pitchbend(e.Channel, int16(e.Bend())-int16(NoBend))
	}
	b := e.Bytes()
	return gomidi.Message(b[:])
}

func (e Event) String() string {
	switch e.Type {
	case NoteOn:
		return fmt.Sprintf("note-on ch=%d key=%d vel=%d", e.Channel, e.Data1, e.Data2)
	case NoteOff:
		return fmt.Sprintf("note-off ch=%d key=%d", e.Channel, e.Data1)
	case PitchBend:
		return fmt.Sprintf("bend ch=%d value=%d", e.Channel, e.Bend())
	case CC:
		return fmt.Sprintf("cc ch=%d ctl=%d val=%d", e.Channel, e.Data1, e.Data2)
	}
	return fmt.Sprintf("msg % x", e.Bytes())
}
