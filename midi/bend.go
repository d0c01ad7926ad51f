package midi

import (
	"fmt"
	"math"
)

// Bend register values
const (
	NoBend  uint16 = 1 << 13 // centre of the 14-bit range
	MaxBend uint16 = 1<<14 - 1
)

// DefaultBendRange is the synth's pitch-bend range in semitones.
const DefaultBendRange = 2.0

// KeyToHz converts a key number to a frequency, with key 69 at 440 Hz.
func KeyToHz(key float64) float64 {
	return 440 * math.Pow(2, (key-69)/12)
}

// Pitch is a key number split for the wire: the integer key sent with
// note-on/off and, for microtonal keys, the bend that carries the fraction.
type Pitch struct {
	Number     float64 // original key number
	Key        uint8
	Bend       uint16 // NoBend unless Microtonal
	Microtonal bool
}

// SplitKey translates a fractional key number for a synth whose bend range
// is bendRange semitones.
func SplitKey(number, bendRange float64) (Pitch, error) {
	if !(bendRange > 0) {
		return Pitch{}, fmt.Errorf("%w: %g", ErrBendRange, bendRange)
	}
	hz := KeyToHz(number)
	if !(hz > 0) || math.IsInf(hz, 0) {
		return Pitch{}, &ZeroFrequencyError{Key: number}
	}
	ipart, fpart := math.Modf(number)
	if ipart < 0 || ipart > 127 {
		return Pitch{}, fmt.Errorf("%w: %g", ErrKeyOutOfRange, number)
	}
	p := Pitch{Number: number, Key: uint8(ipart), Bend: NoBend}
	if fpart == 0 {
		return p, nil
	}
	base := KeyToHz(ipart)
	if !(base > 0) {
		return Pitch{}, &ZeroFrequencyError{Key: ipart}
	}
	v := float64(NoBend) + float64(NoBend)*(12/bendRange)*math.Log2(hz/base)
	v = math.RoundToEven(v)
	if v < 0 {
		v = 0
	}
	if v > float64(MaxBend) {
		v = float64(MaxBend)
	}
	p.Bend = uint16(v)
	p.Microtonal = true
	return p, nil
}

// PackBend splits a 14-bit bend into its low and high 7-bit data bytes.
func PackBend(value uint16) (lsb, msb uint8) {
	return uint8(value & 0x7f), uint8((value >> 7) & 0x7f)
}

// Events returns the messages sounding p on ch: bend (if microtonal) and
// note-on, then at release note-off and bend reset (if microtonal).
func (p Pitch) Events(ch, velocity uint8) (on, off []Event) {
	if p.Microtonal {
		on = append(on, BendEvent(ch, p.Bend))
	}
	on = append(on, NoteOnEvent(ch, p.Key, velocity))
	off = append(off, NoteOffEvent(ch, p.Key))
	if p.Microtonal {
		off = append(off, BendEvent(ch, NoBend))
	}
	return on, off
}
