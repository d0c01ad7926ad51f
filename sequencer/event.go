package sequencer

import (
	"math"
	"time"
)

// DefaultVelocity is used when a composition does not give one
const DefaultVelocity uint8 = 127

// Event is a playable node of a composition: a Note, a Chord or a Voice.
// Every event flattens to the Notes it sounds.
type Event interface {
	Expand() []Note
	kind() eventKind
}

type eventKind int

const (
	kindNote eventKind = iota
	kindChord
	kindVoice
)

// Note is a single key held on a requested logical channel. Key is a
// fractional key number; the fraction is a microtonal offset. Onset and
// Duration are in seconds (beats at 60 BPM).
type Note struct {
	Key      float64
	Onset    float64
	Duration float64
	Channel  int
	Velocity uint8

	// Track is the export track; set by Composition.Notes.
	Track int
}

func (n Note) Expand() []Note  { return []Note{n} }
func (n Note) kind() eventKind { return kindNote }

// Start returns the onset as a duration from composition start.
func (n Note) Start() time.Duration {
	return seconds(n.Onset)
}

// End returns onset+duration as a duration from composition start.
func (n Note) End() time.Duration {
	return seconds(n.Onset + n.Duration)
}

// maxSeconds is the longest time a time.Duration can hold.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// timingOK reports whether onset and duration are finite, non-negative
// and end within time.Duration's range.
func (n Note) timingOK() bool {
	for _, v := range [...]float64{n.Onset, n.Duration} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return n.Onset+n.Duration < maxSeconds
}

// Chord is a set of keys sharing onset, duration, channel and velocity.
// Each key is allocated on its own, so under contention the keys of one
// chord may sound on different channels.
type Chord struct {
	Keys     []float64
	Onset    float64
	Duration float64
	Channel  int
	Velocity uint8
}

func (c Chord) Expand() []Note {
	notes := make([]Note, 0, len(c.Keys))
	for _, k := range c.Keys {
		notes = append(notes, Note{
			Key:      k,
			Onset:    c.Onset,
			Duration: c.Duration,
			Channel:  c.Channel,
			Velocity: c.Velocity,
		})
	}
	return notes
}

func (c Chord) kind() eventKind { return kindChord }

// Keys is one voice position: a single key is a note, several are a chord.
type Keys []float64

// Voice is a line of notes and chords bound to one channel, given as
// parallel sequences. Entries past the shortest sequence are ignored.
type Voice struct {
	Keys       []Keys
	Onsets     []float64
	Durations  []float64
	Velocities []uint8
	Channel    int
}

// Len returns the number of usable positions (the shortest sequence).
func (v Voice) Len() int {
	return min(len(v.Keys), len(v.Onsets), len(v.Durations), len(v.Velocities))
}

// Events returns the voice as Notes and Chords, position by position.
func (v Voice) Events() []Event {
	n := v.Len()
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		if len(v.Keys[i]) == 1 {
			events = append(events, Note{
				Key:      v.Keys[i][0],
				Onset:    v.Onsets[i],
				Duration: v.Durations[i],
				Channel:  v.Channel,
				Velocity: v.Velocities[i],
			})
			continue
		}
		events = append(events, Chord{
			Keys:     v.Keys[i],
			Onset:    v.Onsets[i],
			Duration: v.Durations[i],
			Channel:  v.Channel,
			Velocity: v.Velocities[i],
		})
	}
	return events
}

func (v Voice) Expand() []Note {
	var notes []Note
	for _, e := range v.Events() {
		notes = append(notes, e.Expand()...)
	}
	return notes
}

func (v Voice) kind() eventKind { return kindVoice }

// Composition is the root of an event tree.
type Composition []Event

// Notes flattens the composition and assigns export tracks: loose notes
// and chords share track 0, and each voice gets a track of its own after it.
func (c Composition) Notes() []Note {
	var notes []Note
	voiceTrack := 0
	if c.hasLoose() {
		voiceTrack = 1
	}
	for _, e := range c {
		track := 0
		if e.kind() == kindVoice {
			track = voiceTrack
			voiceTrack++
		}
		for _, n := range e.Expand() {
			n.Track = track
			notes = append(notes, n)
		}
	}
	return notes
}

// TrackCount is the number of export tracks Notes assigns.
func (c Composition) TrackCount() int {
	count := 0
	if c.hasLoose() {
		count = 1
	}
	for _, e := range c {
		if e.kind() == kindVoice {
			count++
		}
	}
	return count
}

// End returns the latest onset+duration over every playable note.
func (c Composition) End() time.Duration {
	var end time.Duration
	for _, e := range c {
		for _, n := range e.Expand() {
			if n.timingOK() {
				end = max(end, n.End())
			}
		}
	}
	return end
}

// MaxChannel returns the highest channel any event requests, or -1 if empty.
func (c Composition) MaxChannel() int {
	hi := -1
	for _, e := range c {
		for _, n := range e.Expand() {
			hi = max(hi, n.Channel)
		}
	}
	return hi
}

func (c Composition) hasLoose() bool {
	for _, e := range c {
		if e.kind() != kindVoice {
			return true
		}
	}
	return false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
