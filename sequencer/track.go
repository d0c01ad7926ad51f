package sequencer

import (
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Export timing: at 60 BPM one second of composition time is one beat.
const (
	ExportTempo  = 60.0
	TicksPerBeat = 960
)

// Track collects the dispatched messages of one export track, in
// dispatch order.
type Track struct {
	Index    int
	messages []Dispatch
}

// NewTrack creates an empty export track.
func NewTrack(index int) *Track {
	return &Track{Index: index}
}

// Add appends a dispatched message. Dispatches arrive in time order.
func (t *Track) Add(d Dispatch) {
	t.messages = append(t.messages, d)
}

// Len returns the number of collected messages.
func (t *Track) Len() int {
	return len(t.messages)
}

// SMF renders the track with delta times, a tempo event first and an
// end-of-track last.
func (t *Track) SMF() smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTempo(ExportTempo))
	var last uint32
	for _, d := range t.messages {
		tick := toTicks(d.At)
		tr.Add(tick-last, d.Event.Message())
		last = tick
	}
	tr.Close(0)
	return tr
}

// MaxExportLength is the latest time a track can place an event.
var MaxExportLength = time.Duration(float64(math.MaxUint32) / TicksPerBeat * 60 / ExportTempo * float64(time.Second))

// toTicks clamps at to the 32-bit tick range.
func toTicks(at time.Duration) uint32 {
	beats := at.Seconds() * ExportTempo / 60
	return uint32(min(math.Round(beats*TicksPerBeat), math.MaxUint32))
}
