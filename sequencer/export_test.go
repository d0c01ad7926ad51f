package sequencer

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-microtone/midi"
)

type tickedEvent struct {
	tick uint32
	b    [3]byte
}

// channelEvents returns a track's channel messages with absolute ticks.
func channelEvents(tr smf.Track) []tickedEvent {
	var out []tickedEvent
	var tick uint32
	for _, ev := range tr {
		tick += ev.Delta
		if len(ev.Message) != 3 || ev.Message[0] >= 0xF0 {
			continue
		}
		out = append(out, tickedEvent{tick, [3]byte{ev.Message[0], ev.Message[1], ev.Message[2]}})
	}
	return out
}

func TestExport(t *testing.T) {
	comp := Composition{
		Voice{
			Keys:       []Keys{{60}, {60.5}},
			Onsets:     []float64{0, 1},
			Durations:  []float64{1, 1},
			Velocities: []uint8{100, 100},
		},
		Note{Key: 64, Onset: 0.5, Duration: 1, Velocity: 90},
	}

	var buf bytes.Buffer
	rep, err := Export(&buf, comp)
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if rep.Sounded != 3 || rep.Released != 3 {
		t.Errorf("report = %+v", rep)
	}

	file, err := smf.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("reading exported file: %v", err)
	}
	if ticks, ok := file.TimeFormat.(smf.MetricTicks); !ok || ticks.Resolution() != TicksPerBeat {
		t.Errorf("time format = %v, want %d ticks per beat", file.TimeFormat, TicksPerBeat)
	}
	if len(file.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(file.Tracks))
	}

	for i, tr := range file.Tracks {
		var bpm float64
		if len(tr) == 0 || !tr[0].Message.GetMetaTempo(&bpm) || bpm != ExportTempo {
			t.Errorf("track %d does not open with a %g BPM tempo", i, ExportTempo)
		}
	}

	wantLoose := []tickedEvent{
		{480, midi.NoteOnEvent(0, 64, 90).Bytes()},
		{1440, midi.NoteOffEvent(0, 64).Bytes()},
	}
	// the bent note finds channel 0 still shared with key 64
	wantVoice := []tickedEvent{
		{0, midi.NoteOnEvent(0, 60, 100).Bytes()},
		{960, midi.NoteOffEvent(0, 60).Bytes()},
		{960, midi.BendEvent(1, 10240).Bytes()},
		{960, midi.NoteOnEvent(1, 60, 100).Bytes()},
		{1920, midi.NoteOffEvent(1, 60).Bytes()},
		{1920, midi.BendEvent(1, midi.NoBend).Bytes()},
	}
	for i, want := range [][]tickedEvent{wantLoose, wantVoice} {
		got := channelEvents(file.Tracks[i])
		if len(got) != len(want) {
			t.Errorf("track %d has %d channel events, want %d: %v", i, len(got), len(want), got)
			continue
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("track %d event %d = %v, want %v", i, j, got[j], want[j])
			}
		}
	}
}

func TestExportFoldsDevices(t *testing.T) {
	comp := Composition{Note{Key: 60, Duration: 1, Channel: 17, Velocity: 100}}
	path := filepath.Join(t.TempDir(), "out.mid")

	if _, err := ExportFile(path, comp); err != nil {
		t.Fatalf("ExportFile() error: %v", err)
	}
	file, err := smf.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := channelEvents(file.Tracks[0])
	if len(got) != 2 || got[0].b != midi.NoteOnEvent(1, 60, 100).Bytes() {
		t.Errorf("channel 17 exported as %v, want physical channel 1", got)
	}
}

func TestTrackTicks(t *testing.T) {
	tr := NewTrack(0)
	tr.Add(Dispatch{At: 0, Event: midi.NoteOnEvent(0, 60, 100)})
	tr.Add(Dispatch{At: 250_000_000, Event: midi.NoteOffEvent(0, 60)})
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d", tr.Len())
	}

	got := channelEvents(tr.SMF())
	if len(got) != 2 || got[1].tick != 240 {
		t.Errorf("quarter second rendered as %v, want tick 240", got)
	}
}

func TestExportTooLong(t *testing.T) {
	// fits a time.Duration but not 32-bit ticks
	comp := Composition{Note{Key: 60, Duration: 5e6, Velocity: 100}}
	var buf bytes.Buffer
	if _, err := Export(&buf, comp); !errors.Is(err, ErrExportLength) {
		t.Fatalf("Export() error = %v, want ErrExportLength", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for a rejected composition", buf.Len())
	}

	tr := NewTrack(0)
	tr.Add(Dispatch{At: MaxExportLength + time.Hour, Event: midi.NoteOnEvent(0, 60, 100)})
	if got := channelEvents(tr.SMF()); len(got) != 1 || got[0].tick != math.MaxUint32 {
		t.Errorf("late event rendered as %v, want tick clamped to %d", got, uint32(math.MaxUint32))
	}
}
