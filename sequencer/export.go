package sequencer

import (
	"context"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-microtone/midi"
)

// Export writes comp as a Standard MIDI File at 60 BPM.
//
// The composition is dispatched exactly as for live playback, with the same
// channel allocation, but against a virtual clock and discarding outputs;
// every message is captured with its time and placed on the note's track.
// Loose notes and chords share the first track and every voice gets one.
// Logical channels fold onto the file's 16 channels.
func Export(w io.Writer, comp Composition, opts ...Option) (Report, error) {
	if end := comp.End(); end > MaxExportLength {
		return Report{}, fmt.Errorf("%w: ends at %s, limit %s", ErrExportLength, end, MaxExportLength)
	}
	devices := comp.MaxChannel()/midi.ChannelsPerDevice + 1
	outputs := make([]midi.Output, devices)
	for i := range outputs {
		outputs[i] = midi.Discard(fmt.Sprintf("export %d", i))
	}
	registry := midi.NewRegistry(outputs...)

	tracks := make([]*Track, comp.TrackCount())
	for i := range tracks {
		tracks[i] = NewTrack(i)
	}

	opts = append(opts,
		WithClock(NewVirtualClock()),
		WithObserver(func(d Dispatch) {
			tracks[d.Note.Track].Add(d)
		}))
	sched := NewScheduler(NewAllocator(registry.Channels()), registry, opts...)
	sched.Schedule(comp...)
	rep, err := sched.Run(context.Background())
	if err != nil {
		return rep, err
	}

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(TicksPerBeat)
	for _, t := range tracks {
		if err := file.Add(t.SMF()); err != nil {
			return rep, fmt.Errorf("error adding track %d: %w", t.Index, err)
		}
	}
	if _, err := file.WriteTo(w); err != nil {
		return rep, fmt.Errorf("error writing MIDI file: %w", err)
	}
	return rep, nil
}

// ExportFile writes comp to path, see Export.
func ExportFile(path string, comp Composition, opts ...Option) (Report, error) {
	f, err := os.Create(path)
	if err != nil {
		return Report{}, err
	}
	rep, err := Export(f, comp, opts...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return rep, err
}
