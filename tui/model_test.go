package tui

import (
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-microtone/midi"
	"go-microtone/sequencer"
	"go-microtone/theme"
)

func newTestModel() Model {
	registry := midi.NewRegistry(midi.NewRecorder("synth"))
	registry.SetPanicDelay(0)
	session := sequencer.NewSession(registry,
		sequencer.WithClock(sequencer.NewVirtualClock()),
		sequencer.WithNotice(io.Discard))
	comp := sequencer.Composition{sequencer.Note{Key: 60.5, Duration: 1, Velocity: 90}}
	return NewModel(context.Background(), session, comp, theme.New(nil))
}

func TestModelRunsSession(t *testing.T) {
	m := newTestModel()
	msg := m.run()()
	done, ok := msg.(DoneMsg)
	if !ok {
		t.Fatalf("run produced %T, want DoneMsg", msg)
	}
	if done.Err != nil || done.Report.Released != 1 {
		t.Errorf("done = %+v", done)
	}

	updated, cmd := m.Update(done)
	if cmd == nil {
		t.Fatal("DoneMsg did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg command is not tea.Quit")
	}
	got, ok := updated.(Model).Done()
	if !ok || got.Report.Released != 1 {
		t.Errorf("Done() = %+v, %v", got, ok)
	}
	if !strings.Contains(updated.View(), "DONE") {
		t.Error("view does not show the finished state")
	}
}

func TestModelQuitCancels(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	um := updated.(Model)
	if !um.stopping {
		t.Error("q did not start stopping")
	}
	if um.ctx.Err() == nil {
		t.Error("q did not cancel the run context")
	}
	if !strings.Contains(um.View(), "PANIC") {
		t.Error("view does not show the panic state")
	}
}
