package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-microtone/sequencer"
	"go-microtone/theme"
	"go-microtone/widgets"
)

const (
	frameRate     = 20 // channel table refreshes per second
	progressWidth = 48
)

// Model is a live monitor of one session run. Quitting cancels the run,
// which silences every device before the program exits.
type Model struct {
	Session *sequencer.Session
	Comp    sequencer.Composition
	Theme   *theme.Theme

	ctx      context.Context
	cancel   context.CancelFunc
	length   time.Duration
	stopping bool
	done     *DoneMsg
}

type tickMsg time.Time

// DoneMsg carries the result of the session run
type DoneMsg struct {
	Report sequencer.Report
	Err    error
}

func NewModel(ctx context.Context, session *sequencer.Session, comp sequencer.Composition, th *theme.Theme) Model {
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		Session: session,
		Comp:    comp,
		Theme:   th,
		ctx:     ctx,
		cancel:  cancel,
		length:  comp.End(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) run() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.Session.Run(m.ctx, m.Comp)
		return DoneMsg{Report: rep, Err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(), tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// the run unwinds through panic and sends DoneMsg
			m.stopping = true
			m.cancel()
		}

	case tickMsg:
		if m.done != nil {
			return m, nil
		}
		return m, tick()

	case DoneMsg:
		m.done = &msg
		m.cancel()
		return m, tea.Quit
	}

	return m, nil
}

// Done returns the run's result once the session has finished.
func (m Model) Done() (DoneMsg, bool) {
	if m.done == nil {
		return DoneMsg{}, false
	}
	return *m.done, true
}

func (m Model) View() string {
	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	state := "PLAY"
	switch {
	case m.done != nil:
		state = "DONE"
	case m.stopping:
		state = "PANIC"
	}

	elapsed := m.Session.Clock().Elapsed().Truncate(100 * time.Millisecond)
	if m.done != nil || elapsed > m.length {
		elapsed = m.length
	}
	sounding := 0
	if sched := m.Session.Scheduler(); sched != nil {
		sounding = sched.Active()
	}
	alloc := m.Session.Allocator()

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(fmt.Sprintf("go-microtone  %s  %s / %s  sounding:%d  channels in use:%d/%d",
		state, elapsed, m.length.Truncate(100*time.Millisecond), sounding, alloc.InUse(), alloc.Len())))
	out.WriteString("\n")
	progress := 1.0
	if m.length > 0 {
		progress = float64(elapsed) / float64(m.length)
	}
	out.WriteString(widgets.RenderProgress(m.Theme, progress, progressWidth))
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderChannelTable(m.Theme, alloc.Snapshot()))
	out.WriteString("\n\n")
	out.WriteString(widgets.RenderLegend(m.Theme))
	out.WriteString("\n\n")
	if m.stopping {
		out.WriteString(warnStyle.Render("silencing all channels..."))
		out.WriteString("\n")
	}
	out.WriteString(dimStyle.Render(widgets.RenderKeyHelp([]widgets.KeySection{
		{Keys: []widgets.KeyBinding{
			{Key: "q / ctrl+c", Desc: "stop and silence all channels"},
		}},
	})))
	out.WriteString("\n")
	return out.String()
}
