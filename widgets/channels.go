package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-microtone/midi"
	"go-microtone/sequencer"
	"go-microtone/theme"
)

// RenderSlot renders one channel: mode symbol followed by reference count.
func RenderSlot(th *theme.Theme, s sequencer.Slot) string {
	switch s.Mode {
	case sequencer.Microtonal:
		style := lipgloss.NewStyle().Foreground(th.Bent())
		return style.Render(string(th.Symbols.Bent) + " ")
	case sequencer.EqualTempered:
		style := lipgloss.NewStyle().Foreground(th.Tempered())
		count := string(th.Symbols.Overflow)
		if s.Refs < 10 {
			count = fmt.Sprint(s.Refs)
		}
		return style.Render(string(th.Symbols.Tempered) + count)
	}
	style := lipgloss.NewStyle().Foreground(th.Muted())
	return style.Render(string(th.Symbols.Free) + " ")
}

// RenderChannelTable renders the channel table one device per row:
//
//	dev 0 │ ◆ ●2 ·  ·  ...
func RenderChannelTable(th *theme.Theme, slots []sequencer.Slot) string {
	label := lipgloss.NewStyle().Foreground(th.FG())
	var lines []string
	for dev := 0; dev*midi.ChannelsPerDevice < len(slots); dev++ {
		var line strings.Builder
		line.WriteString(label.Render(fmt.Sprintf("dev %d %c", dev, th.Symbols.Separator)))
		end := min(len(slots), (dev+1)*midi.ChannelsPerDevice)
		for _, s := range slots[dev*midi.ChannelsPerDevice : end] {
			line.WriteString(" ")
			line.WriteString(RenderSlot(th, s))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderProgress renders a bar width cells wide, filled to frac (0-1) with
// the palette gradient.
func RenderProgress(th *theme.Theme, frac float64, width int) string {
	frac = max(0, min(1, frac))
	filled := int(frac * float64(width))
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(lipgloss.NewStyle().Foreground(th.Muted()).Render("─"))
			continue
		}
		norm := float64(i) / float64(max(1, width-1))
		b.WriteString(lipgloss.NewStyle().Foreground(th.Color(norm)).Render("━"))
	}
	return b.String()
}

// RenderLegendItem renders a single legend item: "◆ Name - description"
func RenderLegendItem(color lipgloss.Color, symbol rune, name, desc string) string {
	style := lipgloss.NewStyle().Foreground(color)
	return fmt.Sprintf("  %s %s - %s", style.Render(string(symbol)), name, desc)
}

// RenderLegend explains the channel table symbols
func RenderLegend(th *theme.Theme) string {
	return strings.Join([]string{
		RenderLegendItem(th.Muted(), th.Symbols.Free, "free", "no notes"),
		RenderLegendItem(th.Tempered(), th.Symbols.Tempered, "tempered", "shared by N equal-tempered notes"),
		RenderLegendItem(th.Bent(), th.Symbols.Bent, "bent", "owned by one microtonal note"),
	}, "\n")
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
