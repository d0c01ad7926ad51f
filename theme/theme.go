package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Channel table
	Free      rune // · nobody holds the channel
	Tempered  rune // ● shared by equal-tempered notes
	Bent      rune // ◆ owned by one microtonal note
	Overflow  rune // + more references than fit a digit
	Separator rune // │ between devices
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = Plasma
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Free:      '·',
			Tempered:  '●',
			Bent:      '◆',
			Overflow:  '+',
			Separator: '│',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0 // deep purple
	RoleMuted    = 0.2 // purple-magenta
	RoleFG       = 0.4 // pink-purple (readable)
	RoleAccent   = 0.5 // vivid magenta
	RoleTempered = 0.6 // rose
	RoleWarning  = 0.8 // orange
	RoleBent     = 1.0 // bright yellow
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

// Tempered colors channels shared by equal-tempered notes
func (t *Theme) Tempered() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleTempered))
}

// Bent colors channels owned by a microtonal note
func (t *Theme) Bent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBent))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}
