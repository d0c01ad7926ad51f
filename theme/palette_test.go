package theme

import (
	"strings"
	"testing"
)

const sampleGPL = `GIMP Palette
Name: Dusk
Columns: 2
# comment
  0   0   0	black
255 128 300	clipped
`

func TestParseGPL(t *testing.T) {
	p, err := ParseGPL(strings.NewReader(sampleGPL))
	if err != nil {
		t.Fatalf("ParseGPL() error: %v", err)
	}
	if p.Name != "Dusk" {
		t.Errorf("Name = %q, want Dusk", p.Name)
	}
	want := []RGB{{0, 0, 0}, {255, 128, 255}}
	if len(p.Colors) != len(want) {
		t.Fatalf("got %d colors, want %d", len(p.Colors), len(want))
	}
	for i := range want {
		if p.Colors[i] != want[i] {
			t.Errorf("color %d = %v, want %v", i, p.Colors[i], want[i])
		}
	}

	if _, err := ParseGPL(strings.NewReader("GIMP Palette\nName: empty\n")); err == nil {
		t.Error("ParseGPL() accepted a palette without colors")
	}
}

func TestLookup(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {200, 100, 50}}}
	if c := p.Lookup(0.5); c != (RGB{100, 50, 25}) {
		t.Errorf("Lookup(0.5) = %v", c)
	}
	if c := p.Lookup(-1); c != p.Colors[0] {
		t.Errorf("Lookup(-1) = %v", c)
	}
	if c := p.Lookup(2); c != p.Colors[1] {
		t.Errorf("Lookup(2) = %v", c)
	}

	single := &Palette{Colors: []RGB{{1, 2, 3}}}
	if c := single.Lookup(0.7); c != single.Colors[0] {
		t.Errorf("single color Lookup = %v", c)
	}
}

func TestThemeDefaultsToPlasma(t *testing.T) {
	th := New(nil)
	if th.Palette != Plasma {
		t.Error("New(nil) did not use the built-in palette")
	}
	if got := th.BG(); got != "#0d0887" {
		t.Errorf("BG() = %s, want #0d0887", got)
	}
	if got := th.Bent(); got != "#f0f921" {
		t.Errorf("Bent() = %s, want #f0f921", got)
	}
}
