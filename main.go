package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"go-microtone/config"
	"go-microtone/debug"
	"go-microtone/midi"
	"go-microtone/sequencer"
	"go-microtone/theme"
	"go-microtone/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("go-microtone", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: go-microtone [flags] [composition.json]")
		fs.PrintDefaults()
	}

	cfgPath := fs.String("config", "", "config file (default ~/.config/go-microtone/config.json)")
	ports := fs.Int("ports", 0, "number of output ports to open")
	selector := fs.String("selector", "", "output port name selector")
	bendRange := fs.Float64("bend-range", 0, "synth pitch-bend range in semitones")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "also write a debug log to this file")
	export := fs.String("export", "", "write the composition to this MIDI file instead of playing it")
	dryRun := fs.Bool("dry-run", false, "play in real time without opening ports")
	monitor := fs.Bool("tui", false, "show the live channel monitor")
	demo := fs.Bool("demo", false, "play the built-in demo")
	seed := fs.Int64("seed", 1, "random seed for the demo")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return err
	}
	// flags win over file and environment
	if *ports > 0 {
		cfg.Output.PortCount = *ports
	}
	if *selector != "" {
		cfg.Output.Selector = *selector
	}
	if *bendRange != 0 {
		cfg.BendRange = *bendRange
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	consoleLevel := cfg.LogLevel
	if *monitor {
		// keep the alt screen clean
		consoleLevel = "error"
	}
	if err := debug.Init(consoleLevel); err != nil {
		return err
	}
	if cfg.LogFile != "" {
		if err := debug.Enable(cfg.LogFile); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer debug.Disable()
	}
	defer debug.Sync()

	var comp sequencer.Composition
	switch {
	case *demo:
		comp = demoComposition(rand.New(rand.NewSource(*seed)))
	case fs.NArg() == 1:
		comp, err = sequencer.Load(fs.Arg(0))
		if err != nil {
			return err
		}
	default:
		fs.Usage()
		return fmt.Errorf("expected one composition file or -demo")
	}

	if *export != "" {
		rep, err := sequencer.ExportFile(*export, comp, sequencer.WithBendRange(cfg.BendRange))
		if err != nil {
			return err
		}
		printReport(os.Stdout, rep)
		fmt.Printf("wrote %s (%d tracks)\n", *export, comp.TrackCount())
		return nil
	}

	var th *theme.Theme
	if *monitor {
		if th, err = loadTheme(cfg.Palette); err != nil {
			return err
		}
	}

	registry, err := openRegistry(cfg, *dryRun, comp)
	if err != nil {
		return err
	}
	registry.SetPanicDelay(cfg.PanicDelay())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []sequencer.Option{sequencer.WithBendRange(cfg.BendRange)}
	if *monitor {
		opts = append(opts, sequencer.WithNotice(io.Discard))
	}
	session := sequencer.NewSession(registry, opts...)

	var rep sequencer.Report
	if *monitor {
		rep, err = runMonitor(ctx, th, session, comp)
	} else {
		rep, err = session.Run(ctx, comp)
	}
	printReport(os.Stdout, rep)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openRegistry opens the configured ports, or recorders when dry-running.
func openRegistry(cfg *config.Config, dryRun bool, comp sequencer.Composition) (*midi.Registry, error) {
	if !dryRun {
		return midi.OpenRegistry(cfg.Output.PortCount, cfg.Output.Selector)
	}
	devices := max(cfg.Output.PortCount, comp.MaxChannel()/midi.ChannelsPerDevice+1)
	outs := make([]midi.Output, devices)
	for i := range outs {
		outs[i] = midi.NewRecorder(fmt.Sprintf("dry-run %d", i))
	}
	debug.L().Info("dry run", zap.Int("devices", devices))
	return midi.NewRegistry(outs...), nil
}

func loadTheme(path string) (*theme.Theme, error) {
	if path == "" {
		return theme.New(theme.Plasma), nil
	}
	p, err := theme.LoadGPL(path)
	if err != nil {
		return nil, err
	}
	return theme.New(p), nil
}

func runMonitor(ctx context.Context, th *theme.Theme, session *sequencer.Session, comp sequencer.Composition) (sequencer.Report, error) {
	// a signal cancels ctx; the model quits once the session has unwound
	m := tui.NewModel(ctx, session, comp, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(tui.Model); ok {
		if done, ok := fm.Done(); ok {
			return done.Report, done.Err
		}
	}
	return sequencer.Report{}, err
}

func printReport(w io.Writer, rep sequencer.Report) {
	fmt.Fprintf(w, "notes: %d  sounded: %d  released: %d  skipped: %d  dropped messages: %d\n",
		rep.Notes, rep.Sounded, rep.Released, len(rep.Skipped), rep.Dropped)
	for _, ne := range rep.Skipped {
		fmt.Fprintf(w, "  skipped %v\n", ne)
	}
	if rep.Interrupted {
		fmt.Fprintln(w, "interrupted: all channels silenced")
	}
}

// demoComposition is a rising line of 100 notes, each nudged by a random
// quarter-tone step, a tenth of a second apart.
func demoComposition(rng *rand.Rand) sequencer.Composition {
	offsets := []float64{0, 0.25, 0.5, 0.75}
	v := sequencer.Voice{Channel: 0}
	for i := 0; i < 100; i++ {
		key := float64(10+i) + offsets[rng.Intn(len(offsets))]
		v.Keys = append(v.Keys, sequencer.Keys{key})
		v.Onsets = append(v.Onsets, float64(i)*0.1)
		v.Durations = append(v.Durations, 0.1)
		v.Velocities = append(v.Velocities, 70)
	}
	return sequencer.Composition{v}
}
