package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go-microtone/midi"
)

const listTimeout = 3 * time.Second

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "note":
		if len(os.Args) < 4 {
			usage()
			return
		}
		err = playNote(os.Args[2], os.Args[3])
	case "panic":
		if len(os.Args) < 3 {
			usage()
			return
		}
		err = panicPort(os.Args[2])
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI Output Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List all MIDI output ports")
	fmt.Println("  note <selector> <key> - Play one (possibly fractional) key for a second")
	fmt.Println("  panic <selector>     - Silence every channel of the first matching port")
}

func listPorts() error {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	outs, err := midi.ListOutPorts(listTimeout)
	if err != nil {
		fmt.Println("\nTIMEOUT! The MIDI service is hung.")
		return err
	}
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p.String())
	}
	return nil
}

func playNote(selector, keyArg string) error {
	key, err := strconv.ParseFloat(keyArg, 64)
	if err != nil {
		return fmt.Errorf("key %q: %w", keyArg, err)
	}
	pitch, err := midi.SplitKey(key, midi.DefaultBendRange)
	if err != nil {
		return err
	}

	registry, err := midi.OpenRegistry(1, selector)
	if err != nil {
		return err
	}
	defer registry.Close()

	out, ch, err := registry.Resolve(0)
	if err != nil {
		return err
	}
	fmt.Printf("Using output: %s\n", out.ID())
	fmt.Printf("Key %g -> note %d, bend %d\n", key, pitch.Key, pitch.Bend)

	on, off := pitch.Events(ch, 100)
	for _, e := range on {
		fmt.Printf("  send %s\n", e)
		if err := out.Send(e); err != nil {
			return err
		}
	}
	time.Sleep(time.Second)
	for _, e := range off {
		fmt.Printf("  send %s\n", e)
		if err := out.Send(e); err != nil {
			return err
		}
	}

	fmt.Println("Done!")
	return nil
}

func panicPort(selector string) error {
	registry, err := midi.OpenRegistry(1, selector)
	if err != nil {
		return err
	}
	defer registry.Close()

	fmt.Printf("Silencing %s...\n", registry.Outputs()[0].ID())
	registry.Panic()
	fmt.Println("Done!")
	return nil
}
