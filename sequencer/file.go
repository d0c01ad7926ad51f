package sequencer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Composition files are JSON:
//
//	{"events": [
//	  {"type": "note",  "key": 60.5, "onset": 0, "duration": 1, "channel": 0, "velocity": 100},
//	  {"type": "chord", "keys": [60, 64, 67], "onset": 1, "duration": 1},
//	  {"type": "voice", "keys": [60, [64, 67], 72.25], "onsets": [0, 1, 2],
//	   "durations": [1, 1, 1], "velocities": [90, 90, 90], "channel": 2}
//	]}
//
// A voice key entry is a number (note) or an array of numbers (chord).
// Velocity defaults to 127.

type fileState struct {
	Events []eventState `json:"events"`
}

type eventState struct {
	Type string `json:"type"`

	Key      float64 `json:"key,omitempty"`
	Keys     []Keys  `json:"keys,omitempty"`
	Onset    float64 `json:"onset,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Velocity *int    `json:"velocity,omitempty"`

	Onsets     []float64 `json:"onsets,omitempty"`
	Durations  []float64 `json:"durations,omitempty"`
	Velocities []int     `json:"velocities,omitempty"`

	Channel int `json:"channel"`
}

// UnmarshalJSON accepts a number or an array of numbers.
func (k *Keys) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var keys []float64
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		*k = keys
		return nil
	}
	var key float64
	if err := json.Unmarshal(data, &key); err != nil {
		return fmt.Errorf("key must be a number or an array of numbers: %w", err)
	}
	*k = Keys{key}
	return nil
}

// MarshalJSON writes a single key as a number.
func (k Keys) MarshalJSON() ([]byte, error) {
	if len(k) == 1 {
		return json.Marshal(k[0])
	}
	return json.Marshal([]float64(k))
}

// Decode reads a composition file.
func Decode(r io.Reader) (Composition, error) {
	var fs fileState
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fs); err != nil {
		return nil, err
	}

	comp := make(Composition, 0, len(fs.Events))
	for i, es := range fs.Events {
		e, err := es.event()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		comp = append(comp, e)
	}
	return comp, nil
}

// Encode writes comp as an indented composition file.
func Encode(w io.Writer, comp Composition) error {
	fs := fileState{Events: make([]eventState, 0, len(comp))}
	for _, e := range comp {
		fs.Events = append(fs.Events, stateOf(e))
	}
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Load reads a composition file from disk
func Load(path string) (Composition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	comp, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return comp, nil
}

// Save writes a composition file to disk
func Save(path string, comp Composition) error {
	var buf bytes.Buffer
	if err := Encode(&buf, comp); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (es eventState) event() (Event, error) {
	switch es.Type {
	case "note":
		v, err := velocity(es.Velocity)
		if err != nil {
			return nil, err
		}
		return Note{Key: es.Key, Onset: es.Onset, Duration: es.Duration, Channel: es.Channel, Velocity: v}, nil

	case "chord":
		v, err := velocity(es.Velocity)
		if err != nil {
			return nil, err
		}
		var keys []float64
		for _, k := range es.Keys {
			keys = append(keys, k...)
		}
		return Chord{Keys: keys, Onset: es.Onset, Duration: es.Duration, Channel: es.Channel, Velocity: v}, nil

	case "voice":
		vels := make([]uint8, 0, len(es.Velocities))
		for _, raw := range es.Velocities {
			v, err := velocity(&raw)
			if err != nil {
				return nil, err
			}
			vels = append(vels, v)
		}
		if es.Velocities == nil {
			for range es.Keys {
				vels = append(vels, DefaultVelocity)
			}
		}
		return Voice{
			Keys:       es.Keys,
			Onsets:     es.Onsets,
			Durations:  es.Durations,
			Velocities: vels,
			Channel:    es.Channel,
		}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", es.Type)
}

func stateOf(e Event) eventState {
	switch e := e.(type) {
	case Note:
		v := int(e.Velocity)
		return eventState{Type: "note", Key: e.Key, Onset: e.Onset, Duration: e.Duration, Channel: e.Channel, Velocity: &v}
	case Chord:
		v := int(e.Velocity)
		keys := make([]Keys, 0, len(e.Keys))
		for _, k := range e.Keys {
			keys = append(keys, Keys{k})
		}
		return eventState{Type: "chord", Keys: keys, Onset: e.Onset, Duration: e.Duration, Channel: e.Channel, Velocity: &v}
	case Voice:
		vels := make([]int, 0, len(e.Velocities))
		for _, v := range e.Velocities {
			vels = append(vels, int(v))
		}
		return eventState{
			Type:       "voice",
			Keys:       e.Keys,
			Onsets:     e.Onsets,
			Durations:  e.Durations,
			Velocities: vels,
			Channel:    e.Channel,
		}
	}
	return eventState{}
}

func velocity(v *int) (uint8, error) {
	if v == nil {
		return DefaultVelocity, nil
	}
	if *v < 0 || *v > 127 {
		return 0, fmt.Errorf("velocity %d out of range 0-127", *v)
	}
	return uint8(*v), nil
}
