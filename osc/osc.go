// package osc provides oscillators. They are pure functions of time, so there
// is no phase to carry between samples and any number of voices can share
// them.
package osc

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/text/cases"
)

// Waveform selects the shape an oscillator produces.
type Waveform byte

const (
	Sine Waveform = iota
	Square
	Triangle
	AnalogSaw
	DigitalSaw
	Noise
)

var names = []string{
	Sine:       "sine",
	Square:     "square",
	Triangle:   "triangle",
	AnalogSaw:  "analog-saw",
	DigitalSaw: "digital-saw",
	Noise:      "noise",
}

func (w Waveform) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Waveform(%d)", byte(w))
	}
	return names[w]
}

// Valid reports whether w is one of the known waveforms.
func (w Waveform) Valid() bool { return int(w) < len(names) }

// ParseWaveform looks up a waveform by name, ignoring case.
func ParseWaveform(name string) (Waveform, error) {
	name = cases.Fold().String(name)
	for i, n := range names {
		if n == name {
			return Waveform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown waveform %q", name)
}

func (w Waveform) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid waveform %d", byte(w))
	}
	return []byte(names[w]), nil
}

func (w *Waveform) UnmarshalText(b []byte) error {
	p, err := ParseWaveform(string(b))
	if err != nil {
		return err
	}
	*w = p
	return nil
}

// LFO is a low frequency sine that modulates the pitch of an oscillator.
// The zero value does nothing.
type LFO struct {
	Hz    float64 `json:"hz"`
	Depth float64 `json:"depth"`
}

// harmonics is how many partials AnalogSaw sums.
const harmonics = 99

// Oscillate returns the value of a waveform with the given frequency at time
// t (in seconds). Sine, Square, Triangle and Noise stay in [-1, 1]; the saws
// overshoot slightly. Unknown waveforms are silent.
func Oscillate(t, hz float64, w Waveform, lfo LFO) float64 {
	phase := 2*math.Pi*hz*t + lfo.Depth*hz*math.Sin(2*math.Pi*lfo.Hz*t)

	switch w {
	case Sine:
		return math.Sin(phase)
	case Square:
		if math.Sin(phase) > 0 {
			return 1
		}
		return -1
	case Triangle:
		return math.Asin(math.Sin(phase)) * 2 / math.Pi
	case AnalogSaw:
		out := 0.0
		for n := 1.0; n <= harmonics; n++ {
			out += math.Sin(n*phase) / n
		}
		return out * 2 / math.Pi
	case DigitalSaw:
		if hz == 0 {
			return 0
		}
		period := 1 / hz
		m := math.Mod(t, period)
		if m < 0 {
			// Instruments run oscillators on negative time.
			m += period
		}
		return (2 / math.Pi) * (hz*math.Pi*m - math.Pi/2)
	case Noise:
		return 2*rand.Float64() - 1
	}
	return 0
}
