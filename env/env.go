// package env provides envelope generators.
//
// Envelopes here hold no state between samples: the amplitude at any time is
// recomputed from the times the note was switched on and off, so a single
// envelope can be shared by every note of an instrument.
package env

import (
	"fmt"
	"math"

	"github.com/pfcm/synth/interp"
)

// Epsilon is the amplitude below which an envelope is considered silent.
const Epsilon = 1e-6

// Envelope shapes the amplitude of a note. A note is held while on > off.
type Envelope interface {
	Amplitude(t, on, off float64) float64
}

// Stage is the part of an envelope a note is in.
type Stage byte

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	return []string{
		Idle:    "x",
		Attack:  "A",
		Decay:   "D",
		Sustain: "S",
		Release: "R",
	}[s]
}

// ADSR is an attack-decay-sustain-release envelope. While the note is held it
// ramps linearly from 0 to Start over Attack seconds, then to Sustain over
// Decay seconds, and holds there. Once released it ramps from wherever it was
// down to 0 over Release seconds. Zero length ramps jump straight to their
// target.
type ADSR struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
	Start   float64 `json:"start"`
}

var _ Envelope = ADSR{}

// Default is the envelope instruments get if they don't set one.
func Default() ADSR {
	return ADSR{
		Attack:  0.1,
		Decay:   0.1,
		Sustain: 1.0,
		Release: 0.2,
		Start:   1.0,
	}
}

func (a ADSR) String() string {
	return fmt.Sprintf("ADSR(%v,%v,%v,%v,%v)", a.Attack, a.Decay, a.Sustain, a.Release, a.Start)
}

// Validate checks every parameter is finite and not negative.
func (a ADSR) Validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"attack", a.Attack},
		{"decay", a.Decay},
		{"sustain", a.Sustain},
		{"release", a.Release},
		{"start", a.Start},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v < 0 {
			return fmt.Errorf("envelope %s must be a finite value >= 0, got %v", p.name, p.v)
		}
	}
	return nil
}

// Amplitude returns the envelope's value at time t for a note switched on at
// on and off at off.
func (a ADSR) Amplitude(t, on, off float64) float64 {
	var amp float64
	if on > off {
		amp = a.held(t - on)
	} else {
		// Release from wherever the held envelope had got to.
		from := a.held(off - on)
		amp = interp.L(from, 0, pos(off, t, off+a.Release))
	}
	if amp <= Epsilon {
		return 0
	}
	return amp
}

// held is the amplitude life seconds after the note started, ignoring
// release.
func (a ADSR) held(life float64) float64 {
	switch {
	case life <= a.Attack:
		return interp.L(0, a.Start, pos(0, life, a.Attack))
	case life <= a.Attack+a.Decay:
		return interp.L(a.Start, a.Sustain, pos(a.Attack, life, a.Attack+a.Decay))
	}
	return a.Sustain
}

// Stage reports which part of the envelope the note is in at time t.
func (a ADSR) Stage(t, on, off float64) Stage {
	if on <= off {
		if a.Amplitude(t, on, off) == 0 {
			return Idle
		}
		return Release
	}
	switch life := t - on; {
	case life <= a.Attack:
		return Attack
	case life <= a.Attack+a.Decay:
		return Decay
	}
	return Sustain
}

// pos returns a coefficient between 0 and 1 depending on where x is between
// start and end.
func pos(start, x, end float64) float64 {
	return max(0, interp.Pos(start, x, end))
}
