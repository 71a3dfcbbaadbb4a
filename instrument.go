// package synth turns notes into samples. An Instrument decides what a note
// sounds like at a given time, and a Mixer plays any number of notes at once
// from inside an audio callback.
package synth

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/pfcm/synth/env"
	"github.com/pfcm/synth/osc"
	"github.com/pfcm/synth/pitch"
)

// Instrument produces the sound of a note. finished reports that the note's
// envelope has died away to nothing.
type Instrument interface {
	Sound(t float64, n Note) (sample float64, finished bool)

	fmt.Stringer
}

// Partial is one oscillator in a Patch.
type Partial struct {
	// Offset is added to the note, in semitones.
	Offset int          `json:"offset"`
	Weight float64      `json:"weight"`
	Wave   osc.Waveform `json:"wave"`
	LFO    osc.LFO      `json:"lfo,omitempty"`
}

// Patch is an Instrument made from a weighted sum of oscillators under one
// envelope.
type Patch struct {
	Name     string    `json:"name"`
	Volume   float64   `json:"volume"`
	Envelope env.ADSR  `json:"envelope"`
	Partials []Partial `json:"partials"`
	// Scale maps note IDs to frequencies.
	Scale pitch.Scale `json:"-"`
}

var _ Instrument = &Patch{}

func (p *Patch) String() string { return p.Name }

// Validate checks the patch can be played.
func (p *Patch) Validate() error {
	if p.Name == "" {
		return errors.New("instrument has no name")
	}
	if !finite(p.Volume) {
		return errors.Errorf("instrument %q: volume %v is not finite", p.Name, p.Volume)
	}
	if err := p.Envelope.Validate(); err != nil {
		return errors.Wrapf(err, "instrument %q", p.Name)
	}
	if len(p.Partials) == 0 {
		return errors.Errorf("instrument %q has no partials", p.Name)
	}
	for i, part := range p.Partials {
		if !part.Wave.Valid() {
			return errors.Errorf("instrument %q: partial %d has unknown waveform %v", p.Name, i, part.Wave)
		}
		if !finite(part.Weight) || !finite(part.LFO.Hz) || !finite(part.LFO.Depth) {
			return errors.Errorf("instrument %q: partial %d has a non-finite parameter", p.Name, i)
		}
	}
	return nil
}

// Sound returns the patch's sample for n at time t. The oscillators run on
// n.On - t rather than t so every note starts from the same phase.
func (p *Patch) Sound(t float64, n Note) (float64, bool) {
	amp := p.Envelope.Amplitude(t, n.On, n.Off)
	if amp <= 0 {
		return 0, true
	}
	var (
		dt  = n.On - t
		out float64
	)
	for _, part := range p.Partials {
		hz := pitch.Frequency(n.ID+part.Offset, p.Scale)
		out += part.Weight * osc.Oscillate(dt, hz, part.Wave, part.LFO)
	}
	return amp * out * p.Volume, false
}

// vibrato is the pitch wobble both built in instruments put on their
// fundamental.
var vibrato = osc.LFO{Hz: 5, Depth: 0.001}

// Bell is a square wave with two sine overtones, a sharp attack and a long
// release.
func Bell() *Patch {
	return &Patch{
		Name:   "bell",
		Volume: 1,
		Envelope: env.ADSR{
			Attack:  0.01,
			Decay:   0.5,
			Sustain: 0.8,
			Release: 1.0,
			Start:   1.0,
		},
		Partials: []Partial{
			{Offset: 0, Weight: 1.00, Wave: osc.Square, LFO: vibrato},
			{Offset: 12, Weight: 0.50, Wave: osc.Sine},
			{Offset: 24, Weight: 0.25, Wave: osc.Sine},
		},
	}
}

// Harmonica is two reedy square waves with a little breath noise.
func Harmonica() *Patch {
	return &Patch{
		Name:   "harmonica",
		Volume: 1,
		Envelope: env.ADSR{
			Attack:  0.05,
			Decay:   1.0,
			Sustain: 0.95,
			Release: 0.1,
			Start:   1.0,
		},
		Partials: []Partial{
			{Offset: 0, Weight: 1.00, Wave: osc.Square, LFO: vibrato},
			{Offset: 12, Weight: 0.50, Wave: osc.Square},
			{Offset: 24, Weight: 0.05, Wave: osc.Noise},
		},
	}
}

// Registry holds the instruments available by name.
type Registry struct {
	patches []*Patch
}

// NewRegistry returns a registry with the built in instruments followed by
// extra. Every patch is validated and names must be unique ignoring case.
func NewRegistry(extra ...*Patch) (*Registry, error) {
	r := &Registry{}
	for _, p := range append([]*Patch{Bell(), Harmonica()}, extra...) {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, err := r.Lookup(p.Name); err == nil {
			return nil, errors.Errorf("duplicate instrument %q", p.Name)
		}
		r.patches = append(r.patches, p)
	}
	return r, nil
}

// Lookup finds an instrument by name, ignoring case.
func (r *Registry) Lookup(name string) (*Patch, error) {
	fold := cases.Fold()
	want := fold.String(name)
	for _, p := range r.patches {
		if fold.String(p.Name) == want {
			return p, nil
		}
	}
	return nil, errors.Errorf("unknown instrument %q", name)
}

// Names lists the instrument names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.patches))
	for i, p := range r.patches {
		names[i] = p.Name
	}
	return names
}

// Next returns the instrument after the one named like cur, wrapping around.
// Unknown or nil cur gives the first.
func (r *Registry) Next(cur Instrument) *Patch {
	if cur == nil {
		return r.patches[0]
	}
	fold := cases.Fold()
	name := fold.String(cur.String())
	for i, p := range r.patches {
		if fold.String(p.Name) == name {
			return r.patches[(i+1)%len(r.patches)]
		}
	}
	return r.patches[0]
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
