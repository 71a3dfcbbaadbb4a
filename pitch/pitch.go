// package pitch maps notes to frequencies.
package pitch

import (
	"fmt"
	"math"
)

// Scale selects a tuning.
type Scale byte

const (
	// Default is 12 tone equal temperament anchored at Base.
	Default Scale = iota
)

func (s Scale) String() string {
	switch s {
	case Default:
		return "default"
	}
	return fmt.Sprintf("Scale(%d)", byte(s))
}

// Base is the frequency of note 0 in the Default scale. It is independent of
// OctaveBase.
const Base = 256.0

// OctaveBase is the frequency of the first key on the keyboard.
const OctaveBase = 220.0

// Frequency returns the frequency in Hz of a note given as an offset into a
// scale. Unknown scales fall back to Default.
func Frequency(note int, s Scale) float64 {
	switch s {
	case Default:
		fallthrough
	default:
		return Base * math.Exp2(float64(note)/12)
	}
}

// Key returns the frequency of the k-th semitone above base.
func Key(base float64, k int) float64 {
	return base * math.Exp2(float64(k)/12)
}
