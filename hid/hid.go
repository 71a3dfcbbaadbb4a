// package hid handles human interface devices: a computer keyboard played
// like a piano.
//
// Terminals only report key presses, and a held key shows up as a stream of
// repeats, so a key counts as held until no repeat has arrived for a while.
package hid

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pfcm/synth/pitch"
)

// Keys is the row of keys played as a keyboard, lowest note first. Each key
// is one semitone above the last.
const Keys = "zsxcfvgbnjmk,l."

// Degree returns the scale degree played by a key, or -1 if it doesn't play
// anything.
func Degree(r rune) int {
	return strings.IndexRune(Keys, r)
}

// Frequency is the pitch of a degree measured from pitch.OctaveBase, for
// display.
func Frequency(degree int) float64 {
	return pitch.Key(pitch.OctaveBase, degree)
}

// NoteSink receives notes. It must not block.
type NoteSink interface {
	NoteOn(channel, id int) error
	NoteOff(channel, id int) error
}

// Mode is how many keys can sound at once.
type Mode byte

const (
	// Poly plays every held key on its own channel.
	Poly Mode = iota
	// Mono plays one key at a time on channel 0. A new key takes over from
	// the old one.
	Mono
)

func (m Mode) String() string {
	switch m {
	case Poly:
		return "poly"
	case Mono:
		return "mono"
	}
	return fmt.Sprintf("Mode(%d)", byte(m))
}

// ParseMode parses "poly" or "mono".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "poly":
		return Poly, nil
	case "mono":
		return Mono, nil
	}
	return 0, fmt.Errorf("unknown mode %q: want poly or mono", s)
}

// Channels is the number of channels a mode needs from its sink.
func (m Mode) Channels() int {
	if m == Mono {
		return 1
	}
	return len(Keys)
}

// DefaultHold is how long a key stays down without a repeat. It has to be
// longer than the terminal's delay before key repeat starts.
const DefaultHold = 600 * time.Millisecond

// Keyboard tracks which keys are held and tells a NoteSink when notes start
// and stop. Pressing a key that is already held does nothing.
type Keyboard struct {
	sink NoteSink
	mode Mode
	hold time.Duration
	now  func() time.Time

	mu      sync.Mutex
	held    []time.Time // last press of each key, zero when up
	current int         // sounding key in Mono mode, or -1
}

// NewKeyboard returns a Keyboard sending to sink.
func NewKeyboard(sink NoteSink, mode Mode, hold time.Duration) *Keyboard {
	return &Keyboard{
		sink:    sink,
		mode:    mode,
		hold:    hold,
		now:     time.Now,
		held:    make([]time.Time, len(Keys)),
		current: -1,
	}
}

// Mode returns the keyboard's mode.
func (k *Keyboard) Mode() Mode { return k.mode }

// Press records that r was pressed. Keys that don't play anything are
// ignored.
func (k *Keyboard) Press(r rune) error {
	d := Degree(r)
	if d < 0 {
		return nil
	}
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	repeat := !k.held[d].IsZero()
	k.held[d] = now
	switch k.mode {
	case Mono:
		if k.current == d {
			return nil
		}
		if k.current >= 0 {
			k.held[k.current] = time.Time{}
		}
		k.current = d
		return k.sink.NoteOn(0, d)
	default:
		if repeat {
			return nil
		}
		return k.sink.NoteOn(d, d)
	}
}

// Poll releases every key that hasn't been pressed within the hold time.
func (k *Keyboard) Poll() error {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	var first error
	for d, t := range k.held {
		if t.IsZero() || now.Sub(t) < k.hold {
			continue
		}
		if err := k.release(d); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReleaseAll lets go of every key.
func (k *Keyboard) ReleaseAll() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var first error
	for d, t := range k.held {
		if t.IsZero() {
			continue
		}
		if err := k.release(d); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (k *Keyboard) release(d int) error {
	k.held[d] = time.Time{}
	if k.mode == Mono {
		if k.current != d {
			return nil
		}
		k.current = -1
		return k.sink.NoteOff(0, d)
	}
	return k.sink.NoteOff(d, d)
}

// Held returns the degrees of the keys currently down, lowest first.
func (k *Keyboard) Held() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	var ds []int
	for d, t := range k.held {
		if !t.IsZero() {
			ds = append(ds, d)
		}
	}
	return ds
}

// Run polls for released keys every interval until ctx is done, then
// releases everything. Errors from the sink are logged rather than stopping
// the keyboard: a dropped note is better than no input.
func (k *Keyboard) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return k.ReleaseAll()
		case <-t.C:
			if err := k.Poll(); err != nil {
				log.Printf("Releasing keys: %v", err)
			}
		}
	}
}
