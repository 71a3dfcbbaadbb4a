package synth

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/pfcm/synth/internal/buffer"
)

// ErrQueueFull is returned when the audio goroutine has fallen too far
// behind to take another event.
var ErrQueueFull = errors.New("synth: event queue full")

// EventKind says what an Event does.
type EventKind byte

const (
	NoteOn EventKind = iota + 1
	NoteOff
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "on"
	case NoteOff:
		return "off"
	}
	return fmt.Sprintf("EventKind(%d)", byte(k))
}

// Event starts or releases the note on a channel.
type Event struct {
	Kind    EventKind
	Channel int
	ID      int
	Time    float64
	// Instrument plays the note. Only used by NoteOn.
	Instrument Instrument
}

type voice struct {
	note     Note
	inst     Instrument
	used     bool
	finished bool
}

// Mixer plays a fixed number of channels, one note each, and mixes them down
// to a single signal. Notes arrive as Events through a bounded queue so the
// audio goroutine never waits on the input side: it is the only goroutine
// that touches the voices.
//
// A NoteOn for a channel that is already holding the same note is ignored, so
// holding a key doesn't restart it. Any other NoteOn restarts the channel from
// the event time, cutting off whatever was releasing there.
type Mixer struct {
	clock    *Clock
	headroom float64
	events   chan Event
	voices   []voice
	scope    *buffer.Ring

	inst   atomic.Pointer[Instrument]
	active atomic.Int32
	level  atomic.Uint64
}

// MixerOption configures a Mixer.
type MixerOption func(m *Mixer)

// DefaultHeadroom is how much the mix is turned down to leave room for
// several voices at once.
const DefaultHeadroom = 0.4

// WithHeadroom sets the gain applied to the summed voices.
func WithHeadroom(h float64) MixerOption {
	return func(m *Mixer) { m.headroom = h }
}

// WithQueue sets how many events may be waiting for the audio goroutine.
func WithQueue(n int) MixerOption {
	return func(m *Mixer) { m.events = make(chan Event, n) }
}

// WithScope makes the mixer copy its output into r.
func WithScope(r *buffer.Ring) MixerOption {
	return func(m *Mixer) { m.scope = r }
}

// NewMixer creates a mixer with the given number of channels, playing inst
// until told otherwise.
func NewMixer(clock *Clock, channels int, inst Instrument, opts ...MixerOption) *Mixer {
	if channels <= 0 {
		panic("synth: mixer needs at least one channel")
	}
	m := &Mixer{
		clock:    clock,
		headroom: DefaultHeadroom,
		events:   make(chan Event, 64),
		voices:   make([]voice, channels),
	}
	for _, o := range opts {
		o(m)
	}
	m.SetInstrument(inst)
	return m
}

// Clock returns the clock the mixer advances.
func (m *Mixer) Clock() *Clock { return m.clock }

// Channels is the number of notes that can sound at once.
func (m *Mixer) Channels() int { return len(m.voices) }

// SetInstrument changes the instrument used by later NoteOn calls. Notes
// already playing keep theirs.
func (m *Mixer) SetInstrument(inst Instrument) {
	if inst == nil {
		panic("synth: nil instrument")
	}
	m.inst.Store(&inst)
}

// Instrument returns the instrument NoteOn will use.
func (m *Mixer) Instrument() Instrument { return *m.inst.Load() }

// NoteOn starts note id on a channel now.
func (m *Mixer) NoteOn(channel, id int) error {
	return m.Send(Event{
		Kind:       NoteOn,
		Channel:    channel,
		ID:         id,
		Time:       m.clock.Now(),
		Instrument: m.Instrument(),
	})
}

// NoteOff releases note id on a channel now. It does nothing if the channel
// is playing something else by the time it arrives.
func (m *Mixer) NoteOff(channel, id int) error {
	return m.Send(Event{
		Kind:    NoteOff,
		Channel: channel,
		ID:      id,
		Time:    m.clock.Now(),
	})
}

// Send queues an event for the audio goroutine without blocking.
func (m *Mixer) Send(e Event) error {
	if e.Channel < 0 || e.Channel >= len(m.voices) {
		return errors.Errorf("channel %d out of range [0, %d)", e.Channel, len(m.voices))
	}
	if e.Kind == NoteOn && e.Instrument == nil {
		return errors.New("note on without an instrument")
	}
	select {
	case m.events <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Voices is the number of notes sounding at the end of the last Tick.
func (m *Mixer) Voices() int { return int(m.active.Load()) }

// Level is a smoothed RMS of recent output.
func (m *Mixer) Level() float64 { return math.Float64frombits(m.level.Load()) }

// Tick fills out with the next samples, advancing the clock once per sample.
// It is meant to be called from the audio callback: it takes no locks and
// doesn't allocate.
func (m *Mixer) Tick(out []float32) {
	m.drain()
	var sq float64
	for i := range out {
		s := m.Sample(m.clock.Advance())
		out[i] = float32(s)
		sq += s * s
	}
	if len(out) > 0 {
		rms := math.Sqrt(sq / float64(len(out)))
		m.level.Store(math.Float64bits(0.01*m.Level() + 0.99*rms))
	}
	n := 0
	for _, v := range m.voices {
		if v.used {
			n++
		}
	}
	m.active.Store(int32(n))
	if m.scope != nil {
		m.scope.Write(out)
	}
}

// Sample mixes every sounding note at time t. Notes whose instrument said
// they were finished on the previous call are dropped first, so a note is
// never removed in the same call that reads it. Only the audio goroutine may
// call Sample.
func (m *Mixer) Sample(t float64) float64 {
	var out float64
	for i := range m.voices {
		v := &m.voices[i]
		if !v.used {
			continue
		}
		if v.finished {
			*v = voice{}
			continue
		}
		s, finished := v.inst.Sound(t, v.note)
		// A held note can be silent too, e.g. right as it starts.
		v.finished = finished && !v.note.Held()
		out += s
	}
	out *= m.headroom
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0
	}
	return out
}

// drain applies whatever events are waiting, without waiting for more.
func (m *Mixer) drain() {
	for i := 0; i < cap(m.events); i++ {
		select {
		case e := <-m.events:
			m.apply(e)
		default:
			return
		}
	}
}

func (m *Mixer) apply(e Event) {
	v := &m.voices[e.Channel]
	switch e.Kind {
	case NoteOn:
		if v.used && v.note.Held() && v.note.ID == e.ID {
			return
		}
		*v = voice{
			used: true,
			inst: e.Instrument,
			note: Note{
				ID:      e.ID,
				On:      e.Time,
				Off:     math.Inf(-1),
				Active:  true,
				Channel: e.Channel,
			},
		}
	case NoteOff:
		if !v.used || !v.note.Held() || v.note.ID != e.ID {
			return
		}
		v.note.Off = max(e.Time, v.note.On)
		v.note.Active = false
	}
}
