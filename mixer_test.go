package synth

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/pfcm/synth/internal/buffer"
)

func held(id int, on float64) Note {
	return Note{ID: id, On: on, Off: math.Inf(-1)}
}

func TestMixerSuperposition(t *testing.T) {
	bell := Bell()
	m := NewMixer(NewClock(44100), 4, bell)
	for _, e := range []Event{
		{Kind: NoteOn, Channel: 0, ID: 0, Time: 0, Instrument: bell},
		{Kind: NoteOn, Channel: 1, ID: 7, Time: 0.01, Instrument: bell},
	} {
		if err := m.Send(e); err != nil {
			t.Fatal(err)
		}
	}
	m.drain()
	a, b := held(0, 0), held(7, 0.01)
	for tm := 0.02; tm < 1; tm += 0.0101 {
		sa, _ := bell.Sound(tm, a)
		sb, _ := bell.Sound(tm, b)
		want := (sa + sb) * DefaultHeadroom
		if got := m.Sample(tm); math.Abs(got-want) > 1e-12 {
			t.Fatalf("Sample(%v) = %v, want: %v", tm, got, want)
		}
	}
}

func TestMixerLegato(t *testing.T) {
	bell := Bell()
	m := NewMixer(NewClock(100), 1, bell)
	for _, e := range []Event{
		{Kind: NoteOn, Channel: 0, ID: 3, Time: 1, Instrument: bell},
		// same key still held: ignored.
		{Kind: NoteOn, Channel: 0, ID: 3, Time: 2, Instrument: bell},
	} {
		m.Send(e)
	}
	m.drain()
	if got := m.voices[0].note.On; got != 1 {
		t.Errorf("held note restarted: On = %v, want: 1", got)
	}

	// A different note on the same channel restarts it.
	m.Send(Event{Kind: NoteOn, Channel: 0, ID: 5, Time: 3, Instrument: bell})
	m.drain()
	if n := m.voices[0].note; n.ID != 5 || n.On != 3 || !n.Held() {
		t.Errorf("after retrigger: %v", n)
	}

	// Releasing the old note doesn't touch the new one.
	m.Send(Event{Kind: NoteOff, Channel: 0, ID: 3, Time: 4})
	m.drain()
	if n := m.voices[0].note; !n.Held() {
		t.Errorf("stale note off released %v", n)
	}

	m.Send(Event{Kind: NoteOff, Channel: 0, ID: 5, Time: 4})
	m.drain()
	if n := m.voices[0].note; n.Held() || n.Off != 4 || n.Active {
		t.Errorf("after note off: %v", n)
	}

	// Pressing the same key again after release restarts it.
	m.Send(Event{Kind: NoteOn, Channel: 0, ID: 5, Time: 4.5, Instrument: bell})
	m.drain()
	if n := m.voices[0].note; n.On != 4.5 || !n.Held() {
		t.Errorf("after repress: %v", n)
	}
}

func TestMixerRetire(t *testing.T) {
	bell := Bell()
	m := NewMixer(NewClock(100), 2, bell)
	m.Send(Event{Kind: NoteOn, Channel: 1, ID: 0, Time: 0, Instrument: bell})
	m.drain()

	// Silent at the very start, but held: stays.
	m.Sample(0)
	m.Sample(0)
	if !m.voices[1].used {
		t.Fatal("held note retired at its start")
	}

	m.Send(Event{Kind: NoteOff, Channel: 1, ID: 0, Time: 0.5})
	m.drain()
	m.Sample(0.6)
	if !m.voices[1].used || m.voices[1].finished {
		t.Fatal("note retired while releasing")
	}
	end := 0.5 + bell.Envelope.Release + 0.01
	m.Sample(end)
	if !m.voices[1].used {
		t.Fatal("note retired in the same sample it finished")
	}
	if !m.voices[1].finished {
		t.Fatal("note not marked finished after release")
	}
	if got := m.Sample(end + 0.01); got != 0 {
		t.Errorf("Sample after retire = %v, want: 0", got)
	}
	if m.voices[1].used {
		t.Error("finished note still in use")
	}
}

func TestMixerSend(t *testing.T) {
	bell := Bell()
	m := NewMixer(NewClock(100), 2, bell, WithQueue(1))
	if err := m.Send(Event{Kind: NoteOn, Channel: 2, Instrument: bell}); err == nil {
		t.Error("Send to channel 2 of 2 succeeded")
	}
	if err := m.Send(Event{Kind: NoteOn, Channel: -1, Instrument: bell}); err == nil {
		t.Error("Send to channel -1 succeeded")
	}
	if err := m.Send(Event{Kind: NoteOn, Channel: 0}); err == nil {
		t.Error("NoteOn without an instrument succeeded")
	}
	if err := m.NoteOn(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.NoteOn(1, 1); !errors.Is(err, ErrQueueFull) {
		t.Errorf("NoteOn on a full queue = %v, want: %v", err, ErrQueueFull)
	}
	m.drain()
	if err := m.NoteOff(0, 1); err != nil {
		t.Errorf("NoteOff after drain = %v", err)
	}
}

type nanInstrument struct{}

func (nanInstrument) Sound(float64, Note) (float64, bool) { return math.NaN(), false }
func (nanInstrument) String() string                      { return "nan" }

func TestMixerSilencesNaN(t *testing.T) {
	m := NewMixer(NewClock(100), 1, nanInstrument{})
	m.NoteOn(0, 0)
	m.drain()
	if got := m.Sample(1); got != 0 {
		t.Errorf("Sample() = %v, want: 0", got)
	}
}

func TestMixerTick(t *testing.T) {
	scope := buffer.NewRing(256)
	clock := NewClock(1000)
	m := NewMixer(clock, 4, Harmonica(), WithHeadroom(0.5), WithScope(scope))
	if err := m.NoteOn(2, 0); err != nil {
		t.Fatal(err)
	}
	out := make([]float32, 128)
	m.Tick(out)
	if got := clock.Frames(); got != 128 {
		t.Errorf("clock at %d frames after one Tick, want: 128", got)
	}
	if got := m.Voices(); got != 1 {
		t.Errorf("Voices() = %d, want: 1", got)
	}
	if m.Level() <= 0 {
		t.Errorf("Level() = %v, want > 0", m.Level())
	}
	got := make([]float32, 128)
	scope.Read(got)
	for i := range got {
		if got[i] != out[i] {
			t.Fatalf("scope[%d] = %v, want: %v", i, got[i], out[i])
		}
	}

	m.NoteOff(2, 0)
	// Release is 0.1s, so a second of ticks lets it die.
	for i := 0; i < 8; i++ {
		m.Tick(out)
	}
	if got := m.Voices(); got != 0 {
		t.Errorf("Voices() = %d after release, want: 0", got)
	}
	for i, s := range out {
		if s != 0 {
			t.Fatalf("out[%d] = %v after release, want: 0", i, s)
		}
	}
}

func TestMixerTickNoAlloc(t *testing.T) {
	m := NewMixer(NewClock(44100), 16, Bell(), WithScope(buffer.NewRing(1024)))
	for ch := 0; ch < 8; ch++ {
		m.NoteOn(ch, ch*2)
	}
	out := make([]float32, 512)
	m.Tick(out)
	allocs := testing.AllocsPerRun(20, func() {
		m.Tick(out)
	})
	if allocs != 0 {
		t.Errorf("Tick allocated %v times per run, want 0", allocs)
	}
}

func TestMixerConcurrent(t *testing.T) {
	m := NewMixer(NewClock(44100), 15, Bell())
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := make([]float32, 256)
		for {
			select {
			case <-done:
				return
			default:
				m.Tick(out)
			}
		}
	}()
	for i := 0; i < 500; i++ {
		ch := i % 15
		if err := m.NoteOn(ch, ch); err != nil && !errors.Is(err, ErrQueueFull) {
			t.Fatal(err)
		}
		if i%3 == 0 {
			m.SetInstrument(Harmonica())
		}
		if err := m.NoteOff(ch, ch); err != nil && !errors.Is(err, ErrQueueFull) {
			t.Fatal(err)
		}
		_ = m.Voices()
		_ = m.Level()
	}
	close(done)
	wg.Wait()
}

func TestClock(t *testing.T) {
	c := NewClock(4)
	for i, want := range []float64{0, 0.25, 0.5, 0.75, 1} {
		if got := c.Advance(); got != want {
			t.Errorf("Advance() #%d = %v, want: %v", i, got, want)
		}
	}
	if got := c.Now(); got != 1.25 {
		t.Errorf("Now() = %v, want: 1.25", got)
	}
}

func BenchmarkMixerTick(b *testing.B) {
	m := NewMixer(NewClock(44100), 16, Harmonica())
	for ch := 0; ch < 4; ch++ {
		m.NoteOn(ch, ch*3)
	}
	out := make([]float32, 512)
	for i := 0; i < b.N; i++ {
		m.Tick(out)
	}
}
