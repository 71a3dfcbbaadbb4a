package osc

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
)

func times(n int, step float64) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i)*step - 1.3
	}
	return ts
}

func TestSineRange(t *testing.T) {
	for _, hz := range []float64{0, 1, 55.5, 256, 440, 10000} {
		for _, tm := range times(2000, 0.00071) {
			got := Oscillate(tm, hz, Sine, LFO{Hz: 5, Depth: 0.001})
			if got < -1 || got > 1 {
				t.Fatalf("Oscillate(%v, %v, Sine) = %v, want in [-1, 1]", tm, hz, got)
			}
		}
	}
}

func TestSquareIsUnit(t *testing.T) {
	for _, hz := range []float64{0, 3, 256, 512, 1024} {
		for _, tm := range times(2000, 0.00031) {
			got := Oscillate(tm, hz, Square, LFO{})
			if got != 1 && got != -1 {
				t.Fatalf("Oscillate(%v, %v, Square) = %v, want ±1", tm, hz, got)
			}
		}
	}
	// sin(0) is not positive.
	if got := Oscillate(0, 440, Square, LFO{}); got != -1 {
		t.Errorf("Oscillate(0, 440, Square) = %v, want: -1", got)
	}
}

func TestBoundedWaveforms(t *testing.T) {
	for _, w := range []Waveform{Triangle, Noise, DigitalSaw} {
		for _, tm := range times(5000, 0.000113) {
			got := Oscillate(tm, 261.6, w, LFO{})
			if got < -1 || got > 1 {
				t.Fatalf("Oscillate(%v, 261.6, %v) = %v, want in [-1, 1]", tm, w, got)
			}
		}
	}
}

func TestAnalogSaw(t *testing.T) {
	// A quarter of the way through a cycle the series converges to
	// (2/pi)*(pi/2 - phase/2) = 0.5.
	got := Oscillate(0.25, 1, AnalogSaw, LFO{})
	if math.Abs(got-0.5) > 0.02 {
		t.Errorf("Oscillate(0.25, 1, AnalogSaw) = %v, want: ~0.5", got)
	}
	if got := Oscillate(0, 100, AnalogSaw, LFO{}); got != 0 {
		t.Errorf("Oscillate(0, 100, AnalogSaw) = %v, want: 0", got)
	}
}

func TestDigitalSaw(t *testing.T) {
	for _, c := range []struct {
		t, hz float64
		out   float64
	}{
		{0, 1, -1},
		{0.5, 1, 0},
		{0.25, 2, 0},
		{-0.5, 1, 0},
		{0.3, 0, 0},
	} {
		got := Oscillate(c.t, c.hz, DigitalSaw, LFO{})
		if math.Abs(got-c.out) > 1e-9 {
			t.Errorf("Oscillate(%v, %v, DigitalSaw) = %v, want: %v", c.t, c.hz, got, c.out)
		}
	}
}

func TestUnknownWaveformIsSilent(t *testing.T) {
	if got := Oscillate(0.1, 440, Waveform(42), LFO{}); got != 0 {
		t.Errorf("Oscillate(0.1, 440, Waveform(42)) = %v, want: 0", got)
	}
}

func TestVibratoOff(t *testing.T) {
	// A zero-depth LFO must leave the phase alone whatever its rate.
	for _, tm := range times(100, 0.001) {
		a := Oscillate(tm, 300, Sine, LFO{})
		b := Oscillate(tm, 300, Sine, LFO{Hz: 5})
		if a != b {
			t.Fatalf("Oscillate(%v) with zero depth LFO = %v, want: %v", tm, b, a)
		}
	}
}

func TestSineSpectrum(t *testing.T) {
	// With the sample rate equal to the number of samples, FFT bin k is k Hz.
	const n = 8192
	for _, hz := range []float64{64, 256, 440, 1000} {
		x := make([]float64, n)
		for i := range x {
			x[i] = Oscillate(float64(i)/n, hz, Sine, LFO{})
		}
		bins := fft.FFTReal(x)
		peak, best := 0, 0.0
		for k := 1; k < n/2; k++ {
			if m := cmplx.Abs(bins[k]); m > best {
				peak, best = k, m
			}
		}
		if float64(peak) != hz {
			t.Errorf("peak of %v Hz sine at bin %d, want: %v", hz, peak, hz)
		}
	}
}

func TestParseWaveform(t *testing.T) {
	for _, c := range []struct {
		in  string
		out Waveform
	}{
		{"sine", Sine},
		{"Square", Square},
		{"TRIANGLE", Triangle},
		{"analog-saw", AnalogSaw},
		{"Digital-Saw", DigitalSaw},
		{"noise", Noise},
	} {
		got, err := ParseWaveform(c.in)
		if err != nil {
			t.Errorf("ParseWaveform(%q): %v", c.in, err)
			continue
		}
		if got != c.out {
			t.Errorf("ParseWaveform(%q) = %v, want: %v", c.in, got, c.out)
		}
		if got.String() != names[c.out] {
			t.Errorf("%v.String() = %q", got, got.String())
		}
	}
	if _, err := ParseWaveform("sawtooth"); err == nil {
		t.Error("ParseWaveform(sawtooth) succeeded, want error")
	}
}

func TestWaveformText(t *testing.T) {
	var w Waveform
	if err := w.UnmarshalText([]byte("noise")); err != nil {
		t.Fatal(err)
	}
	if w != Noise {
		t.Errorf("UnmarshalText(noise) = %v, want: noise", w)
	}
	b, err := AnalogSaw.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "analog-saw" {
		t.Errorf("MarshalText() = %q, want: analog-saw", b)
	}
	if _, err := Waveform(9).MarshalText(); err == nil {
		t.Error("Waveform(9).MarshalText() succeeded, want error")
	}
}

func BenchmarkSine(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Oscillate(float64(i)/44100, 440, Sine, LFO{Hz: 5, Depth: 0.001})
	}
}

func BenchmarkAnalogSaw(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Oscillate(float64(i)/44100, 440, AnalogSaw, LFO{})
	}
}
