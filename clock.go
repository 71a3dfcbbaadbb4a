package synth

import "sync/atomic"

// Clock is the transport's sense of time: the number of samples produced so
// far. Only the audio goroutine advances it; anyone may read it.
type Clock struct {
	rate   int
	frames atomic.Uint64
}

// NewClock returns a clock at time zero.
func NewClock(sampleRate int) *Clock {
	if sampleRate <= 0 {
		panic("synth: sample rate must be positive")
	}
	return &Clock{rate: sampleRate}
}

// SampleRate is the number of samples per second.
func (c *Clock) SampleRate() int { return c.rate }

// Advance moves the clock on by one sample and returns the time, in seconds,
// of the sample being produced.
func (c *Clock) Advance() float64 {
	f := c.frames.Add(1) - 1
	return float64(f) / float64(c.rate)
}

// Now returns the time of the next sample to be produced.
func (c *Clock) Now() float64 {
	return float64(c.frames.Load()) / float64(c.rate)
}

// Frames is the number of samples produced.
func (c *Clock) Frames() uint64 { return c.frames.Load() }
