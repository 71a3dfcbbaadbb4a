// package io does audio out.
//
// A Stream pulls blocks of mono float samples from a Source on the device's
// own callback goroutine, encodes them and copies them to every channel.
package io

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"

	"github.com/pfcm/synth/pcm"
)

var (
	// ErrDeviceLost is returned by Stream.Wait when the device stops on its
	// own, for example because it was unplugged.
	ErrDeviceLost = errors.New("audio device lost")
	// ErrNoDevices means there is nothing to play on.
	ErrNoDevices = errors.New("no audio output devices")
)

// Source produces audio. Tick fills out with the next len(out) samples. It is
// called from the audio callback, so it must not block.
type Source interface {
	Tick(out []float32)
}

// Backend selects the audio library.
type Backend string

const (
	// Malgo talks to the system through miniaudio and can pick a device.
	Malgo Backend = "malgo"
	// Oto only plays on the default device.
	Oto Backend = "oto"
)

// StreamConfig describes the stream to open.
type StreamConfig struct {
	Backend Backend `json:"backend"`
	// Device is the name of the output device, or "" for the first one.
	Device     string `json:"device,omitempty"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
	// BitDepth is 8, 16 or 32 (float).
	BitDepth int `json:"bitDepth"`
	// BlockSize is the number of frames asked for per callback, and Blocks
	// how many blocks the device buffers.
	BlockSize int `json:"blockSize"`
	Blocks    int `json:"blocks"`
}

// DefaultStreamConfig is 16 bit mono at 44.1kHz on the first device.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Backend:    Malgo,
		SampleRate: 44100,
		Channels:   1,
		BitDepth:   16,
		BlockSize:  512,
		Blocks:     8,
	}
}

// Validate checks c could describe a real stream.
func (c StreamConfig) Validate() error {
	switch c.Backend {
	case Malgo, Oto:
	default:
		return errors.Errorf("unknown audio backend %q: want %s or %s", c.Backend, Malgo, Oto)
	}
	if c.SampleRate < 8000 || c.SampleRate > 384000 {
		return errors.Errorf("sample rate %d out of range [8000, 384000]", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 8 {
		return errors.Errorf("channel count %d out of range [1, 8]", c.Channels)
	}
	if _, err := pcm.ForBitDepth(c.BitDepth); err != nil {
		return errors.WithStack(err)
	}
	if c.BlockSize < 1 {
		return errors.Errorf("block size must be positive, got %d", c.BlockSize)
	}
	if c.Blocks < 1 {
		return errors.Errorf("block count must be positive, got %d", c.Blocks)
	}
	return nil
}

// Latency is how much audio the device buffers.
func (c StreamConfig) Latency() time.Duration {
	return time.Duration(c.BlockSize*c.Blocks) * time.Second / time.Duration(c.SampleRate)
}

func (c StreamConfig) String() string {
	dev := c.Device
	if dev == "" {
		dev = "first device"
	}
	return fmt.Sprintf("%s on %s: %dHz %d channel(s) %d bit, %d blocks of %d",
		c.Backend, dev, c.SampleRate, c.Channels, c.BitDepth, c.Blocks, c.BlockSize)
}

// Devices lists the names of the playback devices a backend can open.
func Devices(b Backend) ([]string, error) {
	switch b {
	case Malgo:
		return malgoDevices()
	case Oto:
		return []string{otoDevice}, nil
	}
	return nil, errors.Errorf("unknown audio backend %q", b)
}

// pickDevice returns the index of the device called want, ignoring case, or
// the first device if want is empty.
func pickDevice(names []string, want string) (int, error) {
	if len(names) == 0 {
		return 0, ErrNoDevices
	}
	if want == "" {
		return 0, nil
	}
	fold := cases.Fold()
	key := fold.String(want)
	for i, n := range names {
		if fold.String(n) == key {
			return i, nil
		}
	}
	return 0, errors.Errorf("no output device called %q (have %q)", want, names)
}

// Stream is an open output stream.
type Stream struct {
	cfg    StreamConfig
	device string
	format pcm.Format
	src    Source

	samples []float32 // one block, reused by every callback
	frames  atomic.Uint64
	panics  atomic.Uint64

	closing   atomic.Bool
	lost      atomic.Bool
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
	release   func() error
}

func newStream(cfg StreamConfig, src Source) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := pcm.ForBitDepth(cfg.BitDepth)
	if err != nil {
		return nil, err
	}
	return &Stream{
		cfg:     cfg,
		format:  f,
		src:     src,
		samples: make([]float32, cfg.BlockSize),
		done:    make(chan struct{}),
	}, nil
}

// Open starts playing src. The stream runs until it is closed or the device
// goes away.
func Open(cfg StreamConfig, src Source) (*Stream, error) {
	s, err := newStream(cfg, src)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case Malgo:
		err = s.openMalgo()
	case Oto:
		err = s.openOto()
	}
	if err != nil {
		return nil, err
	}
	log.Printf("Playing %v", s)
	return s, nil
}

func (s *Stream) String() string {
	c := s.cfg
	c.Device = s.device
	return c.String()
}

// Config returns the configuration the stream was opened with.
func (s *Stream) Config() StreamConfig { return s.cfg }

// Device is the name of the device the stream is playing on.
func (s *Stream) Device() string { return s.device }

// Time is how much audio has been handed to the device.
func (s *Stream) Time() time.Duration {
	return time.Duration(s.frames.Load()) * time.Second / time.Duration(s.cfg.SampleRate)
}

// Done is closed when the stream stops.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Err is ErrDeviceLost if the device stopped without being closed.
func (s *Stream) Err() error {
	if s.lost.Load() {
		return ErrDeviceLost
	}
	return nil
}

// Wait blocks until ctx is done, closing the stream, or until the device
// stops.
func (s *Stream) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return s.Close()
	case <-s.done:
		return s.Err()
	}
}

// Close stops the device. The Source is not called again once Close returns.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.release != nil {
			s.closeErr = s.release()
		}
		s.finish()
	})
	return s.closeErr
}

// stopped is called by the backend when the device stops.
func (s *Stream) stopped() {
	if !s.closing.Load() {
		s.lost.Store(true)
		log.Printf("Audio device %q stopped", s.device)
	}
	s.finish()
}

func (s *Stream) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// fill encodes as many whole frames as fit in out, a block at a time. Any
// bytes left over are silent. A panicking Source gets silence for the rest of
// the buffer rather than taking down the audio thread.
func (s *Stream) fill(out []byte) {
	defer func() {
		if r := recover(); r != nil {
			pcm.Silence(out, s.format)
			if s.panics.Add(1) == 1 {
				log.Printf("Audio callback panicked: %v", r)
			}
		}
	}()
	fb := s.cfg.Channels * s.format.Bytes()
	for len(out) >= fb {
		n := min(len(out)/fb, len(s.samples))
		block := s.samples[:n]
		s.src.Tick(block)
		pcm.Append(out[:0], block, s.format, s.cfg.Channels)
		out = out[n*fb:]
		s.frames.Add(uint64(n))
	}
	pcm.Silence(out, s.format)
}
