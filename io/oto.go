package io

import (
	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"

	"github.com/pfcm/synth/pcm"
)

// otoDevice is the only device the oto backend offers.
const otoDevice = "default"

func otoFormat(f pcm.Format) oto.Format {
	switch f {
	case pcm.U8:
		return oto.FormatUnsignedInt8
	case pcm.F32:
		return oto.FormatFloat32LE
	}
	return oto.FormatSignedInt16LE
}

// otoReader adapts a Stream to the reader an oto player pulls from.
type otoReader struct{ s *Stream }

func (r otoReader) Read(p []byte) (int, error) {
	r.s.fill(p)
	return len(p), nil
}

func (s *Stream) openOto() error {
	if _, err := pickDevice([]string{otoDevice}, s.cfg.Device); err != nil {
		return err
	}
	s.device = otoDevice

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.cfg.SampleRate,
		ChannelCount: s.cfg.Channels,
		Format:       otoFormat(s.format),
		BufferSize:   s.cfg.Latency(),
	})
	if err != nil {
		return errors.Wrap(err, "initialising oto")
	}
	<-ready

	player := ctx.NewPlayer(otoReader{s})
	player.Play()
	s.release = func() error {
		if err := player.Close(); err != nil {
			return errors.Wrap(err, "closing player")
		}
		return ctx.Suspend()
	}
	return nil
}
