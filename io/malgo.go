package io

import (
	"log"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/pkg/errors"

	"github.com/pfcm/synth/pcm"
)

func initMalgo() (*malgo.AllocatedContext, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Print(strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialising audio context")
	}
	return mctx, nil
}

func freeMalgo(mctx *malgo.AllocatedContext) {
	if err := mctx.Uninit(); err != nil {
		log.Printf("Releasing audio context: %v", err)
	}
	mctx.Free()
}

func playbackDevices(mctx *malgo.AllocatedContext) ([]malgo.DeviceInfo, []string, error) {
	infos, err := mctx.Devices(malgo.Playback)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing playback devices")
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return infos, names, nil
}

func malgoDevices() ([]string, error) {
	mctx, err := initMalgo()
	if err != nil {
		return nil, err
	}
	defer freeMalgo(mctx)
	_, names, err := playbackDevices(mctx)
	return names, err
}

func malgoFormat(f pcm.Format) malgo.FormatType {
	switch f {
	case pcm.U8:
		return malgo.FormatU8
	case pcm.S16:
		return malgo.FormatS16
	case pcm.F32:
		return malgo.FormatF32
	}
	return malgo.FormatUnknown
}

func (s *Stream) openMalgo() error {
	mctx, err := initMalgo()
	if err != nil {
		return err
	}
	infos, names, err := playbackDevices(mctx)
	if err != nil {
		freeMalgo(mctx)
		return err
	}
	i, err := pickDevice(names, s.cfg.Device)
	if err != nil {
		freeMalgo(mctx)
		return err
	}
	s.device = names[i]

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.DeviceID = infos[i].ID.Pointer()
	cfg.Playback.Format = malgoFormat(s.format)
	cfg.Playback.Channels = uint32(s.cfg.Channels)
	cfg.SampleRate = uint32(s.cfg.SampleRate)
	cfg.PeriodSizeInFrames = uint32(s.cfg.BlockSize)
	cfg.Periods = uint32(s.cfg.Blocks)

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			s.fill(out)
		},
		Stop: s.stopped,
	})
	if err != nil {
		freeMalgo(mctx)
		return errors.Wrapf(err, "opening %q", s.device)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		freeMalgo(mctx)
		return errors.Wrapf(err, "starting %q", s.device)
	}
	s.release = func() error {
		// The device has to go before the context it was made in.
		device.Uninit()
		freeMalgo(mctx)
		return nil
	}
	return nil
}
