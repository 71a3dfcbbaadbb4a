// synth plays the computer keyboard like a piano.
package main

import (
	"context"
	"flag"
	"fmt"
	stdio "io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/eiannone/keyboard"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/pfcm/synth"
	"github.com/pfcm/synth/config"
	"github.com/pfcm/synth/hid"
	"github.com/pfcm/synth/internal/buffer"
	"github.com/pfcm/synth/io"
	"github.com/pfcm/synth/tui"
)

var (
	configFlag     = flag.String("config", config.DefaultPath, "`path` of the JSON config file, it's fine if it doesn't exist")
	saveFlag       = flag.Bool("save", false, "write the config, including any flags, back to -config before starting")
	listFlag       = flag.Bool("list", false, "list the output devices and exit")
	backendFlag    = flag.String("backend", "", "audio `backend`: malgo or oto")
	deviceFlag     = flag.String("device", "", "`name` of the output device, defaults to the first one found")
	rateFlag       = flag.Int("rate", 0, "sample rate in Hz")
	bitsFlag       = flag.Int("bits", 0, "bits per sample: 8, 16 or 32")
	instrumentFlag = flag.String("instrument", "", "`name` of the instrument to start with")
	modeFlag       = flag.String("mode", "", "poly or mono")
	plainFlag      = flag.Bool("plain", false, "read keys straight from the terminal instead of drawing the UI")
	logFlag        = flag.String("log", "", "`file` to log to while the UI is up, logs are dropped if empty")
	profileFlag    = flag.Bool("profile", false, "whether to write pprof profiles to the current working directory")
)

// pollInterval is how often held keys are checked for release.
const pollInterval = 20 * time.Millisecond

func main() {
	flag.Parse()
	log.SetPrefix("synth: ")

	if *profileFlag {
		finish, err := startProfiles()
		if err != nil {
			log.Fatalf("Starting profiling: %v", err)
		}
		defer func() {
			if err := finish(); err != nil {
				log.Fatalf("Finishing profiles: %v", err)
			}
		}()
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Bad flags: %v", err)
	}
	if *saveFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Saving config: %v", err)
		}
	}

	devices, err := io.Devices(cfg.Audio.Backend)
	if err != nil {
		log.Fatalf("Listing devices: %v", err)
	}
	for _, d := range devices {
		fmt.Printf("Found output device: %s\n", d)
	}
	if *listFlag {
		return
	}

	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal(err)
	}
	inst, err := registry.Lookup(cfg.Instrument)
	if err != nil {
		log.Fatal(err)
	}
	mode, err := cfg.KeyMode()
	if err != nil {
		log.Fatal(err)
	}

	scope := buffer.NewRing(cfg.Scope)
	mixer := synth.NewMixer(
		synth.NewClock(cfg.Audio.SampleRate),
		mode.Channels(),
		inst,
		synth.WithHeadroom(cfg.Headroom),
		synth.WithScope(scope),
	)
	kb := hid.NewKeyboard(mixer, mode, time.Duration(cfg.Hold))

	ui := !*plainFlag && term.IsTerminal(int(os.Stdout.Fd()))
	if ui {
		if *logFlag == "" {
			log.SetOutput(stdio.Discard)
		} else {
			f, err := tea.LogToFile(*logFlag, "synth: ")
			if err != nil {
				log.Fatalf("Opening log: %v", err)
			}
			defer f.Close()
		}
	}

	stream, err := io.Open(cfg.Audio, mixer)
	if err != nil {
		log.Fatalf("Opening audio: %v", err)
	}

	g, ctx := errgroup.WithContext(interruptContext())
	g.Go(func() error {
		return stream.Wait(ctx)
	})
	g.Go(func() error {
		return kb.Run(ctx, pollInterval)
	})
	if ui {
		g.Go(func() error {
			p := tea.NewProgram(tui.New(mixer, kb, registry, scope), tea.WithContext(ctx), tea.WithAltScreen())
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return errors.Wrap(err, "running UI")
			}
			return hid.ErrQuit
		})
	} else {
		fmt.Printf("Playing %v. Keys are %q, tab changes instrument, esc quits.\n", inst, hid.Keys)
		t := &hid.Terminal{
			Keyboard: kb,
			OnKey: func(ev keyboard.KeyEvent) bool {
				if ev.Key != keyboard.KeyTab {
					return true
				}
				next := registry.Next(mixer.Instrument())
				mixer.SetInstrument(next)
				fmt.Printf("Playing %v\n", next)
				return false
			},
		}
		g.Go(func() error {
			return t.Run(ctx)
		})
	}

	err = g.Wait()
	// The device has to stop calling the mixer before anything goes away.
	if cerr := stream.Close(); cerr != nil {
		log.Printf("Closing audio: %v", cerr)
	}
	switch {
	case err == nil, errors.Is(err, hid.ErrQuit):
	case errors.Is(err, io.ErrDeviceLost):
		log.Print(err)
	default:
		log.Fatal(err)
	}
}

// applyFlags copies the flags that were set over the config.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Audio.Backend = io.Backend(*backendFlag)
		case "device":
			cfg.Audio.Device = *deviceFlag
		case "rate":
			cfg.Audio.SampleRate = *rateFlag
		case "bits":
			cfg.Audio.BitDepth = *bitsFlag
		case "instrument":
			cfg.Instrument = *instrumentFlag
		case "mode":
			cfg.Mode = *modeFlag
		}
	})
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func startProfiles() (func() error, error) {
	cpu, err := os.Create("cpu.pprof")
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(cpu); err != nil {
		return nil, errors.Wrap(err, "starting cpu profile")
	}

	mem, err := os.Create("mem.pprof")
	if err != nil {
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := cpu.Close(); err != nil {
			return err
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(mem); err != nil {
			return err
		}
		return mem.Close()
	}, nil
}
