// show-env prints an instrument's envelope and output over the life of one
// note, mostly for debugging patches.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pfcm/synth"
	"github.com/pfcm/synth/config"
)

var (
	configFlag = flag.String("config", config.DefaultPath, "`path` of the config file to read extra instruments from")
	noteFlag   = flag.Int("note", 0, "note to play, in semitones from the base of the scale")
	holdFlag   = flag.Float64("hold", 0.5, "how long the note is held, in `seconds`")
	stepFlag   = flag.Float64("step", 0.01, "time between rows, in `seconds`")
	tailFlag   = flag.Float64("tail", 0.1, "`seconds` to keep going after the note finishes")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), help)
		fmt.Fprintln(flag.CommandLine.Output(), "\nOptional arguments:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		fail("Need exactly one instrument name.")
	}
	if *stepFlag <= 0 || *holdFlag < 0 || *tailFlag < 0 {
		fail("-step must be positive, -hold and -tail can't be negative.")
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fail(err.Error())
	}
	registry, err := cfg.Registry()
	if err != nil {
		fail(err.Error())
	}
	p, err := registry.Lookup(flag.Arg(0))
	if err != nil {
		fail(fmt.Sprintf("%v, have %q", err, registry.Names()))
	}

	w := tabwriter.NewWriter(os.Stdout, 10, 1, 1, ' ', 0)
	show(w, p, *noteFlag, *holdFlag, *stepFlag, *tailFlag)
	if err := w.Flush(); err != nil {
		fail(err.Error())
	}
}

// show writes one row per step from the note starting until tail seconds
// after it goes silent.
func show(w *tabwriter.Writer, p *synth.Patch, id int, hold, step, tail float64) {
	fmt.Fprintf(w, "%v\tnote %d\t%v\n", p, id, p.Envelope)
	fmt.Fprintln(w, "time\tstage\tamplitude\tsample\t")

	n := synth.Note{ID: id, On: 0, Off: -1, Active: true}
	end := hold + p.Envelope.Release + tail
	for i := 0; ; i++ {
		t := float64(i) * step
		if t > end {
			break
		}
		if t >= hold && n.Held() {
			n.Off = hold
		}
		s, _ := p.Sound(t, n)
		fmt.Fprintf(w, "%.3f\t%v\t%.6f\t%+.6f\t\n",
			t,
			p.Envelope.Stage(t, n.On, n.Off),
			p.Envelope.Amplitude(t, n.On, n.Off),
			s)
	}
}

func fail(reason string) {
	fmt.Fprintln(os.Stderr, reason)
	fmt.Fprintln(os.Stderr, help)
	os.Exit(1)
}

const help = `show-env shows how an instrument's envelope and output change over
one note.
Usage:
	show-env [-note n] [-hold s] [-step s] instrument

Where instrument is a built in instrument like bell or harmonica, or one from
the config file.
`
