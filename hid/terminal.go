package hid

import (
	"context"
	"log"
	"unicode"

	"github.com/eiannone/keyboard"
	"github.com/pkg/errors"
)

// ErrQuit is returned by Terminal.Run when the player asks to stop.
var ErrQuit = errors.New("quit")

// Terminal reads keys straight from a raw terminal and plays them on a
// Keyboard. Escape or ctrl-c quits.
type Terminal struct {
	Keyboard *Keyboard
	// OnKey, if set, sees every key that doesn't quit before it is played.
	// Returning false stops it being played.
	OnKey func(keyboard.KeyEvent) bool
}

// Run reads keys until ctx is done or the player quits.
func (t *Terminal) Run(ctx context.Context) error {
	keys, err := keyboard.GetKeys(16)
	if err != nil {
		return errors.Wrap(err, "opening keyboard")
	}
	defer keyboard.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-keys:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return errors.Wrap(ev.Err, "reading keyboard")
			}
			if err := t.handle(ev); err != nil {
				return err
			}
		}
	}
}

func (t *Terminal) handle(ev keyboard.KeyEvent) error {
	switch ev.Key {
	case keyboard.KeyEsc, keyboard.KeyCtrlC:
		return ErrQuit
	}
	if t.OnKey != nil && !t.OnKey(ev) {
		return nil
	}
	if ev.Rune == 0 {
		return nil
	}
	if err := t.Keyboard.Press(unicode.ToLower(ev.Rune)); err != nil {
		log.Printf("Playing %q: %v", ev.Rune, err)
	}
	return nil
}
