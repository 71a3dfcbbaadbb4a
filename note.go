package synth

import "fmt"

// Note is one musical event. It is held while On > Off; the envelope only
// looks at the two times, Active just mirrors the key for display.
type Note struct {
	ID      int     // position in the scale
	On      float64 // time the note was started
	Off     float64 // time the note was released
	Active  bool
	Channel int
}

// Held reports whether the note hasn't been released.
func (n Note) Held() bool { return n.On > n.Off }

func (n Note) String() string {
	return fmt.Sprintf("Note(%d@%d, %.3f-%.3f)", n.ID, n.Channel, n.On, n.Off)
}
