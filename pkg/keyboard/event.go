// Package keyboard defines the key events consumed by the monitor and the
// listener interface platform backends implement.
package keyboard

import (
	"context"
	"time"
)

// Key classifies a key press
type Key int

const (
	KeyOther Key = iota
	KeyRune
	KeyEnter
	KeyBackspace
	KeySpace
	KeyEscape
	KeyF1
	KeyF2
)

var keyNames = map[Key]string{
	KeyOther:     "other",
	KeyRune:      "rune",
	KeyEnter:     "enter",
	KeyBackspace: "backspace",
	KeySpace:     "space",
	KeyEscape:    "esc",
	KeyF1:        "f1",
	KeyF2:        "f2",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a single key press. Rune is set only for KeyRune.
type Event struct {
	Key  Key
	Rune rune
	Time time.Time
}

// Name returns the printable name of the event, the character itself for runes
func (e Event) Name() string {
	if e.Key == KeyRune {
		return string(e.Rune)
	}
	return e.Key.String()
}

// RuneEvent builds a printable character event
func RuneEvent(r rune) Event {
	if r == ' ' {
		return Event{Key: KeySpace, Rune: ' ', Time: time.Now()}
	}
	return Event{Key: KeyRune, Rune: r, Time: time.Now()}
}

// KeyEvent builds a non-printable key event
func KeyEvent(k Key) Event {
	e := Event{Key: k, Time: time.Now()}
	if k == KeySpace {
		e.Rune = ' '
	}
	return e
}

// Listener delivers key presses serially on a single channel. The channel is
// closed once ctx is done or the listener can no longer read input.
type Listener interface {
	Listen(ctx context.Context) (<-chan Event, error)
}
