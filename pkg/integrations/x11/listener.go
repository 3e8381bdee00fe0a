package x11

import (
	"bytes"
	"context"
	"log/slog"
	"time"
	"unicode"

	"github.com/jezek/xgb/xproto"

	"github.com/wincap/wincap/pkg/keyboard"
)

// DefaultPollInterval is how often the keymap is sampled
const DefaultPollInterval = 10 * time.Millisecond

// Listener implements keyboard.Listener by sampling the server keymap and
// emitting an event for every key that went down since the previous sample.
// It needs no grabs, so keystrokes still reach the focused application.
//
// Sampling sees transitions only. Auto-repeat of a held key produces a
// single event, and keys that go down within one interval are emitted in
// keycode order rather than press order. Caps Lock and Num Lock are read
// from the modifier mask when a sample contains new presses.
type Listener struct {
	client   *Client
	interval time.Duration
	logger   *slog.Logger
}

// NewListener creates a keymap-polling listener
func NewListener(client *Client, interval time.Duration, logger *slog.Logger) *Listener {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Listen starts sampling until ctx is done
func (l *Listener) Listen(ctx context.Context) (<-chan keyboard.Event, error) {
	table, err := l.client.keyboardMapping()
	if err != nil {
		return nil, err
	}

	prev, err := l.client.keymap()
	if err != nil {
		return nil, err
	}
	numMask := l.client.numLockMask(table)

	events := make(chan keyboard.Event, 64)

	go func() {
		defer close(events)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			cur, err := l.client.keymap()
			if err != nil {
				l.logger.Error("keyboard listener stopped", "error", err)
				return
			}

			if bytes.Equal(prev, cur) {
				continue
			}

			var locks lockState
			if mask, err := l.client.modifierState(); err == nil {
				locks = lockState{
					caps: mask&xproto.ModMaskLock != 0,
					num:  mask&numMask != 0,
				}
			}

			for _, ev := range decodeKeymap(table, prev, cur, locks, time.Now()) {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
			prev = cur
		}
	}()

	return events, nil
}

// newlyPressed returns keycodes down in cur but not in prev
func newlyPressed(prev, cur []byte) []xproto.Keycode {
	var codes []xproto.Keycode
	for i := 0; i < len(cur); i++ {
		var before byte
		if i < len(prev) {
			before = prev[i]
		}
		changed := cur[i] &^ before
		if changed == 0 {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if changed&(1<<bit) != 0 {
				codes = append(codes, xproto.Keycode(i*8+bit))
			}
		}
	}
	return codes
}

func isDown(keys []byte, code xproto.Keycode) bool {
	idx := int(code) / 8
	if idx >= len(keys) {
		return false
	}
	return keys[idx]&(1<<(code%8)) != 0
}

func shiftDown(table *keysymTable, keys []byte) bool {
	for i := 0; i < len(keys)*8; i++ {
		code := xproto.Keycode(i)
		if isDown(keys, code) && table.isShift(code) {
			return true
		}
	}
	return false
}

// lockState holds the lock modifiers active for a sample
type lockState struct {
	caps bool
	num  bool
}

// decodeKeymap converts a keymap transition into key events. Modifier-only
// presses are dropped. Num Lock selects the digit level of keypad keys (Shift
// inverts it) and Caps Lock inverts the case of letters.
func decodeKeymap(table *keysymTable, prev, cur []byte, locks lockState, at time.Time) []keyboard.Event {
	codes := newlyPressed(prev, cur)
	if len(codes) == 0 {
		return nil
	}

	shift := shiftDown(table, cur)

	events := make([]keyboard.Event, 0, len(codes))
	for _, code := range codes {
		if table.isShift(code) {
			continue
		}

		level := 0
		if shift {
			level = 1
		}
		if locks.num && isKeypad(table.lookup(code, 1)) {
			level = 1 - level
		}

		key, r := translateKeysym(table.lookup(code, level))
		if key == keyboard.KeyOther {
			continue
		}
		if locks.caps && key == keyboard.KeyRune && unicode.IsLetter(r) {
			if shift {
				r = unicode.ToLower(r)
			} else {
				r = unicode.ToUpper(r)
			}
		}
		events = append(events, keyboard.Event{Key: key, Rune: r, Time: at})
	}
	return events
}
