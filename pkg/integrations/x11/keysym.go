package x11

import (
	"unicode"

	"github.com/jezek/xgb/xproto"

	"github.com/wincap/wincap/pkg/keyboard"
)

// Keysym values from X11/keysymdef.h
const (
	xkSpace     xproto.Keysym = 0x0020
	xkBackSpace xproto.Keysym = 0xff08
	xkReturn    xproto.Keysym = 0xff0d
	xkEscape    xproto.Keysym = 0xff1b
	xkNumLock   xproto.Keysym = 0xff7f
	xkKPSpace   xproto.Keysym = 0xff80
	xkKPEnter   xproto.Keysym = 0xff8d
	xkKP0       xproto.Keysym = 0xffb0
	xkKP9       xproto.Keysym = 0xffb9
	xkKPEqual   xproto.Keysym = 0xffbd
	xkF1        xproto.Keysym = 0xffbe
	xkF2        xproto.Keysym = 0xffbf
	xkShiftL    xproto.Keysym = 0xffe1
	xkShiftR    xproto.Keysym = 0xffe2

	unicodeKeysymBase xproto.Keysym = 0x01000000
)

// keysymTable maps keycodes to keysyms as returned by GetKeyboardMapping
type keysymTable struct {
	minKeycode xproto.Keycode
	perKeycode int
	keysyms    []xproto.Keysym
}

// lookup returns the keysym for keycode at the given shift level, falling
// back to level 0 when the level is unbound.
func (t *keysymTable) lookup(code xproto.Keycode, level int) xproto.Keysym {
	if t == nil || t.perKeycode == 0 || code < t.minKeycode {
		return 0
	}

	base := int(code-t.minKeycode) * t.perKeycode
	if base >= len(t.keysyms) {
		return 0
	}

	if level > 0 && level < t.perKeycode && base+level < len(t.keysyms) {
		if sym := t.keysyms[base+level]; sym != 0 {
			return sym
		}
	}
	return t.keysyms[base]
}

func isKeypad(sym xproto.Keysym) bool {
	return sym >= xkKPSpace && sym <= xkKPEqual
}

func (t *keysymTable) isShift(code xproto.Keycode) bool {
	sym := t.lookup(code, 0)
	return sym == xkShiftL || sym == xkShiftR
}

// translateKeysym classifies a keysym into a keyboard event
func translateKeysym(sym xproto.Keysym) (keyboard.Key, rune) {
	switch sym {
	case xkReturn, xkKPEnter:
		return keyboard.KeyEnter, 0
	case xkBackSpace:
		return keyboard.KeyBackspace, 0
	case xkSpace:
		return keyboard.KeySpace, ' '
	case xkEscape:
		return keyboard.KeyEscape, 0
	case xkF1:
		return keyboard.KeyF1, 0
	case xkF2:
		return keyboard.KeyF2, 0
	}

	if sym >= xkKP0 && sym <= xkKP9 {
		return keyboard.KeyRune, rune('0' + sym - xkKP0)
	}

	var r rune
	switch {
	case sym >= 0x21 && sym <= 0xff:
		// Latin-1 keysyms equal their code points
		r = rune(sym)
	case sym&0xff000000 == unicodeKeysymBase:
		r = rune(sym & 0x00ffffff)
	default:
		return keyboard.KeyOther, 0
	}

	if !unicode.IsPrint(r) {
		return keyboard.KeyOther, 0
	}
	return keyboard.KeyRune, r
}
