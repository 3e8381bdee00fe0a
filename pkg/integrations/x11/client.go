package x11

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/wincap/wincap/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"_NET_WM_NAME",
	"WM_NAME",
	"UTF8_STRING",
}

// Client is a shared X11 connection with the atoms wincap needs interned.
// xgb connections are safe for concurrent use.
type Client struct {
	conn  *xgb.Conn
	setup *xproto.SetupInfo
	root  xproto.Window
	atoms map[string]xproto.Atom
}

// Connect opens a connection to the X server named by display
// (empty uses $DISPLAY).
func Connect(display string) (*Client, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	client := &Client{
		conn:  conn,
		setup: setup,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom, len(atomNames)),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		client.atoms[name] = reply.Atom
	}

	return client, nil
}

// Probe reports whether the X server named by display accepts a connection
func Probe(display string) error {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return errors.Wrap(err, "failed to connect to X server")
	}
	conn.Close()
	return nil
}

// Close terminates the connection
func (c *Client) Close() error {
	c.conn.Close()
	return nil
}

func (c *Client) getProperty(win xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *Client) activeWindowFromProperty() xproto.Window {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *Client) activeWindowFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (c *Client) topLevelParent(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, win).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

// activeWindow resolves the focused top-level window. Window managers update
// _NET_ACTIVE_WINDOW asynchronously, so a couple of quick retries are made.
func (c *Client) activeWindow(retries int) (xproto.Window, error) {
	for i := 0; i < retries; i++ {
		if win := c.activeWindowFromProperty(); win != 0 {
			return win, nil
		}

		if win := c.activeWindowFromInputFocus(); win != 0 && win != c.root && win != xproto.InputFocusPointerRoot {
			if top := c.topLevelParent(win); top != 0 {
				return top, nil
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	return 0, window.ErrNoActiveWindow
}

func (c *Client) clientList() ([]xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 4096)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read _NET_CLIENT_LIST")
	}

	windows := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		windows = append(windows, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
	}
	return windows, nil
}

func (c *Client) windowName(win xproto.Window) string {
	data, err := c.getProperty(win, c.atoms["_NET_WM_NAME"], c.atoms["UTF8_STRING"], 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	data, err = c.getProperty(win, c.atoms["WM_NAME"], xproto.AtomString, 256)
	if err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}

	return ""
}

func (c *Client) isViewable(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// windowRect returns the window geometry translated to root coordinates
func (c *Client) windowRect(win xproto.Window) (window.Rect, error) {
	geom, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return window.Rect{}, errors.Wrap(err, "failed to get geometry")
	}

	pos, err := xproto.TranslateCoordinates(c.conn, win, c.root, 0, 0).Reply()
	if err != nil {
		return window.Rect{}, errors.Wrap(err, "failed to translate coordinates")
	}

	x, y := int(pos.DstX), int(pos.DstY)
	return window.Rect{
		Left:   x,
		Top:    y,
		Right:  x + int(geom.Width),
		Bottom: y + int(geom.Height),
	}, nil
}

// keymap returns the 256-bit pressed-key vector
func (c *Client) keymap() ([]byte, error) {
	reply, err := xproto.QueryKeymap(c.conn).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query keymap")
	}
	return reply.Keys, nil
}

// modifierState returns the current key and button mask
func (c *Client) modifierState() (uint16, error) {
	reply, err := xproto.QueryPointer(c.conn, c.root).Reply()
	if err != nil {
		return 0, errors.Wrap(err, "failed to query pointer")
	}
	return reply.Mask, nil
}

// numLockMask finds the modifier bit Num_Lock is bound to, Mod2 if unbound
func (c *Client) numLockMask(table *keysymTable) uint16 {
	reply, err := xproto.GetModifierMapping(c.conn).Reply()
	if err != nil {
		return xproto.ModMask2
	}

	per := int(reply.KeycodesPerModifier)
	for mod := 0; mod < 8; mod++ {
		for i := 0; i < per; i++ {
			idx := mod*per + i
			if idx >= len(reply.Keycodes) {
				return xproto.ModMask2
			}
			if code := reply.Keycodes[idx]; code != 0 && table.lookup(code, 0) == xkNumLock {
				return 1 << mod
			}
		}
	}
	return xproto.ModMask2
}

// keyboardMapping loads the keycode to keysym table for the server's keycode range
func (c *Client) keyboardMapping() (*keysymTable, error) {
	first := c.setup.MinKeycode
	count := byte(c.setup.MaxKeycode - first + 1)

	reply, err := xproto.GetKeyboardMapping(c.conn, first, count).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get keyboard mapping")
	}

	return &keysymTable{
		minKeycode: first,
		perKeycode: int(reply.KeysymsPerKeycode),
		keysyms:    reply.Keysyms,
	}, nil
}
