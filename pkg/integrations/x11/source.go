package x11

import (
	"strings"

	"github.com/wincap/wincap/pkg/window"
)

// Minimum size for a window to be offered as a capture target
const (
	MinWindowWidth  = 100
	MinWindowHeight = 100
)

// Source implements window.Source on top of EWMH properties
type Source struct {
	client *Client
}

// NewSource creates a window source over an existing connection
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// Platform returns "x11"
func (s *Source) Platform() string {
	return "x11"
}

// ListWindows returns viewable, titled top-level windows of at least
// MinWindowWidth x MinWindowHeight. Windows that vanish mid-query are skipped.
func (s *Source) ListWindows() ([]window.Window, error) {
	ids, err := s.client.clientList()
	if err != nil {
		return nil, err
	}

	windows := make([]window.Window, 0, len(ids))
	for _, id := range ids {
		if !s.client.isViewable(id) {
			continue
		}

		rect, err := s.client.windowRect(id)
		if err != nil {
			continue
		}
		if !suitableSize(rect) {
			continue
		}

		title := strings.TrimSpace(s.client.windowName(id))
		if title == "" {
			continue
		}

		windows = append(windows, window.Window{
			Title:  title,
			Handle: window.Handle(id),
			Rect:   rect,
		})
	}

	return windows, nil
}

// ActiveWindow returns the handle of the focused top-level window
func (s *Source) ActiveWindow() (window.Handle, error) {
	id, err := s.client.activeWindow(3)
	if err != nil {
		return 0, err
	}
	return window.Handle(id), nil
}

// Close releases the underlying connection
func (s *Source) Close() error {
	return s.client.Close()
}

func suitableSize(r window.Rect) bool {
	return r.Width() >= MinWindowWidth && r.Height() >= MinWindowHeight
}
