package window

import (
	"errors"
	"image"
)

// ErrNoActiveWindow is returned when no window currently holds focus
var ErrNoActiveWindow = errors.New("no active window")

// Handle is the platform identifier of a top-level window
type Handle uint32

// Rect is a screen rectangle in root coordinates, right/bottom exclusive
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the rectangle width
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the rectangle height
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Empty reports whether the rectangle has no area
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Image converts the rectangle to an image.Rectangle
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// Window represents a candidate capture target
type Window struct {
	Title  string
	Handle Handle
	Rect   Rect
}

// Width returns the window width in pixels
func (w Window) Width() int {
	return w.Rect.Width()
}

// Height returns the window height in pixels
func (w Window) Height() int {
	return w.Rect.Height()
}

// Source is the interface that all window backends must satisfy
type Source interface {
	// ListWindows returns visible, reasonably sized top-level windows
	ListWindows() ([]Window, error)

	// ActiveWindow returns the handle of the focused window
	ActiveWindow() (Handle, error)

	// Platform returns the backend name (e.g. "x11")
	Platform() string

	// Close releases any resources held by the source
	Close() error
}

// RegionCapturer grabs a still image of a screen region
type RegionCapturer interface {
	CaptureRegion(rect Rect) (image.Image, error)
}
