// Package screen grabs screen regions through github.com/kbinani/screenshot.
package screen

import (
	"image"

	"github.com/kbinani/screenshot"
	"github.com/pkg/errors"

	"github.com/wincap/wincap/pkg/window"
)

// ErrEmptyRegion is returned for rectangles without area
var ErrEmptyRegion = errors.New("capture region is empty")

// CaptureFunc grabs a rectangle of the screen
type CaptureFunc func(image.Rectangle) (*image.RGBA, error)

// Capturer implements window.RegionCapturer
type Capturer struct {
	grab CaptureFunc
}

// NewCapturer returns a capturer backed by the platform screenshot library
func NewCapturer() *Capturer {
	return &Capturer{grab: screenshot.CaptureRect}
}

// NewCapturerWithFunc returns a capturer using grab, mainly for tests
func NewCapturerWithFunc(grab CaptureFunc) *Capturer {
	return &Capturer{grab: grab}
}

// CaptureRegion grabs the rectangle. Zero-size results are errors.
func (c *Capturer) CaptureRegion(rect window.Rect) (image.Image, error) {
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}

	img, err := c.grab(rect.Image())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to capture %dx%d at (%d,%d)",
			rect.Width(), rect.Height(), rect.Left, rect.Top)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("capture returned an empty image")
	}

	return img, nil
}

// ActiveDisplays reports how many displays the screenshot backend can see
func ActiveDisplays() int {
	return screenshot.NumActiveDisplays()
}
