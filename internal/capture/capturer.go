// Package capture saves screenshots of the target window and keeps the
// rolling list of recent captures that feeds GIF assembly.
package capture

import (
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wincap/wincap/pkg/utils"
	"github.com/wincap/wincap/pkg/window"
)

// Screenshot filename tags
const (
	TagNone         = ""
	TagBeforeOutput = "_before_output"
	TagAfterOutput  = "_after_output"
	TagManual       = "_manual"
)

var (
	// ErrNoTarget is returned when no window has been selected
	ErrNoTarget = errors.New("no target window selected")
	// ErrNotFocused is returned when the target is not the active window
	ErrNotFocused = errors.New("target window is not focused")
	// ErrEmptyImage is returned when the backend produced a zero-size image
	ErrEmptyImage = errors.New("captured image is empty")
)

// Dispatcher receives a batch of screenshot paths for GIF assembly.
// Dispatch must not block.
type Dispatcher interface {
	Dispatch(paths []string)
}

// Recorder stores capture history
type Recorder interface {
	RecordScreenshot(path, tag string, width, height int, at time.Time)
	RecordError(source string, err error)
}

// Options configures a Capturer
type Options struct {
	SaveDir        string
	FrameCount     int // Screenshots per GIF batch
	RetentionLimit int // Trim once the list grows beyond this
	TrimTarget     int // Entries kept after trimming
	Now            func() time.Time
}

// Shot describes a saved screenshot
type Shot struct {
	Path   string
	Tag    string
	Time   time.Time
	Width  int
	Height int
}

// Capturer captures the target window region. A single mutex spans the
// focus check, the grab, the file write and the retention list update.
type Capturer struct {
	mu sync.Mutex

	source     window.Source
	grabber    window.RegionCapturer
	dispatcher Dispatcher
	recorder   Recorder
	logger     *slog.Logger
	opts       Options

	target     window.Window
	hasTarget  bool
	saved      []string
	sinceBatch int
	total      int
	failures   int
	lastStamp  time.Time
}

// NewCapturer creates a capturer. dispatcher and recorder may be nil.
func NewCapturer(source window.Source, grabber window.RegionCapturer, dispatcher Dispatcher, recorder Recorder, opts Options, logger *slog.Logger) *Capturer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FrameCount < 1 {
		opts.FrameCount = 1
	}
	if opts.TrimTarget < opts.FrameCount {
		opts.TrimTarget = opts.FrameCount
	}
	if opts.RetentionLimit < opts.TrimTarget {
		opts.RetentionLimit = opts.TrimTarget
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Capturer{
		source:     source,
		grabber:    grabber,
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
		opts:       opts,
	}
}

// SetTarget fixes the window to capture
func (c *Capturer) SetTarget(w window.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = w
	c.hasTarget = true
}

// Capture grabs the target region and saves it as
// <SaveDir>/<YYYYMMDD_HHMMSS_mmm><tag>.png. Nothing is written and the
// retention list is untouched unless the target window has focus.
func (c *Capturer) Capture(tag string) (Shot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasTarget {
		return Shot{}, ErrNoTarget
	}

	active, err := c.source.ActiveWindow()
	if err != nil || active != c.target.Handle {
		c.logger.Debug("Skipping capture, target not focused", "tag", tag)
		return Shot{}, ErrNotFocused
	}

	shot, err := c.captureLocked(tag)
	if err != nil {
		c.failures++
		c.logger.Error("Error taking screenshot", "tag", tag, "error", err)
		if c.recorder != nil {
			c.recorder.RecordError("capture", err)
		}
		return Shot{}, err
	}

	c.logger.Info("Screenshot saved", "file", filepath.Base(shot.Path))
	if c.recorder != nil {
		c.recorder.RecordScreenshot(shot.Path, shot.Tag, shot.Width, shot.Height, shot.Time)
	}

	c.appendLocked(shot.Path)
	return shot, nil
}

func (c *Capturer) captureLocked(tag string) (Shot, error) {
	img, err := c.grabber.CaptureRegion(c.target.Rect)
	if err != nil {
		return Shot{}, err
	}
	if img == nil || img.Bounds().Empty() {
		return Shot{}, ErrEmptyImage
	}

	rgba := normalize(img)

	if err := os.MkdirAll(c.opts.SaveDir, 0755); err != nil {
		return Shot{}, errors.Wrap(err, "failed to create screenshot directory")
	}

	at := c.nextStamp()
	path := filepath.Join(c.opts.SaveDir, utils.ScreenshotStamp(at)+tag+".png")

	if err := writePNG(path, rgba); err != nil {
		return Shot{}, err
	}

	b := rgba.Bounds()
	return Shot{
		Path:   path,
		Tag:    tag,
		Time:   at,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// nextStamp returns a millisecond timestamp strictly after the previous one
// so filenames never collide.
func (c *Capturer) nextStamp() time.Time {
	at := c.opts.Now().Truncate(time.Millisecond)
	if !at.After(c.lastStamp) {
		at = c.lastStamp.Add(time.Millisecond)
	}
	c.lastStamp = at
	return at
}

// appendLocked adds path to the retention list, trims it and dispatches a
// GIF batch every FrameCount captures.
func (c *Capturer) appendLocked(path string) {
	c.saved = append(c.saved, path)
	c.total++
	c.sinceBatch++

	if len(c.saved) > c.opts.RetentionLimit {
		kept := make([]string, c.opts.TrimTarget)
		copy(kept, c.saved[len(c.saved)-c.opts.TrimTarget:])
		c.saved = kept
	}

	if c.sinceBatch >= c.opts.FrameCount {
		c.sinceBatch = 0
		batch := make([]string, c.opts.FrameCount)
		copy(batch, c.saved[len(c.saved)-c.opts.FrameCount:])
		if c.dispatcher != nil {
			c.dispatcher.Dispatch(batch)
		}
	}
}

// Saved returns a copy of the retention list, oldest first
func (c *Capturer) Saved() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.saved))
	copy(out, c.saved)
	return out
}

// Stats returns the number of screenshots taken and failed captures
func (c *Capturer) Stats() (taken, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total, c.failures
}

// normalize converts any image to RGBA with its origin at (0,0)
func normalize(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create screenshot file")
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return errors.Wrap(err, "failed to encode screenshot")
	}

	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to close screenshot file")
	}
	return nil
}
