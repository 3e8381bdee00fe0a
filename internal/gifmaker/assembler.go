// Package gifmaker turns batches of saved screenshots into animated GIFs.
package gifmaker

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/wincap/wincap/pkg/utils"
)

// ErrNoFrames is returned when none of the input frames could be loaded
var ErrNoFrames = errors.New("no frames to assemble")

// maxCollisions bounds the _N suffix search for a free output name
const maxCollisions = 1000

// Options configures an Assembler
type Options struct {
	OutputDir  string
	MaxWidth   int
	MaxHeight  int
	FrameDelay time.Duration
	Now        func() time.Time
}

// Result describes a written GIF
type Result struct {
	Path    string
	Frames  int
	Skipped int
	Size    int64
}

// Assembler encodes screenshot files into a looping GIF
type Assembler struct {
	opts   Options
	logger *slog.Logger
}

// NewAssembler creates an assembler
func NewAssembler(opts Options, logger *slog.Logger) *Assembler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FrameDelay < 10*time.Millisecond {
		opts.FrameDelay = 10 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{opts: opts, logger: logger}
}

// Assemble loads paths in order, downscales and quantizes each frame and
// writes the animation to <OutputDir>/<YYYYMMDD_HHMMSS>.gif. Frames that
// cannot be read are skipped. Nothing is written when no frame survives.
func (a *Assembler) Assemble(paths []string) (*Result, error) {
	anim := &gif.GIF{LoopCount: 0}
	delay := int(a.opts.FrameDelay / (10 * time.Millisecond))
	skipped := 0

	for _, path := range paths {
		img, err := loadFrame(path)
		if err != nil {
			skipped++
			a.logger.Warn("Skipping frame", "file", filepath.Base(path), "error", err)
			continue
		}

		frame := quantize(a.scale(img))
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}

	if len(anim.Image) == 0 {
		return nil, ErrNoFrames
	}

	anim.Config = image.Config{ColorModel: color.Palette(palette.Plan9)}
	for _, frame := range anim.Image {
		b := frame.Bounds()
		anim.Config.Width = max(anim.Config.Width, b.Dx())
		anim.Config.Height = max(anim.Config.Height, b.Dy())
	}

	if err := os.MkdirAll(a.opts.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create GIF directory")
	}

	f, path, err := createUnique(a.opts.OutputDir, utils.GIFStamp(a.opts.Now()))
	if err != nil {
		return nil, err
	}

	if err := gif.EncodeAll(f, anim); err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to encode GIF")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to stat GIF")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close GIF")
	}

	return &Result{
		Path:    path,
		Frames:  len(anim.Image),
		Skipped: skipped,
		Size:    info.Size(),
	}, nil
}

func loadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode frame")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("empty frame")
	}
	return img, nil
}

// scale shrinks img to fit MaxWidth x MaxHeight. The result always has its
// origin at (0,0).
func (a *Assembler) scale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), a.opts.MaxWidth, a.opts.MaxHeight)
	if w == b.Dx() && h == b.Dy() && b.Min == (image.Point{}) {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// quantize maps img onto the shared Plan9 palette with error diffusion
func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(out, b, img, b.Min)
	return out
}

// fitWithin returns w x h scaled down, preserving aspect ratio, so that it
// fits inside maxW x maxH. Sizes already inside the box are returned as is;
// a non-positive bound disables that axis.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 {
		maxW = w
	}
	if maxH <= 0 {
		maxH = h
	}
	if w <= maxW && h <= maxH {
		return w, h
	}

	// Width is the binding constraint when w/maxW >= h/maxH
	if w*maxH >= h*maxW {
		return maxW, max(1, h*maxW/w)
	}
	return max(1, w*maxH/h), maxH
}

// createUnique opens <dir>/<stem>.gif, falling back to <stem>_1.gif,
// <stem>_2.gif and so on when the name is taken.
func createUnique(dir, stem string) (*os.File, string, error) {
	for i := 0; i < maxCollisions; i++ {
		name := stem + ".gif"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.gif", stem, i)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.Wrap(err, "failed to create GIF file")
		}
	}
	return nil, "", errors.Errorf("no free GIF name for %s after %d attempts", stem, maxCollisions)
}
