package gifmaker

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Recorder stores assembled GIFs and background failures
type Recorder interface {
	RecordGIF(path string, frames, skipped int, size int64, at time.Time)
	RecordError(source string, err error)
}

// Batcher runs GIF assembly jobs in the background. Failures are logged and
// recorded, never returned to the caller.
type Batcher struct {
	assembler *Assembler
	recorder  Recorder
	logger    *slog.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	created []string
	failed  int
}

// NewBatcher creates a batcher. recorder may be nil.
func NewBatcher(assembler *Assembler, recorder Recorder, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		assembler: assembler,
		recorder:  recorder,
		logger:    logger,
	}
}

// Dispatch starts assembling paths on a new goroutine and returns at once
func (b *Batcher) Dispatch(paths []string) {
	batch := make([]string, len(paths))
	copy(batch, paths)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.fail(fmt.Errorf("panic during GIF assembly: %v", r))
			}
		}()
		b.run(batch)
	}()
}

func (b *Batcher) run(paths []string) {
	b.logger.Info("Creating GIF", "frames", len(paths))

	res, err := b.assembler.Assemble(paths)
	if err != nil {
		b.fail(err)
		return
	}

	b.mu.Lock()
	b.created = append(b.created, res.Path)
	b.mu.Unlock()

	b.logger.Info("GIF created",
		"file", filepath.Base(res.Path),
		"frames", res.Frames,
		"skipped", res.Skipped,
		"size", humanize.Bytes(uint64(res.Size)))

	if b.recorder != nil {
		b.recorder.RecordGIF(res.Path, res.Frames, res.Skipped, res.Size, time.Now())
	}
}

func (b *Batcher) fail(err error) {
	b.mu.Lock()
	b.failed++
	b.mu.Unlock()

	b.logger.Error("Error creating GIF", "error", err)
	if b.recorder != nil {
		b.recorder.RecordError("gif", err)
	}
}

// Wait blocks until every dispatched job has finished
func (b *Batcher) Wait() {
	b.wg.Wait()
}

// Created returns the paths of GIFs written so far
func (b *Batcher) Created() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.created))
	copy(out, b.created)
	return out
}

// Failed returns the number of jobs that produced no GIF
func (b *Batcher) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}
