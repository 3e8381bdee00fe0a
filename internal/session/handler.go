// Package session implements the keystroke state machine that turns typed
// commands into command log lines and before/after screenshots.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wincap/wincap/internal/capture"
	"github.com/wincap/wincap/pkg/keyboard"
	"github.com/wincap/wincap/pkg/window"
)

// State of the handler
type State int

const (
	// StateIdle means monitoring has not started or has stopped
	StateIdle State = iota
	// StateCollecting means keystrokes are being buffered
	StateCollecting
	// StateAwaiting means Enter was pressed and the next keystroke
	// schedules the "after" screenshot
	StateAwaiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateAwaiting:
		return "awaiting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Shooter takes a tagged screenshot of the target window
type Shooter interface {
	Capture(tag string) (capture.Shot, error)
}

// CommandLogger persists a finished command
type CommandLogger interface {
	Append(command string, at time.Time) error
}

// Timer is a pending delayed call
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Handler
type Options struct {
	Target    window.Window
	Debounce  time.Duration // Delay before the "after" screenshot
	Scheduler Scheduler
	Now       func() time.Time
}

// sessionContext is the per-session state the handler mutates. Every field is
// guarded by Handler.mu.
type sessionContext struct {
	buffer     []rune
	monitoring bool
	awaiting   bool
	cycle      uint64 // Incremented on every Enter
	pending    Timer  // Delayed "after" capture of the current cycle
}

// Handler consumes key events for one monitoring session
type Handler struct {
	mu  sync.Mutex
	ctx sessionContext

	source  window.Source
	shooter Shooter
	log     CommandLogger
	opts    Options
	logger  *slog.Logger
}

// New creates a handler for opts.Target
func New(source window.Source, shooter Shooter, log CommandLogger, opts Options, logger *slog.Logger) *Handler {
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		source:  source,
		shooter: shooter,
		log:     log,
		opts:    opts,
		logger:  logger,
	}
}

// Start begins accepting key events
func (h *Handler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctx.monitoring = true
	h.ctx.awaiting = false
}

// Stop stops accepting key events and cancels any pending delayed capture
func (h *Handler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ctx.monitoring = false
	h.ctx.awaiting = false
	h.cancelPendingLocked()
}

// State returns the current state
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case !h.ctx.monitoring:
		return StateIdle
	case h.ctx.awaiting:
		return StateAwaiting
	default:
		return StateCollecting
	}
}

// Buffer returns the command typed so far
func (h *Handler) Buffer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return string(h.ctx.buffer)
}

// Handle applies one key event. It never panics and never returns an
// error; failures are logged.
func (h *Handler) Handle(ev keyboard.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Error in key handler", "key", ev.Name(), "panic", r)
		}
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.ctx.monitoring || !h.focused() {
		return
	}

	switch ev.Key {
	case keyboard.KeyRune, keyboard.KeySpace:
		r := ev.Rune
		if ev.Key == keyboard.KeySpace {
			r = ' '
		}
		h.ctx.buffer = append(h.ctx.buffer, r)
		if h.ctx.awaiting {
			h.ctx.awaiting = false
			h.scheduleAfterLocked()
		}

	case keyboard.KeyBackspace:
		if n := len(h.ctx.buffer); n > 0 {
			h.ctx.buffer = h.ctx.buffer[:n-1]
		}

	case keyboard.KeyEnter:
		h.enterLocked()
	}
}

func (h *Handler) enterLocked() {
	command := strings.TrimSpace(string(h.ctx.buffer))
	h.ctx.buffer = h.ctx.buffer[:0]

	h.ctx.cycle++
	h.cancelPendingLocked()

	if command != "" && h.log != nil {
		if err := h.log.Append(command, h.opts.Now()); err != nil {
			h.logger.Error("Error logging command", "error", err)
		}
	}

	h.shoot(capture.TagBeforeOutput)
	h.ctx.awaiting = true
}

// scheduleAfterLocked arms the delayed "after" capture for the current
// cycle. A later Enter bumps the cycle, which both stops the timer and
// makes a callback that already fired a no-op.
func (h *Handler) scheduleAfterLocked() {
	h.cancelPendingLocked()

	cycle := h.ctx.cycle
	h.ctx.pending = h.opts.Scheduler.AfterFunc(h.opts.Debounce, func() {
		h.fireAfter(cycle)
	})
}

func (h *Handler) fireAfter(cycle uint64) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Error in delayed capture", "panic", r)
		}
	}()

	h.mu.Lock()
	if !h.ctx.monitoring || h.ctx.cycle != cycle {
		h.mu.Unlock()
		h.logger.Debug("Dropping stale delayed capture", "cycle", cycle)
		return
	}
	h.ctx.pending = nil
	h.mu.Unlock()

	// the capturer serializes shots itself; keys keep flowing meanwhile
	h.shoot(capture.TagAfterOutput)
}

func (h *Handler) cancelPendingLocked() {
	if h.ctx.pending != nil {
		h.ctx.pending.Stop()
		h.ctx.pending = nil
	}
}

func (h *Handler) shoot(tag string) {
	if _, err := h.shooter.Capture(tag); err != nil && !errors.Is(err, capture.ErrNotFocused) {
		h.logger.Debug("Capture failed", "tag", tag, "error", err)
	}
}

// focused reports whether the target window is the active window
func (h *Handler) focused() bool {
	active, err := h.source.ActiveWindow()
	if err != nil {
		return false
	}
	return active == h.opts.Target.Handle
}
