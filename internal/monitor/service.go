// Package monitor runs a monitoring session: it reads key events from the
// platform listener and routes them to the command handler, the status
// display and the manual capture hotkey.
package monitor

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/wincap/wincap/internal/capture"
	"github.com/wincap/wincap/internal/commandlog"
	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/gifmaker"
	"github.com/wincap/wincap/internal/session"
	"github.com/wincap/wincap/pkg/keyboard"
	"github.com/wincap/wincap/pkg/window"
)

var (
	// ErrAlreadyRunning is returned by Start on a running service
	ErrAlreadyRunning = errors.New("monitor is already running")
	// ErrListenerClosed is returned when the key listener stops on its own
	ErrListenerClosed = errors.New("keyboard listener closed")
)

// Deps are the platform collaborators of a Service
type Deps struct {
	Source   window.Source
	Grabber  window.RegionCapturer
	Listener keyboard.Listener
	Recorder *database.Recorder // May be nil
}

// Status is a snapshot of a monitoring session
type Status struct {
	SessionID   string    `json:"session_id"`
	Platform    string    `json:"platform"`
	Target      string    `json:"target"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Monitoring  bool      `json:"monitoring"`
	State       string    `json:"state"`
	Screenshots int       `json:"screenshots"`
	Failures    int       `json:"failures"`
	Retained    int       `json:"retained"`
	GIFs        int       `json:"gifs"`
	Commands    int       `json:"commands"`
	FrameCount  int       `json:"frame_count"`
	StartedAt   time.Time `json:"started_at"`
}

// Outputs lists where a session writes its files
type Outputs struct {
	Screenshots string
	GIFs        string
	CommandLog  string
}

// Service owns one monitoring session
type Service struct {
	config    *config.Config
	target    window.Window
	sessionID string
	logger    *slog.Logger

	source   window.Source
	listener keyboard.Listener
	capturer *capture.Capturer
	batcher  *gifmaker.Batcher
	commands *commandlog.Log
	handler  *session.Handler

	onStatus func(Status)

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewService wires the capture pipeline for target
func NewService(cfg *config.Config, target window.Window, deps Deps, sessionID string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	assembler := gifmaker.NewAssembler(gifmaker.Options{
		OutputDir:  cfg.Paths.GIFDir,
		MaxWidth:   cfg.GIF.MaxWidth,
		MaxHeight:  cfg.GIF.MaxHeight,
		FrameDelay: cfg.GIF.FrameDelay,
	}, logger)
	batcher := gifmaker.NewBatcher(assembler, deps.Recorder, logger)

	capturer := capture.NewCapturer(deps.Source, deps.Grabber, batcher, deps.Recorder, capture.Options{
		SaveDir:        cfg.Paths.SaveDir,
		FrameCount:     cfg.Capture.FrameCount,
		RetentionLimit: cfg.RetentionLimit(),
		TrimTarget:     cfg.TrimTarget(),
	}, logger)
	capturer.SetTarget(target)

	commands := commandlog.New(cfg.Paths.CommandLog, target.Title, deps.Recorder, logger)

	handler := session.New(deps.Source, capturer, commands, session.Options{
		Target:   target,
		Debounce: cfg.Capture.DebounceDelay,
	}, logger)

	return &Service{
		config:    cfg,
		target:    target,
		sessionID: sessionID,
		logger:    logger,
		source:    deps.Source,
		listener:  deps.Listener,
		capturer:  capturer,
		batcher:   batcher,
		commands:  commands,
		handler:   handler,
		stopChan:  make(chan struct{}),
	}
}

// OnStatus sets the callback run when the status hotkey is pressed
func (s *Service) OnStatus(fn func(Status)) {
	s.onStatus = fn
}

// Start monitors until Esc is pressed, Stop is called or ctx is done. It
// returns nil on a requested stop and ctx.Err() on cancellation. Pending
// delayed captures are cancelled; GIF jobs already dispatched keep running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	defer func() {
		s.handler.Stop()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := s.listener.Listen(listenCtx)
	if err != nil {
		return errors.Wrap(err, "failed to start keyboard listener")
	}

	s.handler.Start()
	s.logger.Info("Monitoring started",
		"window", s.target.Title,
		"frames", s.config.Capture.FrameCount,
		"platform", s.source.Platform())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitoring stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("Monitoring stopped")
			return nil

		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrListenerClosed
			}
			if s.dispatch(ev) {
				s.logger.Info("Stop key pressed")
				return nil
			}
		}
	}
}

// dispatch routes one event and reports whether monitoring should stop
func (s *Service) dispatch(ev keyboard.Event) bool {
	switch ev.Key {
	case keyboard.KeyEscape:
		return true

	case keyboard.KeyF1:
		if s.onStatus != nil {
			s.onStatus(s.Status())
		}

	case keyboard.KeyF2:
		s.ManualCapture()

	default:
		s.handler.Handle(ev)
	}
	return false
}

// ManualCapture takes a _manual screenshot if the target has focus
func (s *Service) ManualCapture() {
	shot, err := s.capturer.Capture(capture.TagManual)
	switch {
	case errors.Is(err, capture.ErrNotFocused):
		s.logger.Info("Manual screenshot skipped, target window not focused")
	case err != nil:
		// Already logged and recorded by the capturer
	default:
		s.logger.Info("Manual screenshot taken", "file", filepath.Base(shot.Path))
	}
}

// Stop ends a running Start. It does not wait for background GIF jobs.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// IsRunning reports whether Start is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until every dispatched GIF job has finished
func (s *Service) Wait() {
	s.batcher.Wait()
}

// Status returns a snapshot of the session
func (s *Service) Status() Status {
	taken, failed := s.capturer.Stats()

	s.mu.Lock()
	running, started := s.running, s.startedAt
	s.mu.Unlock()

	return Status{
		SessionID:   s.sessionID,
		Platform:    s.source.Platform(),
		Target:      s.target.Title,
		Width:       s.target.Width(),
		Height:      s.target.Height(),
		Monitoring:  running,
		State:       s.handler.State().String(),
		Screenshots: taken,
		Failures:    failed,
		Retained:    len(s.capturer.Saved()),
		GIFs:        len(s.batcher.Created()),
		Commands:    s.commands.Count(),
		FrameCount:  s.config.Capture.FrameCount,
		StartedAt:   started,
	}
}

// Outputs returns absolute output locations, falling back to the
// configured paths when they cannot be resolved
func (s *Service) Outputs() Outputs {
	return Outputs{
		Screenshots: absPath(s.config.Paths.SaveDir),
		GIFs:        absPath(s.config.Paths.GIFDir),
		CommandLog:  absPath(s.config.Paths.CommandLog),
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
