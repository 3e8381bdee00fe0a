package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/console"
	"github.com/wincap/wincap/internal/daemon"
	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/monitor"
	"github.com/wincap/wincap/internal/web"
	"github.com/wincap/wincap/pkg/detector"
	"github.com/wincap/wincap/pkg/window"
)

var (
	windowIndex int
	frameFlag   int
	webFlag     bool
)

func addMonitorFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&windowIndex, "window", "w", -1, "index of the window to monitor (skips the selection prompt)")
	cmd.Flags().IntVarP(&frameFlag, "frames", "n", 0, fmt.Sprintf("screenshots per GIF (%d-%d, skips the prompt)", config.MinFrameCount, config.MaxFrameCount))
	cmd.Flags().BoolVar(&webFlag, "web", false, "serve the status API while monitoring")
}

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Select a window and start monitoring it",
		Args:  cobra.NoArgs,
		RunE:  runMonitor,
	}
	addMonitorFlags(cmd)
	return cmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := loadConfig(cmd)

	if cmd.Flags().Changed("frames") {
		if err := cfg.SetFrameCount(frameFlag); err != nil {
			return err
		}
	}
	if webFlag {
		cfg.Web.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	sessionID := uuid.NewString()
	log := logger.WithSession(sessionID)

	fmt.Fprintf(out, "%s %s: window monitor\n", appName, version)
	fmt.Fprintf(out, "Running on %s\n", detector.DetectDisplayServer())
	fmt.Fprintln(out, "Captures screenshots and creates GIFs based on keyboard activity")

	backend, err := detector.New(detector.Options{
		PollInterval: cfg.Keyboard.PollInterval,
		Logger:       log,
	})
	if err != nil {
		reportMissing(cmd.ErrOrStderr())
		return errors.Wrap(err, "failed to initialize window backend")
	}
	defer backend.Close()

	platform := backend.Source.Platform()
	prompter := newPrompter(cmd)
	interactive := isInteractive()

	target, err := chooseWindow(backend.Source, prompter, interactive)
	if errors.Is(err, console.ErrQuit) {
		fmt.Fprintln(out, "Exiting...")
		return nil
	}
	if err != nil {
		return err
	}

	if err := configureFrames(cmd, cfg, prompter, platform, interactive); err != nil {
		if errors.Is(err, console.ErrQuit) {
			fmt.Fprintln(out, "Exiting...")
			return nil
		}
		return err
	}

	dm := daemon.New(cfg.Paths.PIDFile)
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer dm.RemovePID()

	repo, closeDB := openHistory(cfg, log)
	defer closeDB()

	var recorder *database.Recorder
	if repo != nil {
		recorder = database.NewRecorder(repo, sessionID, log)
	}

	svc := monitor.NewService(cfg, target, monitor.Deps{
		Source:   backend.Source,
		Grabber:  backend.Capturer,
		Listener: backend.Listener,
		Recorder: recorder,
	}, sessionID, log)
	svc.OnStatus(prompter.ShowStatus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Web.Enabled && repo != nil {
		server := web.NewServer(cfg, repo, svc, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("Web server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(out, "Status API: http://%s\n", server.GetAddress())
	}

	prompter.ShowStatus(svc.Status())
	fmt.Fprintf(out, "\nMonitoring started! Focus on '%s' and start typing.\n", target.Title)
	fmt.Fprintln(out, "Press ESC to stop monitoring...")

	err = svc.Start(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "\nMonitoring interrupted.")
	case err != nil:
		log.Error("Monitoring ended with error", "error", err)
		prompter.ShowSummary(svc.Outputs())
		return err
	}

	prompter.ShowSummary(svc.Outputs())
	return nil
}

// chooseWindow picks the target from --window or the interactive list
func chooseWindow(source window.Source, prompter *console.Prompter, interactive bool) (window.Window, error) {
	windows, err := source.ListWindows()
	if err != nil {
		return window.Window{}, errors.Wrap(err, "failed to list windows")
	}

	if windowIndex >= 0 {
		if windowIndex >= len(windows) {
			return window.Window{}, errors.Errorf("window index %d out of range (found %d windows)", windowIndex, len(windows))
		}
		return windows[windowIndex], nil
	}

	prompter.ShowWindows(source.Platform(), windows)
	if len(windows) == 0 {
		return window.Window{}, errors.New("no suitable windows found")
	}
	if !interactive {
		return window.Window{}, errors.New("stdin is not a terminal; pass --window to choose a window")
	}
	return prompter.SelectWindow(windows)
}

// configureFrames applies --frames or asks for the frame count, saving the
// settings file whenever a value was given explicitly
func configureFrames(cmd *cobra.Command, cfg *config.Config, prompter *console.Prompter, platform string, interactive bool) error {
	if !cmd.Flags().Changed("frames") {
		if !interactive {
			return nil
		}
		n, err := prompter.PromptFrameCount(cfg.Capture.FrameCount)
		if err != nil {
			return err
		}
		if err := cfg.SetFrameCount(n); err != nil {
			return err
		}
	}

	if err := cfg.SaveSettings(platform); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		return nil
	}
	prompter.ConfirmSaved(cfg.Capture.FrameCount)
	return nil
}

// openHistory opens the history database. History is best effort: on
// failure monitoring continues without it.
func openHistory(cfg *config.Config, log *slog.Logger) (*database.Repository, func()) {
	db, err := database.Connect(cfg.Paths.DatabasePath)
	if err != nil {
		log.Warn("History database unavailable", "error", err)
		return nil, func() {}
	}
	if err := db.Initialize(); err != nil {
		log.Warn("History database unavailable", "error", err)
		db.Close()
		return nil, func() {}
	}
	return database.NewRepository(db), func() { db.Close() }
}

func reportMissing(w io.Writer) {
	missing := detector.CheckEnvironment()
	if len(missing) == 0 {
		return
	}
	fmt.Fprintln(w, "Missing dependencies:")
	for _, dep := range missing {
		fmt.Fprintf(w, "  - %s\n", dep)
	}
}
