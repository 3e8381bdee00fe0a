package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wincap/wincap/internal/console"
	"github.com/wincap/wincap/internal/daemon"
	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/reporter"
	"github.com/wincap/wincap/pkg/detector"
	"github.com/wincap/wincap/pkg/integrations/screen"
	"github.com/wincap/wincap/pkg/utils"
)

func newWindowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List the windows that can be monitored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			backend, err := detector.New(detector.Options{PollInterval: cfg.Keyboard.PollInterval})
			if err != nil {
				reportMissing(cmd.ErrOrStderr())
				return errors.Wrap(err, "failed to initialize window backend")
			}
			defer backend.Close()

			windows, err := backend.Source.ListWindows()
			if err != nil {
				return errors.Wrap(err, "failed to list windows")
			}
			newPrompter(cmd).ShowWindows(backend.Source.Platform(), windows)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var frames int

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the GIF frame count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			prompter := newPrompter(cmd)

			n := cfg.Capture.FrameCount
			switch {
			case cmd.Flags().Changed("frames"):
				n = frames
			case isInteractive():
				var err error
				n, err = prompter.PromptFrameCount(cfg.Capture.FrameCount)
				if errors.Is(err, console.ErrQuit) {
					return nil
				}
				if err != nil {
					return err
				}
			default:
				fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
				return nil
			}

			if err := cfg.SetFrameCount(n); err != nil {
				return err
			}
			if err := cfg.SaveSettings(detector.DetectDisplayServer()); err != nil {
				return err
			}
			prompter.ConfirmSaved(n)
			return nil
		},
	}

	cmd.Flags().IntVarP(&frames, "frames", "n", 0, "screenshots per GIF")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a monitor is running and the environment it would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := loadConfig(cmd)

			dm := daemon.New(cfg.Paths.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check monitor status")
			}

			if running {
				fmt.Fprintf(out, "Status: Monitoring (PID: %d)\n", pid)
			} else {
				fmt.Fprintln(out, "Status: Not running")
			}

			fmt.Fprintf(out, "Display Server: %s\n", detector.DetectDisplayServer())
			fmt.Fprintf(out, "Displays: %d\n", screen.ActiveDisplays())
			for _, m := range detector.CheckEnvironment() {
				fmt.Fprintf(out, "  Missing: %s\n", m)
			}
			fmt.Fprintf(out, "\n%s\n", cfg.String())
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [period]",
		Short: "Report captured commands, screenshots and GIFs (period: day, week, month, all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg := loadConfig(cmd)
			db, err := database.Connect(cfg.Paths.DatabasePath)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}

			rep := reporter.New(database.NewRepository(db))
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return errors.Wrap(err, "failed to generate report")
			}

			if jsonOutput {
				jsonStr, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
				return nil
			}

			fmt.Fprint(cmd.OutOrStdout(), rep.FormatReportText(report))
			fmt.Fprintf(cmd.OutOrStdout(), "\nGenerated %s\n", utils.LogStamp(report.GeneratedAt))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded history (files on disk are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes && !newPrompter(cmd).Confirm("This will delete all recorded history. Are you sure?") {
				fmt.Fprintln(out, "Operation cancelled")
				return nil
			}

			cfg := loadConfig(cmd)
			db, err := database.Connect(cfg.Paths.DatabasePath)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}
			if err := database.NewRepository(db).Clear(); err != nil {
				return errors.Wrap(err, "failed to clear database")
			}

			fmt.Fprintln(out, "History cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			dm := daemon.New(cfg.Paths.PIDFile)

			pid, err := dm.Stop()
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Monitor is not running")
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "failed to stop monitor")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stop signal sent to monitor (PID: %d)\n", pid)
			return nil
		},
	}
}
