package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/console"
	"github.com/wincap/wincap/internal/logging"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "wincap"

var (
	settingsFile string
	logLevel     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	monitorCmd := newMonitorCmd()

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Window monitor that logs typed commands and captures before/after screenshots",
		Long: `wincap watches one application window. Each command typed into it is
appended to a command log, a screenshot is taken when Enter is pressed and
another once output has settled, and every N screenshots become an animated GIF.

Running wincap without a subcommand starts monitoring.`,
		RunE:          monitorCmd.RunE,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&settingsFile, "config", "c", config.DefaultSettingsFile, "settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	addMonitorFlags(rootCmd)

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(newWindowsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		},
	}
}

// loadConfig reads the settings file, reporting a fallback to defaults as
// a warning
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(settingsFile)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; using defaults\n", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg
}

// newLogger opens the application log, also mirroring records to stderr
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(cfg.Paths.LogFile, cfg.Logging.Level, os.Stderr)
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func newPrompter(cmd *cobra.Command) *console.Prompter {
	return console.New(cmd.InOrStdin(), cmd.OutOrStdout())
}
