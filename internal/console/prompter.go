// Package console implements the interactive terminal prompts: window
// selection, frame count configuration and the status display.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/monitor"
	"github.com/wincap/wincap/pkg/window"
)

// ErrQuit is returned when the user quits a prompt or input ends
var ErrQuit = errors.New("user quit")

const (
	rule      = "======================================================================"
	shortRule = "=================================================="
	maxTitle  = 50
)

// Prompter reads answers from in and writes prompts to out
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a prompter
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// readLine returns the next trimmed input line. io.EOF maps to ErrQuit so a
// closed stdin ends the session instead of looping.
func (p *Prompter) readLine(prompt string) (string, error) {
	p.printf("%s", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || err != io.EOF) {
		if err == io.EOF {
			return "", ErrQuit
		}
		return "", errors.Wrap(err, "failed to read input")
	}
	return strings.TrimSpace(line), nil
}

// ShowWindows prints the numbered window list
func (p *Prompter) ShowWindows(platform string, windows []window.Window) {
	if len(windows) == 0 {
		p.printf("No suitable windows found!\n")
		return
	}

	p.printf("\n%s\n", rule)
	p.printf("Available windows on %s:\n", platform)
	p.printf("%s\n", rule)
	for i, w := range windows {
		p.printf("[%2d] %-*s (%dx%d)\n", i, maxTitle, truncate(w.Title, maxTitle), w.Width(), w.Height())
	}
	p.printf("%s\n", rule)
}

// SelectWindow asks for a window index until a valid one is entered.
// Entering q returns ErrQuit.
func (p *Prompter) SelectWindow(windows []window.Window) (window.Window, error) {
	if len(windows) == 0 {
		return window.Window{}, errors.New("no windows to select from")
	}

	for {
		input, err := p.readLine("\nSelect window number to monitor (or 'q' to quit): ")
		if err != nil {
			return window.Window{}, err
		}

		if strings.EqualFold(input, "q") {
			return window.Window{}, ErrQuit
		}

		idx, err := strconv.Atoi(input)
		if err != nil {
			p.printf("Please enter a valid number or 'q' to quit.\n")
			continue
		}
		if idx < 0 || idx >= len(windows) {
			p.printf("Invalid selection. Please try again.\n")
			continue
		}

		w := windows[idx]
		p.printf("\nSelected: %s\n", w.Title)
		p.printf("  Size: %dx%d\n", w.Width(), w.Height())
		p.printf("  Position: (%d, %d)\n", w.Rect.Left, w.Rect.Top)
		return w, nil
	}
}

// PromptFrameCount asks for the GIF frame count. An empty answer keeps
// current; anything outside the accepted range is re-prompted.
func (p *Prompter) PromptFrameCount(current int) (int, error) {
	p.printf("\n%s\n", shortRule)
	p.printf("Configuration Settings\n")
	p.printf("%s\n", shortRule)

	for {
		input, err := p.readLine(fmt.Sprintf("GIF frame count (current: %d): ", current))
		if err != nil {
			return current, err
		}

		if input == "" {
			return current, nil
		}

		n, err := strconv.Atoi(input)
		if err != nil {
			p.printf("Please enter a valid number.\n")
			continue
		}
		if n < config.MinFrameCount || n > config.MaxFrameCount {
			p.printf("Please enter a number between %d and %d.\n", config.MinFrameCount, config.MaxFrameCount)
			continue
		}
		return n, nil
	}
}

// ConfirmSaved reports a saved frame count
func (p *Prompter) ConfirmSaved(frameCount int) {
	p.printf("Configuration saved. GIF will be created every %d screenshots.\n", frameCount)
}

// Confirm asks a yes/no question; only y or yes count as yes
func (p *Prompter) Confirm(question string) bool {
	input, err := p.readLine(question + " (yes/no): ")
	if err != nil {
		return false
	}
	input = strings.ToLower(input)
	return input == "y" || input == "yes"
}

// ShowStatus prints a session snapshot and the hotkeys
func (p *Prompter) ShowStatus(s monitor.Status) {
	target := s.Target
	if target == "" {
		target = "None"
	}
	state := "Inactive"
	if s.Monitoring {
		state = "Active"
	}

	p.printf("\n%s\n", rule)
	p.printf("WINDOW MONITOR STATUS\n")
	p.printf("%s\n", rule)
	p.printf("Platform: %s\n", s.Platform)
	p.printf("Target Window: %s\n", target)
	p.printf("Screenshots Taken: %s\n", humanize.Comma(int64(s.Screenshots)))
	p.printf("GIFs Created: %s\n", humanize.Comma(int64(s.GIFs)))
	p.printf("Commands Logged: %s\n", humanize.Comma(int64(s.Commands)))
	p.printf("GIF Frame Count: %d\n", s.FrameCount)
	p.printf("Monitoring: %s\n", state)
	if !s.StartedAt.IsZero() {
		p.printf("Started: %s\n", humanize.Time(s.StartedAt))
	}
	p.printf("%s\n", rule)
	p.printf("Commands:\n")
	p.printf("  ESC - Stop monitoring and exit\n")
	p.printf("  F1  - Show this status\n")
	p.printf("  F2  - Take manual screenshot\n")
	p.printf("%s\n", rule)
}

// ShowSummary prints where the session wrote its output
func (p *Prompter) ShowSummary(out monitor.Outputs) {
	p.printf("\nMonitoring stopped.\n")
	p.printf("Screenshots saved in: %s\n", out.Screenshots)
	p.printf("GIFs saved in: %s\n", out.GIFs)
	p.printf("Commands logged in: %s\n", out.CommandLog)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
