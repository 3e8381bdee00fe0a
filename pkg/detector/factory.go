package detector

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/wincap/wincap/pkg/integrations/screen"
	"github.com/wincap/wincap/pkg/integrations/x11"
	"github.com/wincap/wincap/pkg/keyboard"
	"github.com/wincap/wincap/pkg/window"
)

// ErrUnsupported is returned when no backend can serve the current session
var ErrUnsupported = errors.New("no supported window backend for this session")

// Options configures backend construction
type Options struct {
	Display      string // X display name, empty uses $DISPLAY
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Backend bundles the platform capabilities the monitor consumes
type Backend struct {
	Source   window.Source
	Capturer window.RegionCapturer
	Listener keyboard.Listener
}

// Close releases the backend resources
func (b *Backend) Close() error {
	if b.Source == nil {
		return nil
	}
	return b.Source.Close()
}

// New selects and initializes the backend for the running session
func New(opts Options) (*Backend, error) {
	if missing := sessionProblems(); len(missing) > 0 {
		return nil, errors.Wrap(ErrUnsupported, missing[0])
	}

	client, err := x11.Connect(opts.Display)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Source:   x11.NewSource(client),
		Capturer: screen.NewCapturer(),
		Listener: x11.NewListener(client, opts.PollInterval, opts.Logger),
	}, nil
}

// CheckEnvironment lists the requirements the current session is missing,
// including an X server that cannot be reached. An empty result means a
// backend can be started.
func CheckEnvironment() []string {
	missing := sessionProblems()
	if len(missing) > 0 {
		return missing
	}

	if err := x11.Probe(""); err != nil {
		missing = append(missing, fmt.Sprintf("X server unreachable on display %q: %v", os.Getenv("DISPLAY"), err))
	}
	return missing
}

// sessionProblems checks the session environment variables only
func sessionProblems() []string {
	var missing []string

	switch DetectDisplayServer() {
	case "unknown":
		missing = append(missing, "no graphical session found ($DISPLAY and $WAYLAND_DISPLAY are unset)")
	case "wayland":
		if os.Getenv("DISPLAY") == "" {
			missing = append(missing, fmt.Sprintf("Wayland session without XWayland ($DISPLAY is unset, session %q)", os.Getenv("XDG_SESSION_TYPE")))
		}
	}

	return missing
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
