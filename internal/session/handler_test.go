package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wincap/wincap/internal/capture"
	"github.com/wincap/wincap/internal/logging"
	"github.com/wincap/wincap/pkg/keyboard"
	"github.com/wincap/wincap/pkg/window"
)

const targetHandle window.Handle = 0x3a00004

type fakeSource struct {
	mu     sync.Mutex
	active window.Handle
}

func (f *fakeSource) ListWindows() ([]window.Window, error) { return nil, nil }
func (f *fakeSource) Platform() string                      { return "fake" }
func (f *fakeSource) Close() error                          { return nil }

func (f *fakeSource) ActiveWindow() (window.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, nil
}

func (f *fakeSource) focus(h window.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = h
}

type fakeShooter struct {
	mu     sync.Mutex
	tags   []string
	fail   bool
	during func(tag string)
}

func (s *fakeShooter) Capture(tag string) (capture.Shot, error) {
	if s.during != nil {
		s.during(tag)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		panic("backend exploded")
	}
	s.tags = append(s.tags, tag)
	return capture.Shot{Tag: tag}, nil
}

func (s *fakeShooter) taken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags...)
}

type fakeLog struct {
	commands []string
}

func (l *fakeLog) Append(command string, at time.Time) error {
	l.commands = append(l.commands, command)
	return nil
}

type fakeTimer struct {
	fn      func()
	delay   time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{fn: f, delay: d}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every timer, including stopped ones, to model callbacks that
// were already in flight when Stop was called.
func (s *fakeScheduler) fire() {
	for _, t := range s.timers {
		t.fn()
	}
	s.timers = nil
}

type fixture struct {
	source    *fakeSource
	shooter   *fakeShooter
	log       *fakeLog
	scheduler *fakeScheduler
	handler   *Handler
}

func newFixture() *fixture {
	f := &fixture{
		source:    &fakeSource{active: targetHandle},
		shooter:   &fakeShooter{},
		log:       &fakeLog{},
		scheduler: &fakeScheduler{},
	}
	f.handler = New(f.source, f.shooter, f.log, Options{
		Target:    window.Window{Title: "Terminal", Handle: targetHandle},
		Debounce:  500 * time.Millisecond,
		Scheduler: f.scheduler,
	}, logging.Nop())
	f.handler.Start()
	return f
}

func (f *fixture) typeString(s string) {
	for _, r := range s {
		f.handler.Handle(keyboard.RuneEvent(r))
	}
}

func (f *fixture) press(k keyboard.Key) {
	f.handler.Handle(keyboard.KeyEvent(k))
}

func TestEnterFlushesCommand(t *testing.T) {
	f := newFixture()

	f.typeString("help")
	assert.Equal(t, "help", f.handler.Buffer())
	assert.Empty(t, f.shooter.taken(), "typing before the first Enter takes no screenshot")

	f.press(keyboard.KeyEnter)

	assert.Equal(t, []string{"help"}, f.log.commands)
	assert.Equal(t, "", f.handler.Buffer())
	assert.Equal(t, []string{capture.TagBeforeOutput}, f.shooter.taken())
	assert.Equal(t, StateAwaiting, f.handler.State())
}

func TestNextKeystrokeSchedulesAfterCapture(t *testing.T) {
	f := newFixture()

	f.typeString("ls")
	f.press(keyboard.KeyEnter)
	f.typeString("p")

	require.Len(t, f.scheduler.timers, 1)
	assert.Equal(t, 500*time.Millisecond, f.scheduler.timers[0].delay)
	assert.Equal(t, StateCollecting, f.handler.State())

	f.typeString("wd")
	assert.Len(t, f.scheduler.timers, 1, "only the first keystroke after Enter schedules")

	f.scheduler.fire()
	assert.Equal(t, []string{capture.TagBeforeOutput, capture.TagAfterOutput}, f.shooter.taken())
}

func TestSpaceTriggersAfterCapture(t *testing.T) {
	f := newFixture()

	f.press(keyboard.KeyEnter)
	f.press(keyboard.KeySpace)

	assert.Len(t, f.scheduler.timers, 1)
	assert.Equal(t, " ", f.handler.Buffer())
}

func TestEnterInvalidatesPendingCapture(t *testing.T) {
	f := newFixture()

	f.typeString("a")
	f.press(keyboard.KeyEnter)
	f.typeString("b")
	require.Len(t, f.scheduler.timers, 1)
	stale := f.scheduler.timers[0]

	f.press(keyboard.KeyEnter)
	assert.True(t, stale.stopped)

	f.scheduler.fire()
	assert.Equal(t, []string{capture.TagBeforeOutput, capture.TagBeforeOutput}, f.shooter.taken())
	assert.Equal(t, []string{"a", "b"}, f.log.commands)
}

func TestWhitespaceCommandNotLogged(t *testing.T) {
	f := newFixture()

	f.typeString("   ")
	f.press(keyboard.KeyEnter)

	assert.Empty(t, f.log.commands)
	assert.Equal(t, []string{capture.TagBeforeOutput}, f.shooter.taken(), "Enter still captures")
}

func TestCommandTrimmed(t *testing.T) {
	f := newFixture()

	f.typeString("  make test ")
	f.press(keyboard.KeyEnter)

	assert.Equal(t, []string{"make test"}, f.log.commands)
}

func TestBackspace(t *testing.T) {
	f := newFixture()

	f.typeString("abc")
	f.press(keyboard.KeyBackspace)
	assert.Equal(t, "ab", f.handler.Buffer())

	f.press(keyboard.KeyBackspace)
	f.press(keyboard.KeyBackspace)
	f.press(keyboard.KeyBackspace)
	assert.Equal(t, "", f.handler.Buffer())
	assert.Empty(t, f.shooter.taken())
}

func TestBackspaceUndoesTyping(t *testing.T) {
	inputs := []string{"x", "hello world", "ünïcödé", "a b c"}

	for _, s := range inputs {
		t.Run(s, func(t *testing.T) {
			f := newFixture()
			f.typeString("prefix")
			before := f.handler.Buffer()

			f.typeString(s)
			for range []rune(s) {
				f.press(keyboard.KeyBackspace)
			}
			assert.Equal(t, before, f.handler.Buffer())
		})
	}
}

func TestIgnoredWhenNotFocused(t *testing.T) {
	f := newFixture()

	f.source.focus(0x999)
	f.typeString("secret")
	f.press(keyboard.KeyEnter)

	assert.Equal(t, "", f.handler.Buffer())
	assert.Empty(t, f.log.commands)
	assert.Empty(t, f.shooter.taken())
	assert.Equal(t, StateCollecting, f.handler.State())

	f.source.focus(targetHandle)
	f.typeString("ok")
	assert.Equal(t, "ok", f.handler.Buffer())
}

func TestIgnoredWhenIdle(t *testing.T) {
	f := newFixture()
	f.handler.Stop()

	f.typeString("ls")
	f.press(keyboard.KeyEnter)

	assert.Equal(t, StateIdle, f.handler.State())
	assert.Empty(t, f.log.commands)
	assert.Empty(t, f.shooter.taken())
}

func TestStopCancelsPendingCapture(t *testing.T) {
	f := newFixture()

	f.press(keyboard.KeyEnter)
	f.typeString("x")
	require.Len(t, f.scheduler.timers, 1)

	f.handler.Stop()
	assert.True(t, f.scheduler.timers[0].stopped)

	f.scheduler.fire()
	assert.Equal(t, []string{capture.TagBeforeOutput}, f.shooter.taken())
}

func TestDelayedCaptureDoesNotBlockKeys(t *testing.T) {
	f := newFixture()
	f.press(keyboard.KeyEnter)
	f.typeString("l")
	require.Len(t, f.scheduler.timers, 1)

	handled := make(chan string, 1)
	f.shooter.during = func(tag string) {
		if tag != capture.TagAfterOutput {
			return
		}
		done := make(chan struct{})
		go func() {
			f.typeString("s")
			close(done)
		}()
		select {
		case <-done:
			handled <- f.handler.Buffer()
		case <-time.After(time.Second):
			handled <- "blocked"
		}
	}

	f.scheduler.fire()
	assert.Equal(t, "ls", <-handled)
	assert.Equal(t, []string{capture.TagBeforeOutput, capture.TagAfterOutput}, f.shooter.taken())
}

func TestOtherKeysIgnored(t *testing.T) {
	f := newFixture()

	f.typeString("ab")
	f.press(keyboard.KeyOther)
	f.press(keyboard.KeyF1)
	assert.Equal(t, "ab", f.handler.Buffer())
	assert.Empty(t, f.shooter.taken())
}

func TestHandlerRecoversFromPanic(t *testing.T) {
	f := newFixture()
	f.shooter.fail = true

	assert.NotPanics(t, func() {
		f.press(keyboard.KeyEnter)
	})

	f.shooter.fail = false
	f.typeString("still alive")
	assert.Equal(t, "still alive", f.handler.Buffer())
}

func TestRealScheduler(t *testing.T) {
	done := make(chan struct{})
	timer := realScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })
	require.NotNil(t, timer)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "collecting", StateCollecting.String())
	assert.Equal(t, "awaiting", StateAwaiting.String())
	assert.Equal(t, "State(9)", State(9).String())
}
