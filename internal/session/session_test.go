package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chaz8081/autotyper/internal/capture"
	"github.com/chaz8081/autotyper/internal/inject"
	"github.com/chaz8081/autotyper/internal/status"
	"github.com/chaz8081/autotyper/internal/trigger"
	"github.com/chaz8081/autotyper/internal/window"
)

// keys records typed runes. If gate is non-nil every keystroke waits for
// it to close; started is closed on the first keystroke.
type keys struct {
	mu      sync.Mutex
	typed   []rune
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	onType  func(n int)
}

func (k *keys) TypeRune(r rune) error {
	if k.started != nil {
		k.once.Do(func() { close(k.started) })
	}
	if k.gate != nil {
		<-k.gate
	}
	k.mu.Lock()
	k.typed = append(k.typed, r)
	n := len(k.typed)
	k.mu.Unlock()
	if k.onType != nil {
		k.onType(n)
	}
	return nil
}

func (k *keys) text() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return string(k.typed)
}

// countingTyper counts TypeStream calls before delegating.
type countingTyper struct {
	inner Typer
	calls atomic.Int32
}

func (c *countingTyper) TypeStream(ctx context.Context, text string, interval time.Duration, cancel *inject.CancelFlag) inject.Outcome {
	c.calls.Add(1)
	return c.inner.TypeStream(ctx, text, interval, cancel)
}

type fakeTarget struct {
	handle   window.Handle
	found    bool
	resolves atomic.Int32
	focused  atomic.Int32
}

func (f *fakeTarget) Resolve(ctx context.Context, x, y int) (window.Handle, error) {
	f.resolves.Add(1)
	if !f.found {
		return 0, window.ErrNoWindow
	}
	return f.handle, nil
}

func (f *fakeTarget) Focused(ctx context.Context) error {
	f.focused.Add(1)
	return nil
}

// messages collects status messages.
type messages struct {
	mu   sync.Mutex
	msgs []string
}

func (m *messages) Report(u status.Update) {
	m.mu.Lock()
	m.msgs = append(m.msgs, u.Message)
	m.mu.Unlock()
}

func (m *messages) contains(sub string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.msgs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type harness struct {
	ctrl   *Controller
	keys   *keys
	typer  *countingTyper
	target *fakeTarget
	msgs   *messages
	cancel context.CancelFunc
	exited chan struct{}
}

func newHarness(t *testing.T, mode trigger.Mode, k *keys) *harness {
	t.Helper()
	if k == nil {
		k = &keys{}
	}
	h := &harness{
		keys:   k,
		typer:  &countingTyper{inner: inject.NewInjector(k)},
		target: &fakeTarget{handle: 99, found: true},
		msgs:   &messages{},
		exited: make(chan struct{}),
	}
	h.ctrl = New(h.typer, h.target, Options{Mode: mode, Reporter: h.msgs})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.ctrl.Run(ctx)
		close(h.exited)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.exited
	})
	return h
}

func (h *harness) arm(t *testing.T, text string) {
	t.Helper()
	h.ctrl.Payloads() <- capture.NewPayload(text)
	waitFor(t, "armed", func() bool { return h.ctrl.State() == Armed })
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func nextResult(t *testing.T, c *Controller) CycleResult {
	t.Helper()
	select {
	case res := <-c.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cycle result")
		return CycleResult{}
	}
}

func noResult(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case res := <-c.Results():
		t.Fatalf("unexpected cycle result %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClickCycleCompletes(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.arm(t, "hello\n.world")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 10, Y: 20})
	res := nextResult(t, h.ctrl)

	if !res.Injected {
		t.Fatal("injector was not invoked")
	}
	if res.Outcome.Status != inject.Completed {
		t.Fatalf("Status = %v, want completed", res.Outcome.Status)
	}
	if res.Outcome.Typed != 12 {
		t.Errorf("Typed = %d, want 12", res.Outcome.Typed)
	}
	if h.keys.text() != "hello\n.world" {
		t.Errorf("typed %q, want %q", h.keys.text(), "hello\n.world")
	}
	if res.Handle != 99 {
		t.Errorf("Handle = %d, want 99", res.Handle)
	}
	waitFor(t, "idle", func() bool { return h.ctrl.State() == Idle })
	if !h.msgs.contains("Typing complete") {
		t.Error("missing completion status")
	}
}

func TestNoWindowSkipsTyping(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.target.found = false
	h.arm(t, "text")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 1, Y: 1})
	res := nextResult(t, h.ctrl)

	if res.Injected {
		t.Error("injector should not run without a window")
	}
	if !errors.Is(res.Err, window.ErrNoWindow) {
		t.Errorf("Err = %v, want ErrNoWindow", res.Err)
	}
	if h.typer.calls.Load() != 0 {
		t.Errorf("TypeStream called %d times, want 0", h.typer.calls.Load())
	}
	if !h.msgs.contains("No window found") {
		t.Error("missing no-window status")
	}
}

func TestOneShotTrigger(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.arm(t, "abc")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 1, Y: 1})
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 2, Y: 2})

	res := nextResult(t, h.ctrl)
	if res.Trigger.X != 1 {
		t.Errorf("honoured click at x=%d, want the first click", res.Trigger.X)
	}
	noResult(t, h.ctrl)

	if got := h.typer.calls.Load(); got != 1 {
		t.Errorf("TypeStream called %d times, want 1", got)
	}
	if h.keys.text() != "abc" {
		t.Errorf("typed %q, want %q", h.keys.text(), "abc")
	}
}

func TestBlankPayloadNeverArms(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.ctrl.Payloads() <- capture.NewPayload("  \n\t")
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})

	noResult(t, h.ctrl)
	if h.ctrl.State() != Idle {
		t.Errorf("State = %v, want idle", h.ctrl.State())
	}
}

func TestTriggerBeforeArmIgnored(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	noResult(t, h.ctrl)

	h.arm(t, "x")
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	if res := nextResult(t, h.ctrl); res.Outcome.Typed != 1 {
		t.Errorf("Typed = %d, want 1", res.Outcome.Typed)
	}
}

func TestCancelStopsTyping(t *testing.T) {
	k := &keys{}
	h := newHarness(t, trigger.ModeClick, k)
	k.onType = func(n int) {
		if n == 3 {
			h.ctrl.Cancel()
		}
	}
	h.arm(t, "abcdefgh")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	res := nextResult(t, h.ctrl)

	if res.Outcome.Status != inject.Cancelled {
		t.Fatalf("Status = %v, want cancelled", res.Outcome.Status)
	}
	if res.Outcome.Typed != 3 || k.text() != "abc" {
		t.Errorf("typed %q (%d), want \"abc\"", k.text(), res.Outcome.Typed)
	}
	if !h.msgs.contains("Typing stopped") {
		t.Error("missing cancelled status")
	}
}

func TestCancelWhileArmedDoesNotAffectCycle(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.arm(t, "hello")

	// ESC pressed in another application while waiting for the click.
	h.ctrl.Cancel()

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 10, Y: 10})
	res := nextResult(t, h.ctrl)
	if res.Outcome.Status != inject.Completed {
		t.Fatalf("Status = %v, want completed", res.Outcome.Status)
	}
	if h.keys.text() != "hello" {
		t.Errorf("typed %q, want %q", h.keys.text(), "hello")
	}
}

func TestCancelBeforeArmDoesNotAffectCycle(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.ctrl.Cancel()
	h.arm(t, "ok")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	if res := nextResult(t, h.ctrl); res.Outcome.Status != inject.Completed {
		t.Errorf("Status = %v, want completed", res.Outcome.Status)
	}
}

func TestTriggerWhileTypingDroppedAndPayloadQueued(t *testing.T) {
	k := &keys{gate: make(chan struct{}), started: make(chan struct{})}
	h := newHarness(t, trigger.ModeClick, k)
	h.arm(t, "first")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	select {
	case <-k.started:
	case <-time.After(2 * time.Second):
		t.Fatal("typing did not start")
	}
	waitFor(t, "typing", func() bool { return h.ctrl.State() == Typing })

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	waitFor(t, "trigger consumed", func() bool { return len(h.ctrl.triggers) == 0 })
	h.ctrl.Payloads() <- capture.NewPayload("second")
	waitFor(t, "queued status", func() bool { return h.msgs.contains("queued") })

	close(k.gate)
	res := nextResult(t, h.ctrl)
	if res.Outcome.Status != inject.Completed || k.text() != "first" {
		t.Fatalf("first cycle typed %q (%v)", k.text(), res.Outcome.Status)
	}

	waitFor(t, "re-armed", func() bool { return h.ctrl.State() == Armed })
	noResult(t, h.ctrl)

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	nextResult(t, h.ctrl)
	if k.text() != "firstsecond" {
		t.Errorf("typed %q, want %q", k.text(), "firstsecond")
	}
	if got := h.typer.calls.Load(); got != 2 {
		t.Errorf("TypeStream called %d times, want 2", got)
	}
}

func TestHotkeyModeUsesFocusedWindow(t *testing.T) {
	h := newHarness(t, trigger.ModeHotkey, nil)
	h.arm(t, "hi")

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 5, Y: 5})
	noResult(t, h.ctrl)

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Hotkey})
	res := nextResult(t, h.ctrl)

	if res.Outcome.Status != inject.Completed {
		t.Fatalf("Status = %v, want completed", res.Outcome.Status)
	}
	if h.target.resolves.Load() != 0 {
		t.Error("hotkey trigger should not resolve a point")
	}
	if h.target.focused.Load() != 1 {
		t.Errorf("Focused called %d times, want 1", h.target.focused.Load())
	}
}

func TestButtonModeIgnoresTrayClick(t *testing.T) {
	h := newHarness(t, trigger.ModeButton, nil)
	h.arm(t, "secret")

	// The click on the tray icon that opens the menu.
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 1900, Y: 1060})
	noResult(t, h.ctrl)
	if h.ctrl.State() != Armed {
		t.Fatalf("State = %v, want armed after a click in button mode", h.ctrl.State())
	}

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Button})
	res := nextResult(t, h.ctrl)
	if res.Trigger.Kind != trigger.Button {
		t.Errorf("Kind = %v, want button", res.Trigger.Kind)
	}
	if h.target.resolves.Load() != 0 {
		t.Error("button trigger should not resolve a point")
	}
	if h.keys.text() != "secret" {
		t.Errorf("typed %q, want %q", h.keys.text(), "secret")
	}
}

func TestArmClickWaitsForOneClick(t *testing.T) {
	h := newHarness(t, trigger.ModeButton, nil)
	h.arm(t, "a")
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Button})
	nextResult(t, h.ctrl)
	waitFor(t, "idle", func() bool { return h.ctrl.State() == Idle })

	// Release of the click on the "Arm" menu item, observed before ArmClick.
	menuClick := trigger.Event{Kind: trigger.Click, X: 1900, Y: 1000, At: time.Now()}
	h.ctrl.ArmClick()
	waitFor(t, "armed", func() bool { return h.ctrl.State() == Armed })

	h.ctrl.Trigger(menuClick)
	noResult(t, h.ctrl)
	h.ctrl.Trigger(trigger.Event{Kind: trigger.Button})
	noResult(t, h.ctrl)

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click, X: 3, Y: 4, At: time.Now()})
	res := nextResult(t, h.ctrl)
	if res.Trigger.Kind != trigger.Click || res.Trigger.X != 3 {
		t.Errorf("Trigger = %+v, want the click at (3, 4)", res.Trigger)
	}
	if h.target.resolves.Load() != 1 {
		t.Errorf("Resolve called %d times, want 1", h.target.resolves.Load())
	}
	if h.keys.text() != "aa" {
		t.Errorf("typed %q, want %q", h.keys.text(), "aa")
	}
}

func TestStopDisarms(t *testing.T) {
	h := newHarness(t, trigger.ModeClick, nil)
	h.arm(t, "text")

	h.ctrl.Stop()
	waitFor(t, "idle", func() bool { return h.ctrl.State() == Idle })

	h.ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	noResult(t, h.ctrl)
	if !h.msgs.contains("Stopped") {
		t.Error("missing stopped status")
	}
}

func TestArmClickWithoutPayload(t *testing.T) {
	h := newHarness(t, trigger.ModeButton, nil)
	h.ctrl.ArmClick()
	waitFor(t, "status", func() bool { return h.msgs.contains("Nothing to type") })
	if h.ctrl.State() != Idle {
		t.Errorf("State = %v, want idle", h.ctrl.State())
	}
}

func TestOnceReturnsAfterCycle(t *testing.T) {
	k := &keys{}
	ctrl := New(inject.NewInjector(k), &fakeTarget{found: true}, Options{Mode: trigger.ModeClick, Once: true, Reporter: &messages{}})

	exited := make(chan error, 1)
	go func() { exited <- ctrl.Run(context.Background()) }()

	ctrl.Payloads() <- capture.NewPayload("once")
	waitFor(t, "armed", func() bool { return ctrl.State() == Armed })
	ctrl.Trigger(trigger.Event{Kind: trigger.Click})

	select {
	case err := <-exited:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after one cycle")
	}
	if k.text() != "once" {
		t.Errorf("typed %q, want %q", k.text(), "once")
	}
}

func TestShutdownCancelsTyping(t *testing.T) {
	k := &keys{}
	ctrl := New(inject.NewInjector(k), &fakeTarget{found: true}, Options{
		Mode:     trigger.ModeClick,
		Interval: time.Hour,
		Reporter: &messages{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(exited)
	}()

	ctrl.Payloads() <- capture.NewPayload("slow")
	waitFor(t, "armed", func() bool { return ctrl.State() == Armed })
	ctrl.Trigger(trigger.Event{Kind: trigger.Click})
	waitFor(t, "first key", func() bool { return k.text() == "s" })

	cancel()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
	if k.text() != "s" {
		t.Errorf("typed %q after shutdown, want %q", k.text(), "s")
	}
}

func TestSetInterval(t *testing.T) {
	ctrl := New(&countingTyper{}, &fakeTarget{}, Options{Interval: 30 * time.Millisecond, Reporter: &messages{}})
	if ctrl.Interval() != 30*time.Millisecond {
		t.Errorf("Interval = %v, want 30ms", ctrl.Interval())
	}
	ctrl.SetInterval(5 * time.Millisecond)
	if ctrl.Interval() != 5*time.Millisecond {
		t.Errorf("Interval = %v, want 5ms", ctrl.Interval())
	}
}

func TestStateString(t *testing.T) {
	want := []string{"idle", "armed", "resolving", "typing", "done"}
	for i, s := range []State{Idle, Armed, Resolving, Typing, Done} {
		if s.String() != want[i] {
			t.Errorf("State(%d).String() = %q, want %q", i, s.String(), want[i])
		}
	}
}
