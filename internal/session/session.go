// Package session drives one typing cycle at a time: a captured payload
// arms the trigger latch, one trigger resolves the target window, and a
// worker goroutine types the payload while the controller keeps listening.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaz8081/autotyper/internal/capture"
	"github.com/chaz8081/autotyper/internal/inject"
	"github.com/chaz8081/autotyper/internal/logging"
	"github.com/chaz8081/autotyper/internal/status"
	"github.com/chaz8081/autotyper/internal/trigger"
	"github.com/chaz8081/autotyper/internal/window"
)

// State is the controller's position in a typing cycle.
type State int32

const (
	Idle State = iota
	Armed
	Resolving
	Typing
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Resolving:
		return "resolving"
	case Typing:
		return "typing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Typer streams text as keystrokes. *inject.Injector implements it.
type Typer interface {
	TypeStream(ctx context.Context, text string, interval time.Duration, cancel *inject.CancelFlag) inject.Outcome
}

// Targeter prepares the window that will receive keystrokes.
// *window.Resolver implements it.
type Targeter interface {
	Resolve(ctx context.Context, x, y int) (window.Handle, error)
	Focused(ctx context.Context) error
}

// Options configures a Controller.
type Options struct {
	Mode          trigger.Mode
	Interval      time.Duration
	PreviewLength int
	// Hint is appended to the "armed" status message, e.g. how to trigger.
	Hint string
	// Once stops Run after the first finished cycle.
	Once     bool
	Reporter status.Reporter
}

// CycleResult describes a finished cycle. Injected is false when typing
// never started, in which case Outcome is the zero value.
type CycleResult struct {
	Trigger  trigger.Event
	Handle   window.Handle
	Injected bool
	Outcome  inject.Outcome
	Err      error
}

// Controller owns the session state machine. Listener adapters feed it
// through its channel-backed methods; only Run changes state, apart from
// the worker moving Resolving to Typing.
type Controller struct {
	typer  Typer
	target Targeter
	latch  *trigger.Latch
	cancel *inject.CancelFlag
	opts   Options
	log    *logrus.Entry

	state    atomic.Int32
	interval atomic.Int64

	payloads  chan capture.Payload
	triggers  chan trigger.Event
	stops     chan struct{}
	armClicks chan struct{}
	done      chan CycleResult
	results   chan CycleResult

	// Owned by Run.
	current capture.Payload
	pending *capture.Payload
	working bool
}

// New creates a Controller in the Idle state.
func New(typer Typer, target Targeter, opts Options) *Controller {
	if opts.Reporter == nil {
		opts.Reporter = status.NewLog()
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = 120
	}
	c := &Controller{
		typer:     typer,
		target:    target,
		latch:     trigger.NewLatch(opts.Mode),
		cancel:    inject.NewCancelFlag(),
		opts:      opts,
		log:       logging.Component("session"),
		payloads:  make(chan capture.Payload, 1),
		triggers:  make(chan trigger.Event, 16),
		stops:     make(chan struct{}, 1),
		armClicks: make(chan struct{}, 1),
		done:      make(chan CycleResult, 1),
		results:   make(chan CycleResult, 16),
	}
	c.interval.Store(int64(opts.Interval))
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Interval returns the delay used between keystrokes.
func (c *Controller) Interval() time.Duration {
	return time.Duration(c.interval.Load())
}

// SetInterval changes the keystroke delay for cycles that start later.
func (c *Controller) SetInterval(d time.Duration) {
	c.interval.Store(int64(d))
}

// Payloads returns the channel capture sources deliver payloads on.
func (c *Controller) Payloads() chan<- capture.Payload {
	return c.payloads
}

// Results returns finished cycles. Results are dropped if nobody reads.
func (c *Controller) Results() <-chan CycleResult {
	return c.results
}

// Trigger offers a trigger event. It never blocks; events are dropped when
// the queue is full or, later, when the session is not armed.
func (c *Controller) Trigger(ev trigger.Event) {
	select {
	case c.triggers <- ev:
	default:
	}
}

// Cancel raises the cancel flag. Typing in progress stops before its next
// character. The flag is cleared when the next cycle starts, so a cancel
// while armed does not affect that cycle. It is safe to call from any
// goroutine.
func (c *Controller) Cancel() {
	c.cancel.Set()
}

// Stop disarms the session and cancels any typing in progress.
func (c *Controller) Stop() {
	c.cancel.Set()
	select {
	case c.stops <- struct{}{}:
	default:
	}
}

// ArmClick arms the last captured payload for one click on the target
// window, whatever the trigger mode. Clicks observed before the call are
// not honoured.
func (c *Controller) ArmClick() {
	select {
	case c.armClicks <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is done or, with Options.Once, until the
// first cycle finishes. On shutdown it cancels typing in progress and waits
// for the worker to return.
func (c *Controller) Run(ctx context.Context) error {
	c.report(status.Idle, "Ready")

	for {
		select {
		case <-ctx.Done():
			c.cancel.Set()
			if c.working {
				c.finish(<-c.done)
			}
			return nil

		case p := <-c.payloads:
			c.arm(p, false)

		case ev := <-c.triggers:
			c.onTrigger(ctx, ev)

		case <-c.stops:
			c.stop()

		case <-c.armClicks:
			c.armClick()

		case res := <-c.done:
			c.finish(res)
			if c.opts.Once {
				return nil
			}
		}
	}
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Controller) report(p status.Phase, format string, args ...any) {
	c.opts.Reporter.Report(status.Update{Phase: p, Message: fmt.Sprintf(format, args...)})
}

// arm starts a new cycle with p, waiting for one click when click is set.
// While a worker runs, p is kept and armed once the worker finishes.
func (c *Controller) arm(p capture.Payload, click bool) {
	if p.Empty() {
		return
	}
	if c.working {
		c.pending = &p
		c.report(status.Typing, "New text captured (len=%d), queued until typing finishes", p.Len())
		return
	}

	c.current = p
	hint := c.opts.Hint
	if click {
		c.latch.ArmFor(trigger.Click)
		hint = "Click in the target window to type it."
	} else {
		c.latch.Arm()
	}
	c.setState(Armed)

	msg := fmt.Sprintf("Text captured (len=%d): %s", p.Len(), capture.Preview(p.Text, c.opts.PreviewLength))
	if hint != "" {
		msg += " | " + hint
	}
	c.report(status.Armed, "%s", msg)
}

func (c *Controller) armClick() {
	switch {
	case c.working:
		c.report(status.Typing, "Still typing, stop first to pick a new target")
	case c.current.Empty():
		c.report(status.Idle, "Nothing to type yet")
	default:
		c.arm(c.current, true)
	}
}

func (c *Controller) onTrigger(ctx context.Context, ev trigger.Event) {
	if c.State() != Armed {
		c.log.WithField("trigger", ev.Kind).Debug("trigger ignored, session not armed")
		return
	}
	if !c.latch.Offer(ev) {
		c.log.WithField("trigger", ev.Kind).Debug("trigger not taken by the latch")
		return
	}

	c.cancel.Reset()
	c.setState(Resolving)
	c.working = true
	if ev.HasPoint() {
		c.report(status.Resolving, "Click detected at (%d, %d), preparing to type", ev.X, ev.Y)
	} else {
		c.report(status.Resolving, "%s trigger, typing into the focused window", ev.Kind)
	}

	text := c.current.Text
	interval := c.Interval()
	go func() {
		c.done <- c.runCycle(ctx, ev, text, interval)
	}()
}

// runCycle runs on the worker goroutine.
func (c *Controller) runCycle(ctx context.Context, ev trigger.Event, text string, interval time.Duration) CycleResult {
	res := CycleResult{Trigger: ev}

	if ev.HasPoint() {
		h, err := c.target.Resolve(ctx, ev.X, ev.Y)
		if err != nil {
			res.Err = err
			return res
		}
		res.Handle = h
	} else if err := c.target.Focused(ctx); err != nil {
		res.Err = err
		return res
	}

	c.setState(Typing)
	c.report(status.Typing, "Typing %d characters...", len([]rune(text)))
	res.Injected = true
	res.Outcome = c.typer.TypeStream(ctx, text, interval, c.cancel)
	return res
}

func (c *Controller) finish(res CycleResult) {
	c.working = false
	c.setState(Done)

	switch {
	case errors.Is(res.Err, window.ErrNoWindow):
		c.report(status.Error, "No window found at click")
	case res.Err != nil:
		c.report(status.Error, "Could not prepare target: %v", res.Err)
	case res.Outcome.Status == inject.Completed:
		c.report(status.Done, "Typing complete (%d characters)", res.Outcome.Typed)
	case res.Outcome.Status == inject.Cancelled:
		c.report(status.Done, "Typing stopped after %d characters", res.Outcome.Typed)
	default:
		c.report(status.Error, "Typing failed: %v", res.Outcome.Err)
	}

	select {
	case c.results <- res:
	default:
	}

	if c.pending != nil {
		p := *c.pending
		c.pending = nil
		c.arm(p, false)
		return
	}
	c.setState(Idle)
}

func (c *Controller) stop() {
	c.latch.Disarm()
	c.pending = nil
	if c.working {
		c.report(status.Typing, "Stopping...")
		return
	}
	c.setState(Idle)
	c.report(status.Idle, "Stopped")
}
