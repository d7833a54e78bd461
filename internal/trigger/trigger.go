package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/michael-freling/selective-read-mode/internal/rules"
)

// DefaultSettleDelay gives the host time to apply its own default view mode
// before the read-mode decision is made.
const DefaultSettleDelay = 50 * time.Millisecond

// RuleSource provides the rules in effect at decision time.
type RuleSource interface {
	Rules() rules.RuleSet
}

// Trigger decides, after a settle delay, whether a newly active file should
// switch to read mode. Each active-file change supersedes the previous one:
// its pending check is stopped and, should it fire anyway, ignored.
type Trigger struct {
	source RuleSource
	host   Host
	clock  Clock
	delay  time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	generation uint64
	pending    *pendingCheck
	closed     bool

	wg sync.WaitGroup
}

// pendingCheck is a scheduled decision that has not fired yet.
type pendingCheck struct {
	timer  Timer
	cancel chan struct{}
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithClock sets the clock used for the settle delay.
func WithClock(clock Clock) Option {
	return func(t *Trigger) {
		t.clock = clock
	}
}

// WithSettleDelay sets how long to wait after an active-file change.
func WithSettleDelay(delay time.Duration) Option {
	return func(t *Trigger) {
		t.delay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trigger) {
		t.logger = logger
	}
}

// New creates a Trigger reading rules from source and driving host.
func New(source RuleSource, host Host, opts ...Option) *Trigger {
	t := &Trigger{
		source: source,
		host:   host,
		clock:  NewRealClock(),
		delay:  DefaultSettleDelay,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle dispatches an inbound event.
func (t *Trigger) Handle(ctx context.Context, event *Event) {
	switch event.Type {
	case EventActiveFileChanged:
		if event.HasFile() {
			t.ActiveFileChanged(ctx, *event.Path)
		} else {
			t.NoActiveFile()
		}
	default:
		t.logger.Warn("ignoring unknown event", slog.String("type", string(event.Type)))
	}
}

// ActiveFileChanged schedules a read-mode decision for path. An empty path
// names no file and only cancels the pending decision.
func (t *Trigger) ActiveFileChanged(ctx context.Context, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	generation := t.supersedeLocked()
	if rules.NormalizePath(path) == "" {
		return
	}
	check := &pendingCheck{
		timer:  t.clock.NewTimer(t.delay),
		cancel: make(chan struct{}),
	}
	t.pending = check

	t.wg.Add(1)
	go t.await(ctx, check, generation, path)
}

// NoActiveFile cancels any pending decision.
func (t *Trigger) NoActiveFile() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.supersedeLocked()
}

// Wait blocks until every scheduled decision has been made or cancelled.
func (t *Trigger) Wait() {
	t.wg.Wait()
}

// Close cancels pending decisions and waits for running ones to finish.
func (t *Trigger) Close() {
	t.mu.Lock()
	t.closed = true
	t.supersedeLocked()
	t.mu.Unlock()

	t.wg.Wait()
}

// supersedeLocked invalidates the pending decision and returns the new
// generation.
func (t *Trigger) supersedeLocked() uint64 {
	t.generation++
	if t.pending != nil {
		t.pending.timer.Stop()
		close(t.pending.cancel)
		t.pending = nil
	}
	return t.generation
}

func (t *Trigger) await(ctx context.Context, check *pendingCheck, generation uint64, path string) {
	defer t.wg.Done()

	select {
	case <-check.timer.C():
	case <-check.cancel:
		return
	case <-ctx.Done():
		return
	}

	t.decide(ctx, generation, path)
}

func (t *Trigger) decide(ctx context.Context, generation uint64, path string) {
	// Holding the lock across the host call keeps a newer event from
	// slipping in between the generation check and the mode switch.
	t.mu.Lock()
	defer t.mu.Unlock()

	if generation != t.generation {
		t.logger.Debug("skipping stale decision", slog.String("path", path))
		return
	}
	t.pending = nil

	result := rules.Match(path, t.source.Rules())
	if !result.Matched {
		t.logger.Debug("no rule matched", slog.String("path", path))
		return
	}

	t.logger.Info("opening in read mode",
		slog.String("path", path),
		slog.Int("rule", result.Index),
		slog.String("rule_path", result.Rule.DisplayPath()),
		slog.String("rule_type", string(result.Rule.Type)),
	)
	if err := t.host.SetReadMode(ctx, path); err != nil {
		t.logger.Error("failed to switch to read mode",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}
