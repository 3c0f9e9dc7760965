package reminder

import (
	"context"
	"sync"
	"time"

	"vaultbot/internal/eventbus"
	logx "vaultbot/pkg/logx"
)

// Sink delivers a due event to the user (chat, stdout, ...).
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Journal records delivered events. It never feeds back into deduplication.
type Journal interface {
	Record(ctx context.Context, ev Event, deliveredAt time.Time) error
}

// Config is the runtime-tunable part of a Runner.
type Config struct {
	Files     []string
	DueWindow time.Duration
	Retention time.Duration
}

// Status is a point-in-time view for operator commands.
type Status struct {
	Files      []string
	DueWindow  time.Duration
	Retention  time.Duration
	LedgerSize int
	LastScan   time.Time
	LastTook   time.Duration
	LastEvents int
	Delivered  uint64
	Failed     uint64
}

// BusEvent is the payload published on the event bus for reminder.* events.
type BusEvent struct {
	Source string    `json:"source"`
	Task   string    `json:"task"`
	DueAt  time.Time `json:"due_at"`
	Error  string    `json:"error,omitempty"`
}

// Runner executes one scan cycle and hands the results to a Sink.
// The caller (the scheduler) owns the cadence and serializes cycles.
type Runner struct {
	scanner *Scanner
	sink    Sink
	journal Journal
	bus     eventbus.Bus
	clock   func() time.Time
	log     logx.Logger

	mu     sync.Mutex
	cfg    Config
	status Status
}

type RunnerOption func(*Runner)

func WithJournal(j Journal) RunnerOption { return func(r *Runner) { r.journal = j } }

func WithBus(b eventbus.Bus) RunnerOption { return func(r *Runner) { r.bus = b } }

func WithClock(fn func() time.Time) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.clock = fn
		}
	}
}

func WithLogger(log logx.Logger) RunnerOption { return func(r *Runner) { r.log = log } }

func NewRunner(cfg Config, scanner *Scanner, sink Sink, opts ...RunnerOption) *Runner {
	r := &Runner{
		scanner: scanner,
		sink:    sink,
		clock:   time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	r.Apply(cfg)
	return r
}

// Apply swaps the file list, due window and retention. Safe between cycles.
func (r *Runner) Apply(cfg Config) {
	cfg.Files = append([]string(nil), cfg.Files...)
	if cfg.DueWindow <= 0 {
		cfg.DueWindow = DefaultDueWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
	r.scanner.SetWindow(Window{Width: cfg.DueWindow})
	r.scanner.Ledger().SetRetention(cfg.Retention)
}

func (r *Runner) files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cfg.Files...)
}

// RunOnce performs a single scan and delivers every due event. Delivery
// failures are logged and counted; they never abort the cycle. The returned
// error is only ever the context error.
func (r *Runner) RunOnce(ctx context.Context) error {
	start := time.Now()
	now := r.clock()
	events := r.scanner.Scan(ctx, r.files(), now)

	var delivered, failed uint64
	for _, ev := range events {
		r.publish("reminder.due", ev, nil)
		if err := r.sink.Deliver(ctx, ev); err != nil {
			failed++
			r.log.Warn("reminder delivery failed", logx.String("file", ev.Source), logx.String("task", ev.Task), logx.Err(err))
			r.publish("reminder.failed", ev, err)
			continue
		}
		delivered++
		if r.journal != nil {
			if err := r.journal.Record(ctx, ev, time.Now()); err != nil {
				r.log.Debug("journal write failed", logx.Err(err))
			}
		}
		r.publish("reminder.fired", ev, nil)
		r.log.Info("reminder fired", logx.String("file", ev.Source), logx.Int("line", ev.Line), logx.String("task", ev.Task), logx.Time("due_at", ev.DueAt))
	}

	took := time.Since(start)
	r.mu.Lock()
	r.status.LastScan = now
	r.status.LastTook = took
	r.status.LastEvents = len(events)
	r.status.Delivered += delivered
	r.status.Failed += failed
	r.mu.Unlock()

	r.log.Debug("scan complete", logx.Int("events", len(events)), logx.Int("ledger", r.scanner.Ledger().Len()), logx.Duration("took", took))
	return ctx.Err()
}

// Upcoming lists the next occurrences across the configured files.
func (r *Runner) Upcoming(ctx context.Context, limit int) []Event {
	return r.scanner.Upcoming(ctx, r.files(), r.clock(), limit)
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	st := r.status
	st.Files = append([]string(nil), r.cfg.Files...)
	st.DueWindow = r.cfg.DueWindow
	st.Retention = r.cfg.Retention
	r.mu.Unlock()
	st.LedgerSize = r.scanner.Ledger().Len()
	return st
}

func (r *Runner) publish(typ string, ev Event, err error) {
	if r.bus == nil {
		return
	}
	data := BusEvent{Source: ev.Source, Task: ev.Task, DueAt: ev.DueAt}
	if err != nil {
		data.Error = err.Error()
	}
	r.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}
