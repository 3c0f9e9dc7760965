package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"vaultbot/internal/eventbus"
	logx "vaultbot/pkg/logx"
)

// RunEvent is published on the bus after each run or skip.
type RunEvent struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// fire starts d in its own goroutine unless it is still running and the
// definition forbids overlap. Call with s.mu held (it reads s.ctx).
func (s *Service) fire(d *scheduleDef) {
	parent := s.ctx
	if parent == nil || parent.Err() != nil {
		return
	}
	if d.opt.Overlap == OverlapSkipIfRunning && !d.state.running.CompareAndSwap(false, true) {
		d.state.skips.Add(1)
		s.log.Debug("schedule skipped, previous run still active", logx.String("schedule", d.name))
		s.publish("scheduler.skipped", RunEvent{Name: d.name})
		return
	}
	if d.opt.Overlap == OverlapAllow {
		d.state.running.Store(true)
	}
	timeout := d.timeout
	if timeout <= 0 {
		timeout = s.cfg.JobTimeout
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer d.state.running.Store(false)
		s.execute(parent, d.name, timeout, d.job, d.state)
	}()
}

// execute runs one job with timeout and panic recovery and records the result.
func (s *Service) execute(parent context.Context, name string, timeout time.Duration, job Job, st *runState) {
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("schedule panicked", logx.String("schedule", name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return job(ctx)
	}()
	took := time.Since(start)

	if st != nil {
		st.runs.Add(1)
		st.mu.Lock()
		st.lastRun, st.lastDur, st.lastErr = start, took, ""
		if err != nil {
			st.lastErr = err.Error()
		}
		st.mu.Unlock()
	}

	ev := RunEvent{Name: name, Duration: took}
	switch {
	case err == nil:
		s.log.Trace("schedule ran", logx.String("schedule", name), logx.Duration("took", took))
		s.publish("scheduler.ran", ev)
	case errors.Is(err, context.Canceled) && parent.Err() != nil:
		s.log.Debug("schedule cancelled by stop", logx.String("schedule", name))
	default:
		if st != nil {
			st.fails.Add(1)
		}
		ev.Error = err.Error()
		s.log.Warn("schedule failed", logx.String("schedule", name), logx.Duration("took", took), logx.Err(err))
		s.publish("scheduler.failed", ev)
	}
}

func (s *Service) publish(typ string, ev RunEvent) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
	}
}
