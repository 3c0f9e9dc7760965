package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "vaultbot/pkg/logx"
)

var ErrNameRequired = errors.New("scheduler: name required")

// AddScheduleOpt parses schedule with ParseSchedule and registers a cron or
// interval job. Registering an existing name replaces it.
func (s *Service) AddScheduleOpt(name, schedule string, timeout time.Duration, opt TaskOptions, job Job) (string, error) {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return "", err
	}
	if ps.Kind == SpecInterval {
		return s.AddIntervalOpt(name, ps.Every, timeout, opt, job)
	}
	return s.AddCronOpt(name, ps.Cron, timeout, opt, job)
}

func (s *Service) AddCronOpt(name, spec string, timeout time.Duration, opt TaskOptions, job Job) (string, error) {
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("cron %q: %w", spec, err)
	}
	return s.add(&scheduleDef{name: name, spec: spec, timeout: timeout, job: job, opt: opt})
}

func (s *Service) AddIntervalOpt(name string, every, timeout time.Duration, opt TaskOptions, job Job) (string, error) {
	if every <= 0 {
		return "", fmt.Errorf("interval must be > 0, got %s", every)
	}
	return s.add(&scheduleDef{name: name, spec: "@every " + every.String(), every: every, timeout: timeout, job: job, opt: opt})
}

func (s *Service) add(d *scheduleDef) (string, error) {
	d.name = strings.TrimSpace(d.name)
	if d.name == "" {
		return "", ErrNameRequired
	}
	if d.job == nil {
		return "", fmt.Errorf("scheduler: %s: nil job", d.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A replacement inherits the run state, so skip-if-running still sees a
	// run started by the definition it replaces.
	d.state = &runState{}
	for _, old := range s.defs {
		if old.name == d.name {
			d.state = old.state
			break
		}
	}
	s.removeLocked(d.name)
	s.defs = append(s.defs, d)
	if s.c == nil {
		return d.name, nil
	}
	if err := s.registerLocked(d); err != nil {
		return d.name, err
	}
	s.log.Debug("schedule registered", logx.String("name", d.name), logx.String("spec", d.spec), logx.String("next", s.previewLocked(d, 3)))
	if d.opt.RunOnStart {
		s.fire(d)
	}
	return d.name, nil
}

// registerLocked adds d to the live cron instance.
func (s *Service) registerLocked(d *scheduleDef) error {
	job := cron.FuncJob(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.fire(d)
	})
	if d.every > 0 {
		d.entryID = s.c.Schedule(cron.Every(d.every), job)
		return nil
	}
	id, err := s.c.AddJob(d.spec, job)
	if err != nil {
		return err
	}
	d.entryID = id
	return nil
}

// Remove unregisters the schedule named name.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.mu.Lock()
	removed := s.removeLocked(name)
	s.mu.Unlock()
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

func (s *Service) removeLocked(name string) bool {
	kept := s.defs[:0]
	removed := false
	for _, d := range s.defs {
		if d.name != name {
			kept = append(kept, d)
			continue
		}
		if s.c != nil && d.entryID != 0 {
			s.c.Remove(d.entryID)
		}
		removed = true
	}
	clear(s.defs[len(kept):])
	s.defs = kept
	return removed
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Enabled: s.cfg.Enabled, Running: s.c != nil, Timezone: s.cfg.Timezone}
	if s.loc != nil {
		snap.Timezone = s.loc.String()
	}
	for _, d := range s.defs {
		info := ScheduleInfo{
			Name:     d.name,
			Spec:     d.spec,
			Timeout:  d.timeout,
			Running:  d.state.running.Load(),
			Runs:     d.state.runs.Load(),
			Skips:    d.state.skips.Load(),
			Failures: d.state.fails.Load(),
		}
		d.state.mu.Lock()
		info.LastRun, info.LastDur, info.LastErr = d.state.lastRun, d.state.lastDur, d.state.lastErr
		d.state.mu.Unlock()
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			info.Next, info.Prev = e.Next, e.Prev
		}
		snap.Schedules = append(snap.Schedules, info)
	}
	s.mu.Unlock()

	sort.Slice(snap.Schedules, func(i, j int) bool { return snap.Schedules[i].Name < snap.Schedules[j].Name })
	return snap
}

// previewLocked renders the next n trigger times for debug logs.
func (s *Service) previewLocked(d *scheduleDef, n int) string {
	if !s.log.Enabled(logx.LevelDebug) {
		return ""
	}
	var sched cron.Schedule
	if d.every > 0 {
		sched = cron.Every(d.every)
	} else {
		var err error
		if sched, err = s.parser.Parse(d.spec); err != nil {
			return ""
		}
	}
	t := time.Now().In(s.loc)
	parts := make([]string, 0, n)
	for range n {
		if t = sched.Next(t); t.IsZero() {
			break
		}
		parts = append(parts, t.Format("2006-01-02 15:04:05"))
	}
	return strings.Join(parts, ", ")
}
