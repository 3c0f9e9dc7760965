// Package app wires configuration, logging, the chat adapter and the
// reminder pipeline into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vaultbot/internal/config"
	"vaultbot/internal/eventbus"
	"vaultbot/internal/notifier"
	"vaultbot/internal/reminder"
	"vaultbot/internal/runtime/lifecycle"
	rtsup "vaultbot/internal/runtime/supervisor"
	"vaultbot/internal/storage"
	"vaultbot/internal/task/scheduler"
	kit "vaultbot/internal/transport"
	telegram "vaultbot/internal/transport/telegram/adapter"
	"vaultbot/internal/transport/telegram/router"
	logx "vaultbot/pkg/logx"
)

type StopReason = lifecycle.StopReason

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log     logx.Logger
	logs    *logx.Service
	bus     eventbus.Bus
	store   storage.Store
	systemd *lifecycle.Systemd

	adapter kit.Adapter
	sched   *scheduler.Service
	notif   *notifier.Service
	router  *router.Router

	source *vaultSource
	clock  *zoneClock
	sink   *chatSink
	runner *reminder.Runner

	pollSchedule string
	updates      chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	// Target first, so enabling the Telegram sink does not warn about a missing chat.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	relay := &logRelay{adapter: ad}
	logSvc, root := logx.New(bootCfg, relay)
	logSvc.SetTelegramTarget(cfg.GroupLogChatID(), cfg.Logging.Telegram.ThreadID)
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if store != nil {
		log.Info("delivery journal enabled", logx.String("driver", sc.Driver))
	}

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(schedCfg, root.With(logx.String("comp", "scheduler")), bus)

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, ad, root.With(logx.String("comp", "notifier")), bus)
	relay.attach(notif)

	rs, err := mapReminderConfig(cfg)
	if err != nil {
		return nil, err
	}
	loc, err := config.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}
	clock := &zoneClock{}
	clock.set(loc)
	source := &vaultSource{root: cfg.Reminders.VaultPath}
	sink := newChatSink(notif, ad, rs.Target, rs.Header)

	remLog := root.With(logx.String("comp", "reminders"))
	scanner := reminder.NewScanner(source, reminder.NewLedger(rs.Runner.Retention, remLog), reminder.Window{Width: rs.Runner.DueWindow}, remLog)
	opts := []reminder.RunnerOption{
		reminder.WithBus(bus),
		reminder.WithClock(clock.Now),
		reminder.WithLogger(remLog),
	}
	if store != nil {
		opts = append(opts, reminder.WithJournal(storeJournal{store: store, target: func() kit.ChatTarget {
			t, _ := sink.current()
			return t
		}}))
	}
	runner := reminder.NewRunner(rs.Runner, scanner, sink, opts...)

	rt := router.New(root.With(logx.String("comp", "commands")), ad, cfg.Telegram.OwnerUserIDs)
	svc := router.Services{
		Reminders: runner,
		Scheduler: sched,
		Notifier:  notif,
		ScanJob:   scanJobName,
		Location:  clock.Location,
		UpcomingLimit: func() int {
			if c := cfgm.Get(); c != nil && c.Reminders.UpcomingLimit > 0 {
				return c.Reminders.UpcomingLimit
			}
			return defaultUpcomingLimit
		},
	}
	if store != nil {
		svc.History = store
	}
	rt.SetRegistry(router.ReminderCommands(svc))

	return &App{
		cfgm:         cfgm,
		log:          log,
		logs:         logSvc,
		bus:          bus,
		store:        store,
		systemd:      lifecycle.NewSystemd(root.With(logx.String("comp", "systemd"))),
		adapter:      ad,
		sched:        sched,
		notif:        notif,
		router:       rt,
		source:       source,
		clock:        clock,
		sink:         sink,
		runner:       runner,
		pollSchedule: rs.PollSchedule,
		updates:      make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapReminderConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifierConfig(cfg); err != nil {
			return err
		}
		_, err := mapSchedulerConfig(cfg)
		return err
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.notif.Start(a.sup.Context())

	if err := a.registerScan(a.pollSchedule, true); err != nil {
		return err
	}
	cfg := a.cfgm.Get()
	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Warn("scheduler disabled; reminders will not fire until scheduler.enabled is true")
	}
	if len(cfg.Reminders.Files) == 0 {
		a.log.Warn("reminders.files is empty; nothing to scan")
	}
	if cfg.ReminderChatID() == 0 {
		a.log.Warn(errNoTarget.Error())
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})
	a.sup.Go0("telegram.menu", func(c context.Context) {
		if err := a.router.PublishMenu(c); err != nil {
			a.log.Debug("menu update failed", logx.Err(err))
		}
	})
	a.startEventLog()
	a.startReload()
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.systemd.Ready(a.sup.Context())
	a.systemd.Status("watching %d file(s)", len(cfg.Reminders.Files))
	a.log.Info("app started",
		logx.Int("files", len(cfg.Reminders.Files)),
		logx.String("poll_interval", a.pollSchedule),
		logx.String("vault", cfg.Reminders.VaultPath),
	)
	return nil
}

// registerScan (re)installs the periodic scan. runNow fires a scan as soon
// as the scheduler runs; skip-if-running keeps scans serialized, including
// a scan still in flight from the schedule being replaced.
func (a *App) registerScan(schedule string, runNow bool) error {
	_, err := a.sched.AddScheduleOpt(scanJobName, schedule, 0, scheduler.TaskOptions{
		Overlap:    scheduler.OverlapSkipIfRunning,
		RunOnStart: runNow,
	}, a.runner.RunOnce)
	if err != nil {
		return fmt.Errorf("register %s: %w", scanJobName, err)
	}
	a.pollSchedule = schedule
	return nil
}

// startEventLog mirrors bus events into the log.
func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(128)
	log := a.log.With(logx.String("comp", "events"))
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				switch {
				case isLogRelayEvent(e):
					// Failed log lines would only feed the log sink again.
					log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
				case e.Type == "notifier.failed" || e.Type == "notifier.dropped" || e.Type == "scheduler.failed":
					log.Warn("event", logx.String("type", e.Type), logx.Any("data", e.Data))
				case strings.HasPrefix(e.Type, "reminder."):
					log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
				default:
					log.Trace("event", logx.String("type", e.Type))
				}
			}
		}
	})
}

func isLogRelayEvent(e eventbus.Event) bool {
	ev, ok := e.Data.(notifier.NotificationEvent)
	return ok && ev.Channel == logChannel
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", reason.String()))
	a.systemd.Stopping(reason)

	// Background loops start unwinding immediately.
	a.sup.Cancel()

	a.step(ctx, "scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.step(ctx, "notifier", 2*time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop)
	a.step(ctx, "storage", 1*time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.log.Info("stopped", logx.Uint64("events_dropped", a.bus.Dropped()))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs fn with an upper bound so one component cannot stall the whole
// stop. The caller's deadline is never extended.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		limit = min(limit, time.Until(dl))
	}
	if limit <= 0 {
		a.log.Warn("stop step skipped, no time left", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
