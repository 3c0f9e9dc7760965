package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vaultbot/internal/eventbus"
	rtsup "vaultbot/internal/runtime/supervisor"
	kit "vaultbot/internal/transport"
	logx "vaultbot/pkg/logx"
)

// Service is safe for concurrent use.
type Service struct {
	log     logx.Logger
	adapter kit.Adapter
	bus     eventbus.Bus

	mu        sync.Mutex
	cfg       Config
	limiter   *rate.Limiter
	queue     chan kit.Notification
	accepting bool
	sup       *rtsup.Supervisor
	inflight  sync.WaitGroup // Notify calls between the accepting check and the send

	dedup *dedupCache

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{adapter: adapter, log: log, bus: bus, dedup: newDedupCache()}
	s.Apply(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps limits and retry policy. Worker count and queue size take
// effect on the next Start.
func (s *Service) Apply(cfg Config) {
	cfg = withDefaults(cfg)
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

// Start launches the worker pool. It is a no-op when disabled or running.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil || !s.cfg.Enabled {
		return
	}
	s.queue = make(chan kit.Notification, s.cfg.QueueSize)
	s.accepting = true
	s.sup = rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "notifier"))),
		rtsup.WithCancelOnError(false),
	)
	q := s.queue
	for i := range s.cfg.Workers {
		s.sup.GoRestart(fmt.Sprintf("notifier.worker.%d", i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return c.Err()
				case n, ok := <-q:
					if !ok {
						return nil
					}
					_ = s.send(c, n)
				}
			}
		}, rtsup.WithPublishFirstError(true))
	}
	s.log.Debug("notifier started", logx.Int("workers", s.cfg.Workers), logx.Int("queue", s.cfg.QueueSize))
}

// Stop refuses new messages, lets workers drain the queue and waits until
// ctx ends, at which point pending sends are abandoned.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q, sup := s.queue, s.sup
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue, s.sup = nil, nil
	s.mu.Unlock()

	s.inflight.Wait()
	close(q)
	if err := sup.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("notifier drain timed out", logx.Int("pending", len(q)))
		} else {
			s.log.Debug("notifier stopped with error", logx.Err(err))
		}
	}
	sup.Cancel()
}

// Notify queues n for asynchronous delivery. Duplicates inside the dedup
// window are dropped silently.
func (s *Service) Notify(ctx context.Context, n kit.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	cfg, q := s.cfg, s.queue
	if !cfg.Enabled {
		s.mu.Unlock()
		return ErrDisabled
	}
	if !s.accepting || q == nil {
		s.mu.Unlock()
		return ErrStopped
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	key := dedupKey(n)
	if !s.dedup.allow(key, time.Now(), cfg.DedupWindow, cfg.DedupMaxEntries) {
		s.publish("notifier.deduped", n, key, 0, nil)
		return nil
	}
	select {
	case q <- n:
		s.publish("notifier.queued", n, key, 0, nil)
		return nil
	default:
		s.publish("notifier.dropped", n, key, 0, ErrQueueFull)
		return ErrQueueFull
	}
}

// Deliver sends n now, honouring the rate limit and retry policy, and
// returns the last error if every attempt failed.
func (s *Service) Deliver(ctx context.Context, n kit.Notification) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if !cfg.Enabled {
		return ErrDisabled
	}
	key := dedupKey(n)
	if !s.dedup.allow(key, time.Now(), cfg.DedupWindow, cfg.DedupMaxEntries) {
		s.publish("notifier.deduped", n, key, 0, nil)
		return nil
	}
	return s.send(ctx, n)
}

// History returns the most recent successful sends, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) remember(n kit.Notification, text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Channel: n.Channel, ChatID: n.Target.ChatID, Text: text})
	if over := len(s.history) - historySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
	s.hmu.Unlock()
}

func (s *Service) publish(typ string, n kit.Notification, key string, attempts int, err error) {
	if s.bus == nil {
		return
	}
	ev := NotificationEvent{
		Channel:  n.Channel,
		ChatID:   n.Target.ChatID,
		ThreadID: n.Target.ThreadID,
		Key:      key,
		Attempts: attempts,
		At:       time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: ev.At, Data: ev})
}
