package notifier

import (
	"context"
	"math/rand/v2"
	"time"

	kit "vaultbot/internal/transport"
	logx "vaultbot/pkg/logx"
)

const sendTimeout = 10 * time.Second

// send performs the rate-limited retry loop shared by both delivery paths.
func (s *Service) send(ctx context.Context, n kit.Notification) error {
	s.mu.Lock()
	cfg, lim := s.cfg, s.limiter
	s.mu.Unlock()
	if s.adapter == nil {
		return ErrNoAdapter
	}

	text := priorityPrefix(n.Priority) + n.Text
	attempts := 1 + cfg.RetryMax
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if werr := lim.Wait(ctx); werr != nil {
			return werr
		}
		callCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		_, err = s.adapter.SendText(callCtx, n.Target, text, n.Options)
		cancel()
		if err == nil {
			s.remember(n, text)
			s.publish("notifier.sent", n, "", attempt, nil)
			return nil
		}
		s.log.Debug("notify send failed", logx.Int("attempt", attempt), logx.Int("max", attempts), logx.Err(err))
		if attempt == attempts {
			break
		}
		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	s.publish("notifier.failed", n, "", attempts, err)
	return err
}

// retryDelay is RetryBase * 2^(attempt-1), capped, with 0.7..1.3 jitter.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = time.Duration(float64(min(d, cfg.RetryMaxDelay)) * (0.7 + rand.Float64()*0.6))
	return min(d, cfg.RetryMaxDelay)
}

func priorityPrefix(p int) string {
	switch {
	case p >= 9:
		return "🚨 "
	case p >= 7:
		return "⚠️ "
	case p >= 5:
		return "ℹ️ "
	default:
		return ""
	}
}
