package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "vaultbot/pkg/logx"
)

// Systemd speaks sd_notify. Outside a Type=notify unit (no NOTIFY_SOCKET)
// every call is a silent no-op.
type Systemd struct {
	log      logx.Logger
	notify   func(state string) (bool, error)
	watchdog func() (time.Duration, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSystemd(log logx.Logger) *Systemd {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Systemd{
		log:      log,
		notify:   func(state string) (bool, error) { return daemon.SdNotify(false, state) },
		watchdog: func() (time.Duration, error) { return daemon.SdWatchdogEnabled(false) },
	}
}

func (s *Systemd) send(state string) bool {
	ok, err := s.notify(state)
	if err != nil {
		s.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return false
	}
	return ok
}

// Ready reports READY=1 and starts the watchdog pinger when the unit has
// WatchdogSec set. It returns whether systemd received the message.
func (s *Systemd) Ready(ctx context.Context) bool {
	sent := s.send(daemon.SdNotifyReady)
	if sent {
		s.log.Debug("sd_notify ready")
	}

	interval, err := s.watchdog()
	if err != nil {
		s.log.Warn("watchdog config invalid", logx.Err(err))
		return sent
	}
	if interval <= 0 {
		return sent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return sent
	}
	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.ping(wctx, interval/2, s.done)
	s.log.Info("systemd watchdog enabled", logx.Duration("interval", interval))
	return sent
}

func (s *Systemd) ping(ctx context.Context, every time.Duration, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.send(daemon.SdNotifyWatchdog)
		}
	}
}

// Status publishes a free-form STATUS= line shown by systemctl status.
func (s *Systemd) Status(format string, args ...any) {
	s.send("STATUS=" + fmt.Sprintf(format, args...))
}

// Stopping reports STOPPING=1 with the reason and halts the watchdog.
func (s *Systemd) Stopping(reason StopReason) {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	s.send(daemon.SdNotifyStopping + "\nSTATUS=stopping: " + reason.String())
}
