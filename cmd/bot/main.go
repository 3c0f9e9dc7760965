package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vaultbot/internal/app"
	"vaultbot/internal/config"
	"vaultbot/internal/runtime/lifecycle"
	logx "vaultbot/pkg/logx"
)

func main() {
	var (
		cfgPath string
		once    bool
	)
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config (json or yaml)")
	flag.BoolVar(&once, "once", false, "scan the reminder files once, print due reminders and exit")
	flag.Parse()

	if once {
		os.Exit(runOnce(cfgPath))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.NewApp(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background(), lifecycle.StopFatalError)
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	reason := lifecycle.StopAppStop
	select {
	case sig := <-sigs:
		reason = lifecycle.StopSIGINT
		if sig == syscall.SIGTERM {
			reason = lifecycle.StopSIGTERM
		}
	case <-a.Done():
		if a.Err() != nil {
			reason = lifecycle.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if err := a.Err(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func runOnce(cfgPath string) int {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 1
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logx.NewConsoleTo(os.Stderr, cfg.Logging.Level)
	n, err := app.RunOnce(ctx, cfg, os.Stdout, log, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan failed:", err)
		return 1
	}
	log.Info("scan complete", logx.Int("due", n), logx.Int("files", len(cfg.Reminders.Files)))
	return 0
}
