package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	_ "github.com/joho/godotenv/autoload"

	"leetbot/internal/app"
	"leetbot/internal/config"
	logx "leetbot/pkg/logx"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to config yaml/json (empty: environment only)")
		once     = flag.Bool("once", false, "run one delivery cycle now and exit")
		stats    = flag.Bool("stats", false, "send the problem statistics report and exit")
		fetch    = flag.Bool("fetch", false, "refresh the problem catalog and exit")
		selftest = flag.Bool("selftest", false, "check delivery, fetching and storage, then exit")
	)
	flag.Parse()

	if err := run(*cfgPath, *once, *stats, *fetch, *selftest); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(cfgPath string, once, stats, fetch, selftest bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.ConsoleLogging(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}

	switch {
	case once:
		defer a.Stop(context.Background())
		if !a.DeliverDaily(ctx) {
			return fmt.Errorf("delivery cycle failed")
		}
		return nil
	case stats:
		defer a.Stop(context.Background())
		if !a.SendStats(ctx) {
			return fmt.Errorf("stats report failed")
		}
		return nil
	case fetch:
		defer a.Stop(context.Background())
		return a.RefreshCatalog(ctx)
	case selftest:
		defer a.Stop(context.Background())
		return a.SelfTest(ctx)
	}

	if err := a.Start(ctx); err != nil {
		return err
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	a.Stop(stopCtx)
	return nil
}
