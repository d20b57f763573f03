// Package app wires the agent together and owns the daily delivery cycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leetbot/internal/catalog"
	"leetbot/internal/config"
	"leetbot/internal/digest"
	"leetbot/internal/notify"
	"leetbot/internal/scheduler"
	"leetbot/internal/storage"
	logx "leetbot/pkg/logx"
)

// cycleTimeout bounds one delivery cycle end to end (selection, one
// possible catalog refresh, delivery).
const cycleTimeout = 3 * time.Minute

type App struct {
	cfg *config.Config
	log logx.Logger
	loc *time.Location

	store    storage.Store
	fetcher  *catalog.Fetcher
	sender   *notify.Sender
	selector *digest.Selector
	sched    *scheduler.Service
}

func New(cfg *config.Config, log logx.Logger) (*App, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeout(),
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	fetcher := catalog.NewFetcher(catalog.FetcherConfig{
		GraphQLURL: cfg.Catalog.GraphQLURL,
		Timeout:    cfg.CatalogTimeout(),
	}, store, log.With(logx.String("comp", "catalog")))

	sender, err := notify.New(notify.Config{
		Token:      cfg.Telegram.Token,
		ChatID:     cfg.Telegram.ChatID,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With(logx.String("comp", "notify")))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("telegram sender: %w", err)
	}

	a := &App{
		cfg:      cfg,
		log:      log.With(logx.String("comp", "app")),
		loc:      loc,
		store:    store,
		fetcher:  fetcher,
		sender:   sender,
		selector: digest.New(store, fetcher, nil, log.With(logx.String("comp", "selector"))),
	}

	sched, err := scheduler.New(scheduler.Config{
		Time:     cfg.Schedule.Time,
		Timezone: cfg.Schedule.Timezone,
		Grace:    cfg.GraceDuration(),
	}, a.dailyJob, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.sched = sched
	return a, nil
}

// Start begins the daily schedule and blocks only for setup, not for the
// process lifetime; callers wait on their signal context.
func (a *App) Start(ctx context.Context) error {
	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	a.log.Info("agent ready",
		logx.String("send_time", a.cfg.Schedule.Time),
		logx.String("tz", a.cfg.Schedule.Timezone),
		logx.Time("next_run", a.sched.Next()))
	return nil
}

func (a *App) Stop(ctx context.Context) {
	a.sched.Stop(ctx)
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logx.Err(err))
	}
}

func (a *App) dailyJob(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()
	a.DeliverDaily(cctx)
}

// DeliverDaily runs one complete cycle for the current date: select, format,
// send. Every failure is reduced to a log line and a false return; nothing
// escapes to the scheduler.
func (a *App) DeliverDaily(ctx context.Context) bool {
	day := catalog.DayOf(time.Now().In(a.loc))
	log := a.log.With(logx.String("day", day.String()))
	log.Info("daily cycle started")

	batch, err := a.selector.SelectDaily(ctx, day)
	switch {
	case errors.Is(err, digest.ErrAlreadySent):
		log.Info("batch already delivered, nothing to do")
		return true
	case err != nil:
		var exhausted *digest.ExhaustedError
		if errors.As(err, &exhausted) {
			log.Warn("catalog exhausted, operator intervention required",
				logx.String("tier", exhausted.Tier.String()))
		} else {
			log.Error("selection failed", logx.Err(err))
		}
		return false
	}

	// The batch is committed at this point: a failed send does not return
	// the problems to the pool, and a re-run today is a no-op.
	if err := a.sender.Send(ctx, digest.FormatMessage(batch)); err != nil {
		log.Error("delivery failed for committed batch", logx.Err(err))
		return false
	}

	log.Info("daily problems sent",
		logx.String("easy", batch.Easy.Title),
		logx.String("medium", batch.Medium.Title),
		logx.String("hard", batch.Hard.Title))
	return true
}

// SendStats delivers the remaining/total report to the configured chat.
func (a *App) SendStats(ctx context.Context) bool {
	totals, sent, err := a.selector.Stats(ctx)
	if err != nil {
		a.log.Error("stats query failed", logx.Err(err))
		return false
	}
	if err := a.sender.Send(ctx, digest.FormatStats(totals, sent)); err != nil {
		a.log.Error("stats delivery failed", logx.Err(err))
		return false
	}
	return true
}

// RefreshCatalog fetches the full remote catalog into the store.
func (a *App) RefreshCatalog(ctx context.Context) error {
	added, total, err := a.fetcher.FetchAll(ctx)
	if err != nil {
		return err
	}
	a.log.Info("catalog fetched", logx.Int("free", added), logx.Int("total", total))
	return nil
}

// SelfTest exercises delivery, fetching and storage end to end.
func (a *App) SelfTest(ctx context.Context) error {
	if err := a.sender.SelfTest(ctx); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := a.RefreshCatalog(ctx); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	totals, sent, err := a.selector.Stats(ctx)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	a.log.Info("self-test passed", logx.Any("totals", totals), logx.Any("sent", sent))
	return nil
}
