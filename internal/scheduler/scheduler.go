// Package scheduler fires the daily delivery job at a configured local
// time. A firing observed past the grace window is skipped, never run
// late.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "leetbot/pkg/logx"
)

const defaultGrace = 5 * time.Minute

type Config struct {
	Time     string        // daily fire time, "HH:MM"
	Timezone string        // IANA TZ, e.g. "America/New_York"
	Grace    time.Duration // misfire window; 0 means default (5m)
}

// Job is the daily entry point. It must not panic past the scheduler;
// the run wrapper recovers anyway as a last line of defense.
type Job func(ctx context.Context)

type Service struct {
	cfg  Config
	log  logx.Logger
	loc  *time.Location
	hour int
	min  int
	job  Job

	now func() time.Time // test seam

	mu sync.Mutex
	c  *cron.Cron
}

func New(cfg Config, job Job, log logx.Logger) (*Service, error) {
	hour, min, err := parseHHMM(cfg.Time)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:  cfg,
		log:  log,
		loc:  loc,
		hour: hour,
		min:  min,
		job:  job,
		now:  time.Now,
	}, nil
}

// Spec returns the 5-field cron spec for the configured daily time.
func (s *Service) Spec() string {
	return fmt.Sprintf("%d %d * * *", s.min, s.hour)
}

// Next returns the next fire time after now.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}
	}
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc(s.Spec(), func() { s.run(ctx) })
	if err != nil {
		return err
	}
	c.Start()
	s.c = c
	s.log.Info("scheduler started",
		logx.String("at", s.cfg.Time),
		logx.String("tz", s.loc.String()),
		logx.Duration("grace", s.cfg.Grace))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop cancelled", logx.Err(ctx.Err()))
	}
}

func (s *Service) run(ctx context.Context) {
	now := s.now().In(s.loc)
	if late, ok := s.lateBy(now); !ok {
		s.log.Warn("misfire outside grace window, skipping run",
			logx.Duration("late", late),
			logx.Duration("grace", s.cfg.Grace))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in daily job", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	s.job(ctx)
}

// lateBy measures how far past the scheduled fire time the tick was
// observed and reports whether it is still within the grace window.
func (s *Service) lateBy(now time.Time) (time.Duration, bool) {
	sched := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.min, 0, 0, s.loc)
	if sched.After(now) {
		// Tick arrived before today's slot (clock skew); treat as on time.
		return 0, true
	}
	late := now.Sub(sched)
	return late, late <= s.cfg.Grace
}

func parseHHMM(raw string) (hour, min int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("daily time %q: want HH:MM", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("daily time %q: bad hour", raw)
	}
	min, err = strconv.Atoi(parts[1])
	if err != nil || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("daily time %q: bad minute", raw)
	}
	return hour, min, nil
}
