// Package scheduler triggers the periodic run on a cron or interval schedule.
//
// A trigger that fires while the previous run is still going is skipped, not
// queued.
package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "healthwatch/pkg/logx"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Config struct {
	Schedule   string
	Timezone   string // IANA name, e.g. "Asia/Singapore"
	RunTimeout time.Duration
}

// Job is the scheduled work. The context carries the run timeout.
type Job func(ctx context.Context) error

type Service struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config
	job Job

	c      *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg Config, job Job, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, job: job, log: log.With(logx.String("comp", "scheduler"))}
}

// Start registers the job and starts the cron loop. ctx bounds every run.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	return s.startLocked()
}

func (s *Service) startLocked() error {
	spec, err := ParseSchedule(s.cfg.Schedule)
	if err != nil {
		return err
	}
	loc := loadLocation(s.cfg.Timezone, s.log)
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(spec.CronSpec(), s.fire)
	if err != nil {
		return err
	}
	c.Start()
	s.c, s.entry = c, id
	s.log.Info("scheduler started", logx.String("schedule", spec.CronSpec()), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) fire() {
	s.mu.Lock()
	ctx := s.ctx
	timeout := s.cfg.RunTimeout
	job := s.job
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := job(ctx); err != nil {
		s.log.Warn("scheduled run failed", logx.Err(err))
	}
}

// Apply swaps schedule, timezone and run timeout. A changed schedule or
// timezone restarts the cron loop; an in-flight run is not interrupted.
func (s *Service) Apply(cfg Config) error {
	if _, err := ParseSchedule(cfg.Schedule); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.c == nil {
		return nil
	}
	if old.Schedule == cfg.Schedule && strings.TrimSpace(old.Timezone) == strings.TrimSpace(cfg.Timezone) {
		return nil
	}
	s.c.Stop()
	s.c = nil
	return s.startLocked()
}

func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Next returns the next trigger time, if started.
func (s *Service) Next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return time.Time{}, false
	}
	return s.c.Entry(s.entry).Next, true
}

// Stop stops triggering and waits for an in-flight run until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	done := c.Stop()
	select {
	case <-done.Done():
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		// Abort the in-flight run.
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		return errors.Join(errors.New("scheduler stop: in-flight run aborted"), ctx.Err())
	}
}

func loadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("cron: "+msg, logx.Any("kv", kv))
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, logx.Err(err), logx.Any("kv", kv))
}
