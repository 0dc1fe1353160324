// Package runner executes one scrape-ingest-notify pass over all sources.
//
// Fetching is parallel; ingestion and notification run source by source in
// configured order, each finishing before the next starts. At most one run is
// active per Runner.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"healthwatch/internal/dispatch"
	"healthwatch/internal/model"
	"healthwatch/internal/source"
	logx "healthwatch/pkg/logx"
)

var ErrRunInProgress = errors.New("run already in progress")

// Directory resolves subscribers.
type Directory interface {
	SubscribersOf(ctx context.Context, regions ...string) ([]model.Recipient, error)
	SubscribersMatching(ctx context.Context, substr string) ([]model.Recipient, error)
}

type Ingester interface {
	Ingest(ctx context.Context, source, region string, b model.Batch) ([]model.Change, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, changes []model.Change, recipientsFor dispatch.RecipientsFunc) dispatch.Report
}

// Recorder receives run metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveRun(result string, start time.Time)
	SourceFetch(source, result string)
	Change(kind string)
}

// Source is a configured fetcher plus its audience. News and feed-wide values
// go to subscribers of Regions and of every region whose name contains
// RegionMatch; region snapshots go to subscribers of that region.
type Source struct {
	Fetcher     source.Fetcher
	Regions     []string
	RegionMatch string
	Timeout     time.Duration
}

func (s Source) Name() string { return s.Fetcher.Name() }

type Config struct {
	Concurrency int
	RunTimeout  time.Duration
}

type Runner struct {
	sources []Source
	ingest  Ingester
	notify  Dispatcher
	dir     Directory
	rec     Recorder
	log     logx.Logger

	mu  sync.RWMutex
	cfg Config

	running atomic.Bool
	now     func() time.Time

	lastMu sync.RWMutex
	last   *Summary
}

func New(cfg Config, sources []Source, ing Ingester, d Dispatcher, dir Directory, rec Recorder, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Runner{
		sources: sources,
		ingest:  ing,
		notify:  d,
		dir:     dir,
		rec:     rec,
		log:     log.With(logx.String("comp", "runner")),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Apply swaps the hot-reloadable settings; it takes effect on the next run.
func (r *Runner) Apply(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

func (r *Runner) config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool { return r.running.Load() }

// Last returns the summary of the last completed run.
func (r *Runner) Last() (Summary, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.last == nil {
		return Summary{}, false
	}
	return *r.last, true
}

type fetched struct {
	raw source.RawBatch
	err error
}

// Run performs one full pass. It returns ErrRunInProgress when another run is
// active; that run is left alone.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.rec.ObserveRun("skipped", r.now())
		return Summary{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	cfg := r.config()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	start := r.now()
	sum := Summary{RunID: uuid.NewString(), Started: start}
	log := r.log.With(logx.String("run_id", sum.RunID))
	log.Info("run started", logx.Int("sources", len(r.sources)))

	results := r.fetchAll(ctx, cfg, log)

	for i, src := range r.sources {
		if err := ctx.Err(); err != nil {
			sum.Sources = append(sum.Sources, SourceResult{Source: src.Name(), Skipped: true, Err: err})
			continue
		}
		sum.Sources = append(sum.Sources, r.process(ctx, src, results[i], log))
	}

	sum.Duration = time.Since(start)
	result := sum.result()
	r.rec.ObserveRun(result, start)
	log.Info("run finished",
		logx.String("result", result),
		logx.Int("changes", sum.Changes()),
		logx.Int("sent", sum.Sent()),
		logx.Duration("took", sum.Duration),
	)

	r.lastMu.Lock()
	cp := sum
	r.last = &cp
	r.lastMu.Unlock()

	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("run %s: %w", sum.RunID, err)
	}
	return sum, nil
}

func (r *Runner) fetchAll(ctx context.Context, cfg Config, log logx.Logger) []fetched {
	out := make([]fetched, len(r.sources))
	var g errgroup.Group
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, src := range r.sources {
		g.Go(func() error {
			fctx := ctx
			if src.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, src.Timeout)
				defer cancel()
			}
			t0 := time.Now()
			raw, err := src.Fetcher.Fetch(fctx)
			if err != nil && !errors.Is(err, source.ErrUnavailable) {
				err = fmt.Errorf("%w: %w", source.ErrUnavailable, err)
			}
			out[i] = fetched{raw: raw, err: err}
			log.Debug("fetched", logx.String("source", src.Name()), logx.Duration("took", time.Since(t0)), logx.Err(err))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *Runner) process(ctx context.Context, src Source, f fetched, log logx.Logger) SourceResult {
	name := src.Name()
	res := SourceResult{Source: name}
	log = log.With(logx.String("source", name))

	if f.err != nil {
		r.rec.SourceFetch(name, "error")
		log.Warn("source unavailable, skipped", logx.Err(f.err))
		res.Skipped = true
		res.Err = f.err
		return res
	}
	r.rec.SourceFetch(name, "ok")

	batch, dropped := source.Normalize(f.raw)
	res.Dropped = len(dropped)
	for _, err := range dropped {
		log.Debug("record dropped", logx.Err(err))
	}

	changes, err := r.ingest.Ingest(ctx, name, primaryRegion(src), batch)
	if err != nil {
		log.Warn("ingest partially failed", logx.Err(err))
		res.Err = err
	}
	res.Changes = len(changes)
	for _, c := range changes {
		r.rec.Change(c.Kind.String())
	}
	if len(changes) == 0 {
		return res
	}

	rep := r.notify.Dispatch(ctx, changes, r.recipientsFor(src))
	res.Sent = rep.Sent
	res.Failed = rep.Failed
	res.Suppressed = rep.Suppressed
	log.Info("source processed",
		logx.Int("records", batch.Len()),
		logx.Int("changes", res.Changes),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
	)
	return res
}

func (r *Runner) recipientsFor(src Source) dispatch.RecipientsFunc {
	return func(ctx context.Context, c model.Change) ([]model.Recipient, error) {
		if c.Kind == model.RegionStatsChanged {
			return r.dir.SubscribersOf(ctx, c.Region)
		}
		var out []model.Recipient
		if len(src.Regions) > 0 {
			rs, err := r.dir.SubscribersOf(ctx, src.Regions...)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
		if m := strings.TrimSpace(src.RegionMatch); m != "" {
			rs, err := r.dir.SubscribersMatching(ctx, m)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
		return out, nil
	}
}

func primaryRegion(src Source) string {
	if len(src.Regions) > 0 {
		return src.Regions[0]
	}
	return ""
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, time.Time) {}
func (nopRecorder) SourceFetch(string, string)   {}
func (nopRecorder) Change(string)                {}
