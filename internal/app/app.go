package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthwatch/internal/config"
	"healthwatch/internal/dispatch"
	"healthwatch/internal/ingest"
	"healthwatch/internal/metrics"
	"healthwatch/internal/opsserver"
	"healthwatch/internal/runner"
	"healthwatch/internal/runtime/supervisor"
	"healthwatch/internal/scheduler"
	"healthwatch/internal/source"
	"healthwatch/internal/state"
	"healthwatch/internal/storage"
	"healthwatch/internal/transport"
	"healthwatch/internal/transport/console"
	"healthwatch/internal/transport/telegram"
	logx "healthwatch/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	rt   *config.Runtime

	log  logx.Logger
	logs *logx.Service

	store  *storage.Store
	state  state.Store
	sender transport.Sender

	metrics *metrics.Metrics
	disp    *dispatch.Dispatcher
	runner  *runner.Runner
	sched   *scheduler.Service
	ops     *opsserver.Server

	sup    *supervisor.Supervisor
	notify func(state string) (bool, error)
	dryRun bool
}

type Option func(*App)

// WithSender replaces the configured transport.
func WithSender(s transport.Sender) Option { return func(a *App) { a.sender = s } }

// WithLogService reuses an existing logging service instead of creating one.
func WithLogService(svc *logx.Service) Option { return func(a *App) { a.logs = svc } }

// WithDryRun keeps every news row and watermark the run would write in
// memory, so a later real run still detects and announces the same changes.
// Reference rows (sources, regions) are still created.
func WithDryRun() Option { return func(a *App) { a.dryRun = true } }

func withNotifier(fn func(string) (bool, error)) Option { return func(a *App) { a.notify = fn } }

// New loads the configuration (if not loaded yet) and constructs every
// component. Nothing runs until Start or RunOnce.
func New(ctx context.Context, cfgm *config.Manager, opts ...Option) (*App, error) {
	rt := cfgm.Get()
	if rt == nil {
		var err error
		if rt, err = cfgm.Load(); err != nil {
			return nil, err
		}
	}

	a := &App{cfgm: cfgm, rt: rt, notify: sdNotify}
	for _, o := range opts {
		o(a)
	}
	if a.logs == nil {
		a.logs, a.log = logx.New(logConfig(rt))
	} else {
		a.logs.Apply(logConfig(rt))
		a.log = a.logs.Logger()
	}
	a.log = a.log.With(logx.String("comp", "app"))
	built := false
	defer func() {
		if !built {
			a.closeResources()
		}
	}()

	stores, err := OpenStores(ctx, rt, a.log)
	if err != nil {
		return nil, err
	}
	a.store, a.state = stores.Storage, stores.State
	if a.sender == nil {
		if a.sender, err = newSender(rt, a.log); err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
	}

	a.metrics = metrics.New()
	a.disp = dispatch.New(dispatchConfig(rt), a.sender, a.log)
	a.disp.SetObserver(a.metrics)

	sources, err := buildSources(rt)
	if err != nil {
		return nil, err
	}
	var (
		cat ingest.Catalog = a.store
		wm  state.Store    = a.state
	)
	if a.dryRun {
		cat, wm = newDryCatalog(a.store), state.NewOverlay(a.state)
	}
	ing := ingest.New(cat, wm, a.log)
	a.runner = runner.New(runnerConfig(rt), sources, ing, a.disp, a.store, a.metrics, a.log)
	a.sched = scheduler.New(schedulerConfig(rt), a.scheduledRun, a.log)

	if rt.Raw.Ops.Enabled {
		a.ops = opsserver.New(opsConfig(rt), a.metrics.Registry, a.log.With(logx.String("comp", "ops")))
		a.ops.AddCheck("storage", a.store.Ping)
		if h, ok := a.state.(interface{ Health(context.Context) error }); ok {
			a.ops.AddCheck("state", h.Health)
		}
		a.ops.SetStatus(func() any { return a.Status() })
	}

	a.log.Info("app initialized",
		logx.String("transport", rt.Raw.Transport.Driver),
		logx.String("storage", rt.Raw.Storage.Driver),
		logx.String("state", rt.Raw.State.Driver),
		logx.Int("sources", len(sources)),
		logx.Bool("dry_run", a.dryRun),
	)
	built = true
	return a, nil
}

func newSender(rt *config.Runtime, log logx.Logger) (transport.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(rt.Raw.Transport.Driver)) {
	case "console":
		return console.New(log, 0), nil
	default:
		s, err := telegram.New(telegramConfig(rt), log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func buildSources(rt *config.Runtime) ([]runner.Source, error) {
	client := source.NewClient(httpConfig(rt))
	out := make([]runner.Source, 0, len(rt.Sources))
	for _, sc := range rt.Sources {
		f, err := source.Build(source.Spec{Name: sc.Name, Adapter: sc.Adapter, URL: sc.URL}, client)
		if err != nil {
			return nil, err
		}
		out = append(out, runner.Source{
			Fetcher:     f,
			Regions:     sc.Regions,
			RegionMatch: sc.RegionMatch,
			Timeout:     sc.Timeout,
		})
	}
	return out, nil
}

func (a *App) Logger() logx.Logger       { return a.log }
func (a *App) Storage() *storage.Store   { return a.store }
func (a *App) State() state.Store        { return a.state }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Done is closed when the app supervisor context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// RunOnce performs one run outside the schedule. It shares the runner lock
// with scheduled runs.
func (a *App) RunOnce(ctx context.Context) (runner.Summary, error) {
	return a.runner.Run(ctx)
}

func (a *App) scheduledRun(ctx context.Context) error {
	_, err := a.runner.Run(ctx)
	if errors.Is(err, runner.ErrRunInProgress) {
		a.log.Info("run skipped: previous run still active")
		return nil
	}
	return err
}

// Start runs the scheduler, the config watcher and the ops server until ctx
// is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	if err := a.sched.Start(a.sup.Context()); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("scheduler: %w", err)
	}

	if a.ops != nil {
		// The ops endpoint is optional; its failures never stop the app.
		a.sup.GoRestart("ops.serve", a.ops.Serve,
			supervisor.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
			supervisor.WithMaxRestarts(5),
		)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	if strings.TrimSpace(a.cfgm.Path()) != "" {
		a.sup.Go("config.watch", a.cfgm.Watch)
	}

	if sent, err := a.notify("READY=1"); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified", logx.String("state", "READY=1"))
	}
	if next, ok := a.sched.Next(); ok {
		a.log.Info("app started", logx.String("next_run", next.Format(time.RFC3339)))
	} else {
		a.log.Info("app started")
	}
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Runtime) {
	last := a.rt
	for {
		select {
		case <-ctx.Done():
			return
		case rt, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						rt = newer
					}
				default:
					drained = true
				}
			}
			a.apply(last, rt)
			last = rt
		}
	}
}

// apply pushes the hot-reloadable sections into the running components.
func (a *App) apply(prev, rt *config.Runtime) {
	changed, needRestart := config.SummarizeChange(prev.Raw, rt.Raw)
	if len(changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(logConfig(rt))
	a.disp.Apply(dispatchConfig(rt))
	a.runner.Apply(runnerConfig(rt))
	if err := a.sched.Apply(schedulerConfig(rt)); err != nil {
		a.log.Warn("scheduler config rejected; keeping previous", logx.Err(err))
	}

	if len(needRestart) > 0 {
		a.log.Warn("config changes require a restart to take effect", logx.Strings("sections", needRestart))
	}
	a.log.Info("config reloaded", logx.String("changed", strings.Join(changed, ",")))
}

// Status is the operational view served by /healthz.
type Status struct {
	Running    bool                `json:"running"`
	NextRun    *time.Time          `json:"next_run,omitempty"`
	LastRun    *LastRun            `json:"last_run,omitempty"`
	Goroutines supervisor.Counters `json:"goroutines"`
}

type LastRun struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
	Changes  int       `json:"changes"`
	Sent     int       `json:"sent"`
	Skipped  []string  `json:"skipped,omitempty"`
}

func (a *App) Status() Status {
	st := Status{Running: a.runner.Running()}
	if next, ok := a.sched.Next(); ok {
		st.NextRun = &next
	}
	if s, ok := a.runner.Last(); ok {
		st.LastRun = &LastRun{
			RunID:    s.RunID,
			Started:  s.Started,
			Duration: s.Duration.String(),
			Changes:  s.Changes(),
			Sent:     s.Sent(),
			Skipped:  s.Skipped(),
		}
	}
	if a.sup != nil {
		st.Goroutines = a.sup.Counters()
	}
	return st
}

// Stop shuts the app down in order: scheduler (waiting for an in-flight run
// up to the deadline of ctx), supervised loops, transport, state, storage.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := a.notify("STOPPING=1"); err != nil {
		a.log.Debug("systemd notify failed", logx.Err(err))
	}

	a.step(ctx, "scheduler", 0, a.sched.Stop)
	if a.sup != nil {
		a.step(ctx, "supervisor", 3*time.Second, a.sup.Stop)
	}
	a.closeResourcesCtx(ctx)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func (a *App) closeResources() { a.closeResourcesCtx(context.Background()) }

func (a *App) closeResourcesCtx(ctx context.Context) {
	if c, ok := a.sender.(transport.Closer); ok {
		a.step(ctx, "transport", time.Second, c.Close)
	}
	if a.state != nil {
		a.step(ctx, "state", time.Second, func(context.Context) error { return a.state.Close() })
	}
	if a.store != nil {
		a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })
	}
}

// step runs one shutdown step bounded by max (0 = the caller's deadline only)
// so one component cannot stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx := ctx
	if max > 0 {
		if dl, ok := ctx.Deadline(); !ok || time.Until(dl) > max {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
	}

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
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
