// Package dispatch turns detected changes into paced messages.
//
// Changes are grouped (all news of one source become one message; every other
// change is its own message), recipients are resolved once per group, and every
// send in the process passes through one shared rate limiter.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"healthwatch/internal/model"
	"healthwatch/internal/transport"
	logx "healthwatch/pkg/logx"
)

type Config struct {
	// Pace is the minimum gap between two sends. 0 disables pacing.
	Pace             time.Duration
	RetryMax         int
	SuppressBaseline bool
	ParseMode        string
	DisablePreview   bool
}

// RecipientsFunc resolves who should hear about a change.
type RecipientsFunc func(ctx context.Context, c model.Change) ([]model.Recipient, error)

// Observer receives per-send outcomes ("ok", "failed", "unreachable").
type Observer interface {
	NotificationResult(result string)
}

type Failure struct {
	ChatID int64
	Err    error
}

type Report struct {
	Groups     int
	Suppressed int
	Sent       int
	Failed     int
	Failures   []Failure
}

const maxReportedFailures = 200

var errAborted = errors.New("dispatch aborted")

type Dispatcher struct {
	mu  sync.RWMutex
	cfg Config

	sender  transport.Sender
	log     logx.Logger
	limiter *rate.Limiter
	obs     Observer
	backoff func(attempt int) time.Duration
}

func New(cfg Config, sender transport.Sender, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		log:     log.With(logx.String("comp", "dispatch")),
		limiter: rate.NewLimiter(paceLimit(cfg.Pace), 1),
		backoff: func(i int) time.Duration { return time.Duration(200+100*i) * time.Millisecond },
	}
}

// SetObserver installs a metrics hook. Call before the first Dispatch.
func (d *Dispatcher) SetObserver(o Observer) { d.obs = o }

// Apply swaps the configuration at runtime.
func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	d.SetPace(cfg.Pace)
}

func (d *Dispatcher) SetPace(p time.Duration) {
	d.limiter.SetLimit(paceLimit(p))
}

func paceLimit(p time.Duration) rate.Limit {
	if p <= 0 {
		return rate.Inf
	}
	return rate.Every(p)
}

func (d *Dispatcher) config() Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Dispatch sends every change to its recipients. It never re-reads state and
// never fails as a whole: per-recipient failures are logged and reported.
// A cancelled context stops the remaining sends.
func (d *Dispatcher) Dispatch(ctx context.Context, changes []model.Change, recipientsFor RecipientsFunc) Report {
	cfg := d.config()
	var rep Report

	if cfg.SuppressBaseline {
		kept := changes[:0:0]
		for _, c := range changes {
			if c.Baseline() {
				rep.Suppressed++
				continue
			}
			kept = append(kept, c)
		}
		changes = kept
	}

	opt := &transport.SendOptions{ParseMode: cfg.ParseMode, DisablePreview: cfg.DisablePreview}
	for _, g := range Group(changes) {
		if ctx.Err() != nil {
			break
		}
		rep.Groups++
		text := Render(g)
		if text == "" {
			continue
		}
		parts := Split(text, MaxMessageRunes)
		log := d.log.With(logx.String("source", g[0].Source), logx.String("kind", g[0].Kind.String()))
		recipients, err := recipientsFor(ctx, g[0])
		if err != nil {
			log.Warn("resolve recipients failed", logx.Err(err))
			continue
		}
		for _, r := range uniqueRecipients(recipients) {
			err := d.sendParts(ctx, cfg, transport.ChatTarget{ChatID: r.ChatID}, parts, opt)
			switch {
			case err == nil:
				rep.Sent++
				d.observe("ok")
			case errors.Is(err, errAborted), ctx.Err() != nil:
				return rep
			default:
				rep.Failed++
				if len(rep.Failures) < maxReportedFailures {
					rep.Failures = append(rep.Failures, Failure{ChatID: r.ChatID, Err: err})
				}
				if errors.Is(err, transport.ErrUnreachable) {
					d.observe("unreachable")
				} else {
					d.observe("failed")
				}
				log.Warn("send failed", logx.Int64("chat_id", r.ChatID), logx.Err(err))
			}
		}
	}
	return rep
}

// sendParts sends the parts of one message in order and stops at the first
// part that fails.
func (d *Dispatcher) sendParts(ctx context.Context, cfg Config, to transport.ChatTarget, parts []string, opt *transport.SendOptions) error {
	for _, p := range parts {
		if err := d.sendOne(ctx, cfg, to, p, opt); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendOne(ctx context.Context, cfg Config, to transport.ChatTarget, text string, opt *transport.SendOptions) error {
	var last error
	for i := 0; i <= cfg.RetryMax; i++ {
		if err := d.limiter.Wait(ctx); err != nil {
			// The deadline cannot fit the next slot; stop rather than fail.
			return fmt.Errorf("%w: %w", errAborted, err)
		}
		_, err := d.sender.SendText(ctx, to, text, opt)
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, transport.ErrUnreachable) || i == cfg.RetryMax {
			break
		}
		t := time.NewTimer(d.backoff(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", errAborted, ctx.Err())
		case <-t.C:
		}
	}
	return last
}

func (d *Dispatcher) observe(result string) {
	if d.obs != nil {
		d.obs.NotificationResult(result)
	}
}

// Group splits changes into message groups. News of one source share a group
// placed where its first item appeared; every other change stands alone.
func Group(changes []model.Change) [][]model.Change {
	var groups [][]model.Change
	newsAt := map[string]int{}
	for _, c := range changes {
		if c.Kind == model.NewNewsItem {
			if i, ok := newsAt[c.Source]; ok {
				groups[i] = append(groups[i], c)
				continue
			}
			newsAt[c.Source] = len(groups)
		}
		groups = append(groups, []model.Change{c})
	}
	return groups
}

func uniqueRecipients(in []model.Recipient) []model.Recipient {
	seen := make(map[int64]struct{}, len(in))
	out := make([]model.Recipient, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.ChatID]; ok {
			continue
		}
		seen[r.ChatID] = struct{}{}
		out = append(out, r)
	}
	return out
}
