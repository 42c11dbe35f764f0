// Package watcher runs periodic reconciliation passes over a watchlist until
// every watched match has completed.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"matchwatch/internal/reconcile"
)

// Reconciler runs one reconciliation cycle for a match
type Reconciler interface {
	Check(ctx context.Context, matchURL string) (*reconcile.Result, error)
}

// Config holds the scheduling settings of a Driver
type Config struct {
	// CheckInterval is the minimum time between two passes (default: 2 hours)
	CheckInterval time.Duration
	// WakeInterval is how often the driver wakes to see whether a pass is due (default: 30 minutes)
	WakeInterval time.Duration
	// RunAtStart runs the first pass immediately instead of after CheckInterval
	RunAtStart bool
	// Concurrency is the number of matches reconciled in parallel (default: 1)
	Concurrency int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		CheckInterval: 2 * time.Hour,
		WakeInterval:  30 * time.Minute,
		RunAtStart:    true,
		Concurrency:   1,
	}
}

// PassSummary counts the outcomes of one pass
type PassSummary struct {
	ID        string
	Checked   int
	NewEvents int
	Removed   int
	Failed    int
	Remaining int
	Duration  time.Duration
}

// Driver owns the watchlist and schedules passes
type Driver struct {
	config     Config
	reconciler Reconciler
	watchlist  *Watchlist

	now    func() time.Time
	log    zerolog.Logger
	onPass func(PassSummary)
}

// NewDriver creates a driver. The driver takes ownership of watchlist.
func NewDriver(reconciler Reconciler, watchlist *Watchlist, config Config) *Driver {
	defaults := DefaultConfig()
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}
	if config.WakeInterval <= 0 {
		config.WakeInterval = defaults.WakeInterval
	}
	if config.WakeInterval > config.CheckInterval {
		config.WakeInterval = config.CheckInterval
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}

	return &Driver{
		config:     config,
		reconciler: reconciler,
		watchlist:  watchlist,
		now:        time.Now,
		log:        zlog.With().Str("component", "watcher").Logger(),
	}
}

// OnPass registers a callback invoked after every pass
func (d *Driver) OnPass(fn func(PassSummary)) {
	d.onPass = fn
}

// Watchlist returns the driver's watchlist
func (d *Driver) Watchlist() *Watchlist {
	return d.watchlist
}

// Run executes passes until the watchlist is empty or ctx is cancelled.
// An empty watchlist ends Run with a nil error.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info().
		Int("matches", d.watchlist.Len()).
		Dur("check_interval", d.config.CheckInterval).
		Dur("wake_interval", d.config.WakeInterval).
		Msg("starting watch")

	// Passes are timed from their start; a pass due within half a wake runs on this tick.
	ticker := time.NewTicker(d.config.WakeInterval)
	defer ticker.Stop()

	lastPass := d.now()
	if d.config.RunAtStart && !d.watchlist.Empty() {
		d.Pass(ctx)
	}
	due := d.config.CheckInterval - d.config.WakeInterval/2

	for {
		if d.watchlist.Empty() {
			d.log.Info().Msg("no more matches to watch, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			d.log.Info().Int("remaining", d.watchlist.Len()).Msg("context cancelled, stopping watch")
			return ctx.Err()
		case <-ticker.C:
			if d.now().Sub(lastPass) < due {
				continue
			}
			lastPass = d.now()
			d.Pass(ctx)
		}
	}
}

type outcome struct {
	url string
	res *reconcile.Result
	err error
}

// Pass reconciles every watched match once and prunes the completed ones.
// A failing match is logged and kept; it never stops the pass.
func (d *Driver) Pass(ctx context.Context) PassSummary {
	start := d.now()
	summary := PassSummary{ID: uuid.Must(uuid.NewV7()).String()}
	log := d.log.With().Str("pass", summary.ID).Logger()

	urls := d.watchlist.URLs()
	log.Info().Int("matches", len(urls)).Msg("pass started")

	outcomes := d.reconcileAll(ctx, urls)

	for _, o := range outcomes {
		if o.res == nil {
			// not attempted, pass cancelled
			continue
		}
		summary.Checked++
		if o.err != nil {
			summary.Failed++
			log.Error().Err(o.err).Str("url", o.url).Msg("reconcile failed, will retry next pass")
		}
		summary.NewEvents += len(o.res.NewEvents)
		if !o.res.Keep && d.watchlist.Remove(o.url) {
			summary.Removed++
			log.Info().Str("url", o.url).Msg("removed from watchlist")
		}
	}

	summary.Remaining = d.watchlist.Len()
	summary.Duration = d.now().Sub(start)
	log.Info().
		Int("checked", summary.Checked).
		Int("new_events", summary.NewEvents).
		Int("removed", summary.Removed).
		Int("failed", summary.Failed).
		Int("remaining", summary.Remaining).
		Dur("took", summary.Duration).
		Msg("pass finished")

	if d.onPass != nil {
		d.onPass(summary)
	}
	return summary
}

// reconcileAll runs the reconciler over urls with at most Concurrency calls in
// flight. Outcomes keep the order of urls.
func (d *Driver) reconcileAll(ctx context.Context, urls []string) []outcome {
	outcomes := make([]outcome, len(urls))
	sem := make(chan struct{}, d.config.Concurrency)
	var wg sync.WaitGroup

	for i, u := range urls {
		outcomes[i].url = u
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := d.reconciler.Check(ctx, u)
			if res == nil {
				res = &reconcile.Result{URL: u, Keep: true}
			}
			outcomes[i].res = res
			outcomes[i].err = err
		}(i, u)
	}

	wg.Wait()
	return outcomes
}
