// Package reconcile compares freshly fetched match logs with the persisted
// snapshot, stores the new snapshot and reports new events.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"matchwatch/internal/matchlog"
	"matchwatch/internal/primeleague"
	"matchwatch/internal/storage"
)

// Fetcher returns the raw log of a match page
type Fetcher interface {
	FetchMatchLogs(ctx context.Context, matchURL string) (*primeleague.MatchLogs, error)
}

// Notifier delivers new events for a match
type Notifier interface {
	NotifyEvents(ctx context.Context, matchURL string, events []matchlog.LogEntry) error
}

// Result describes the outcome of one reconciliation
type Result struct {
	URL string
	Key string

	// Keep is false once the match has been observed completed
	Keep      bool
	Completed bool
	FirstSeen bool
	NewEvents []matchlog.LogEntry

	// DeliveryErr is set when notifying failed. The new state is kept regardless.
	DeliveryErr error
}

// Engine reconciles matches against a Store
type Engine struct {
	fetcher  Fetcher
	store    storage.Store
	notifier Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	log zerolog.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(fetcher Fetcher, store storage.Store, notifier Notifier) *Engine {
	return &Engine{
		fetcher:  fetcher,
		store:    store,
		notifier: notifier,
		locks:    make(map[string]*sync.Mutex),
		log:      zlog.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile runs one cycle for matchURL and reports whether it should stay
// on the watchlist. On error the match is kept.
func (e *Engine) Reconcile(ctx context.Context, matchURL string) (bool, error) {
	res, err := e.Check(ctx, matchURL)
	return res.Keep, err
}

// Check runs one cycle for matchURL and returns its full outcome.
// Cycles for the same match never interleave.
func (e *Engine) Check(ctx context.Context, matchURL string) (*Result, error) {
	key := matchlog.MatchUp(matchURL)
	res := &Result{URL: matchURL, Key: key, Keep: true}

	lock := e.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	log := e.log.With().Str("match", key).Logger()

	fetched, err := e.fetcher.FetchMatchLogs(ctx, matchURL)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", key, err)
	}

	if fetched.Completed {
		res.Completed = true
		if err := e.forget(ctx, key); err != nil {
			return res, err
		}
		res.Keep = false
		log.Info().Str("url", matchURL).Msg("match completed, stop watching")
		return res, nil
	}

	fresh := matchlog.Classify(fetched.Entries)

	prior, err := e.store.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := e.store.Save(ctx, key, newState(matchURL, fresh)); err != nil {
			return res, fmt.Errorf("save %s: %w", key, err)
		}
		res.FirstSeen = true
		log.Info().Int("events", len(fresh)).Msg("first observation, baseline saved")
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("load %s: %w", key, err)
	}

	diff := matchlog.Diff(fresh, prior.Logs)
	if len(diff) == 0 {
		log.Debug().Msg("no new events")
		return res, nil
	}

	if _, err := e.store.Save(ctx, key, newState(matchURL, fresh)); err != nil {
		return res, fmt.Errorf("save %s: %w", key, err)
	}
	res.NewEvents = diff
	log.Info().Int("new", len(diff)).Msg("new events found")

	// State has already advanced; a failed delivery is not retried
	if err := e.notifier.NotifyEvents(ctx, matchURL, diff); err != nil {
		res.DeliveryErr = err
		log.Warn().Err(err).Msg("notification not delivered")
	}
	return res, nil
}

// forget removes the record of a completed match if one exists
func (e *Engine) forget(ctx context.Context, key string) error {
	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if !exists {
		return nil
	}
	if err := e.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	e.log.Debug().Str("match", key).Msg("state deleted")
	return nil
}

func (e *Engine) lockFor(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

func newState(matchURL string, events []matchlog.LogEntry) *matchlog.State {
	return &matchlog.State{URL: matchURL, Logs: events, Completed: false}
}
