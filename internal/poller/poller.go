// Package poller schedules periodic refetches of backend resources and
// exposes their loading, error and data state.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long the last good result outlives failed refetches.
const DefaultTTL = 5 * time.Minute

// FetchFunc loads one snapshot of a resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State is the observable state of a query.
type State[T any] struct {
	Data       T
	HasData    bool
	IsLoading  bool // first fetch in progress, no data yet
	IsFetching bool
	IsError    bool
	Err        error
	UpdatedAt  time.Time
}

// Query polls one resource on a fixed interval.
type Query[T any] struct {
	key      string
	interval time.Duration
	fetch    FetchFunc[T]
	cache    *cache.Cache
	group    *singleflight.Group
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	onUpdate func(State[T])
	now      func() time.Time

	busy  atomic.Bool
	stale atomic.Bool
	epoch atomic.Uint64 // bumped by Invalidate
	kick  chan struct{}

	mu       sync.RWMutex
	state    State[T]
	inFlight int
}

// Option configures a Query.
type Option[T any] func(*Query[T])

// WithCache shares a result cache between queries. Keys must be unique.
func WithCache[T any](c *cache.Cache) Option[T] {
	return func(q *Query[T]) {
		if c != nil {
			q.cache = c
		}
	}
}

// WithGroup shares request deduplication between queries.
func WithGroup[T any](g *singleflight.Group) Option[T] {
	return func(q *Query[T]) {
		if g != nil {
			q.group = g
		}
	}
}

// WithMetrics counts polls.
func WithMetrics[T any](m *metrics.Metrics) Option[T] {
	return func(q *Query[T]) {
		q.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger[T any](l zerolog.Logger) Option[T] {
	return func(q *Query[T]) {
		q.logger = l
	}
}

// OnUpdate registers a callback run after every completed fetch.
func OnUpdate[T any](fn func(State[T])) Option[T] {
	return func(q *Query[T]) {
		q.onUpdate = fn
	}
}

// New creates a query. Results are cached for DefaultTTL unless a cache is
// supplied.
func New[T any](key string, interval time.Duration, fetch FetchFunc[T], opts ...Option[T]) *Query[T] {
	q := &Query[T]{
		key:      key,
		interval: interval,
		fetch:    fetch,
		cache:    cache.New(DefaultTTL, 0),
		group:    &singleflight.Group{},
		logger:   zerolog.Nop(),
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With().Str("component", "poller").Str("query", key).Logger()
	if v, ok := q.cache.Get(key); ok {
		if data, ok := v.(T); ok {
			q.state.Data = data
			q.state.HasData = true
		}
	}
	return q
}

// State returns a snapshot of the query state.
func (q *Query[T]) State() State[T] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.state
}

// Refetch fetches now. Concurrent callers share one request.
func (q *Query[T]) Refetch(ctx context.Context) (T, error) {
	v, err, _ := q.group.Do(q.key, func() (any, error) {
		return q.load(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (q *Query[T]) load(ctx context.Context) (T, error) {
	epoch := q.epoch.Load()
	q.mu.Lock()
	q.inFlight++
	q.state.IsFetching = true
	q.state.IsLoading = !q.state.HasData
	q.mu.Unlock()

	data, err := q.fetch(ctx)
	q.metrics.ObservePoll(q.key, err)

	q.mu.Lock()
	q.inFlight--
	q.state.IsFetching = q.inFlight > 0
	q.state.IsLoading = q.state.IsFetching && !q.state.HasData
	if q.epoch.Load() != epoch {
		// started before an invalidation; a newer fetch owns state and cache
		q.mu.Unlock()
		q.logger.Debug().Err(err).Msg("Discarded result fetched before invalidation")
		return data, err
	}
	if err != nil {
		q.state.IsError = true
		q.state.Err = err
		if v, ok := q.cache.Get(q.key); ok {
			q.state.Data, q.state.HasData = v.(T)
		} else {
			var zero T
			q.state.Data, q.state.HasData = zero, false
		}
	} else {
		q.cache.Set(q.key, data, cache.DefaultExpiration)
		q.state = State[T]{Data: data, HasData: true, IsFetching: q.state.IsFetching, UpdatedAt: q.now()}
	}
	snapshot := q.state
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn().Err(err).Msg("Fetch failed")
	}
	if q.onUpdate != nil {
		q.onUpdate(snapshot)
	}
	return data, err
}

// Invalidate drops the cached result and asks a running poller to refetch
// without waiting for the next tick. A fetch already in flight is detached:
// later callers start a new request and its result is discarded.
func (q *Query[T]) Invalidate() {
	q.epoch.Add(1)
	q.group.Forget(q.key)
	q.cache.Delete(q.key)
	q.stale.Store(true)
	select {
	case q.kick <- struct{}{}:
	default:
	}
}

// Run fetches immediately and then on every tick until ctx is cancelled. A
// tick arriving while a fetch is still in flight is skipped.
func (q *Query[T]) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	q.tick(ctx, &wg)
	if q.interval <= 0 {
		return
	}
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.tick(ctx, &wg)
		case <-q.kick:
			q.tick(ctx, &wg)
		}
	}
}

func (q *Query[T]) tick(ctx context.Context, wg *sync.WaitGroup) {
	if !q.busy.CompareAndSwap(false, true) {
		q.metrics.ObservePollSkipped(q.key)
		q.logger.Debug().Msg("Previous fetch still running, tick skipped")
		return
	}
	q.stale.Store(false)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			_, _ = q.Refetch(ctx)
			q.busy.Store(false)
			// an invalidation during the fetch needs one more round
			if ctx.Err() != nil || !q.stale.Load() || !q.busy.CompareAndSwap(false, true) {
				return
			}
			q.stale.Store(false)
		}
	}()
}
