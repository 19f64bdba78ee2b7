// Package location produces a best-effort coordinate for nearby searches.
package location

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"restaurantfinder/internal/logging"
	"restaurantfinder/internal/metrics"
)

const (
	// MaxFixAge is how old a last-known fix may be and still be used without a live update.
	MaxFixAge = 60 * time.Second
	// UpdateTimeout bounds the wait for a live update.
	UpdateTimeout = 10 * time.Second
)

// Default is used when no better coordinate is available.
var Default = Coordinate{Latitude: 37.786882, Longitude: -122.399972}

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Fix is a coordinate observed at a point in time.
type Fix struct {
	Coordinate
	At time.Time
}

// Source names the strategy that produced a Result.
type Source string

const (
	SourceLastKnown Source = "last_known"
	SourceLive      Source = "live"
	SourceStale     Source = "stale"
	SourceDefault   Source = "default"
)

type Result struct {
	Coordinate
	Source Source
}

// Provider is a platform location service.
type Provider interface {
	// Permitted reports whether the user allowed location access.
	Permitted() bool
	// LastKnown returns the most recent cached fix, if any.
	LastKnown(ctx context.Context) (Fix, bool, error)
	// RequestUpdate starts a live update. The caller must Close the subscription.
	RequestUpdate(ctx context.Context) (Subscription, error)
}

// Subscription delivers live fixes until closed. Updates is closed when the
// provider gives up.
type Subscription interface {
	Updates() <-chan Fix
	Close()
}

// Resolver walks the fallback chain: last-known fix, live update, stale fix, Default.
type Resolver struct {
	provider Provider
	logger   *log.Logger
	metrics  metrics.Recorder
	now      func() time.Time
	maxAge   time.Duration
	timeout  time.Duration
}

type Option func(*Resolver)

func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithTimeout overrides UpdateTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithMaxAge overrides MaxFixAge.
func WithMaxAge(d time.Duration) Option {
	return func(r *Resolver) { r.maxAge = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(p Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: p,
		logger:   logging.Discard(),
		metrics:  metrics.Nop{},
		now:      time.Now,
		maxAge:   MaxFixAge,
		timeout:  UpdateTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails. Without permission it returns Default immediately.
func (r *Resolver) Resolve(ctx context.Context) Result {
	res := r.resolve(ctx)
	r.metrics.RecordLocation(string(res.Source))
	r.logger.Debug("location resolved", "source", res.Source, "lat", res.Latitude, "lon", res.Longitude)
	return res
}

func (r *Resolver) resolve(ctx context.Context) Result {
	if r.provider == nil || !r.provider.Permitted() {
		return Result{Coordinate: Default, Source: SourceDefault}
	}

	if fix, ok := r.lastKnown(ctx); ok && r.now().Sub(fix.At) < r.maxAge {
		return Result{Coordinate: fix.Coordinate, Source: SourceLastKnown}
	}

	sub, err := r.provider.RequestUpdate(ctx)
	if err != nil {
		r.logger.Warn("location update failed", "err", err)
		return r.fallback(ctx)
	}
	defer sub.Close()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case fix, ok := <-sub.Updates():
		if ok {
			return Result{Coordinate: fix.Coordinate, Source: SourceLive}
		}
		r.logger.Debug("location provider gave up")
	case <-timer.C:
		r.logger.Debug("location update timed out", "timeout", r.timeout)
	case <-ctx.Done():
		return Result{Coordinate: Default, Source: SourceDefault}
	}

	return r.fallback(ctx)
}

// fallback re-reads the last-known fix regardless of age.
func (r *Resolver) fallback(ctx context.Context) Result {
	if fix, ok := r.lastKnown(ctx); ok {
		return Result{Coordinate: fix.Coordinate, Source: SourceStale}
	}
	return Result{Coordinate: Default, Source: SourceDefault}
}

func (r *Resolver) lastKnown(ctx context.Context) (Fix, bool) {
	if ctx.Err() != nil {
		return Fix{}, false
	}
	fix, ok, err := r.provider.LastKnown(ctx)
	if err != nil {
		r.logger.Warn("last known location unavailable", "err", err)
		return Fix{}, false
	}
	return fix, ok
}
