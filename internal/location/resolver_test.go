package location

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantfinder/internal/logging"
	"restaurantfinder/internal/metrics"
)

type fakeSubscription struct {
	updates chan Fix
	closed  *atomic.Int32
}

func (s *fakeSubscription) Updates() <-chan Fix { return s.updates }
func (s *fakeSubscription) Close()              { s.closed.Add(1) }

type fakeProvider struct {
	permitted  bool
	last       *Fix
	lastErr    error
	requestErr error
	updates    chan Fix
	requests   atomic.Int32
	closed     atomic.Int32
}

func (p *fakeProvider) Permitted() bool { return p.permitted }

func (p *fakeProvider) LastKnown(ctx context.Context) (Fix, bool, error) {
	if p.lastErr != nil {
		return Fix{}, false, p.lastErr
	}
	if p.last == nil {
		return Fix{}, false, nil
	}
	return *p.last, true, nil
}

func (p *fakeProvider) RequestUpdate(ctx context.Context) (Subscription, error) {
	p.requests.Add(1)
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	return &fakeSubscription{updates: p.updates, closed: &p.closed}, nil
}

var (
	now  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	here = Coordinate{Latitude: 40.7128, Longitude: -74.006}
)

func fixAt(age time.Duration) *Fix {
	return &Fix{Coordinate: here, At: now.Add(-age)}
}

func newResolver(p Provider, opts ...Option) *Resolver {
	return NewResolver(p, append([]Option{WithClock(func() time.Time { return now })}, opts...)...)
}

func TestNoPermissionReturnsDefaultImmediately(t *testing.T) {
	p := &fakeProvider{permitted: false, last: fixAt(time.Second)}

	start := time.Now()
	res := newResolver(p).Resolve(context.Background())

	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, Result{Coordinate: Coordinate{Latitude: 37.786882, Longitude: -122.399972}, Source: SourceDefault}, res)
	assert.Zero(t, p.requests.Load())
}

func TestDeniedProvider(t *testing.T) {
	res := NewResolver(Denied{}).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, Default, res.Coordinate)
}

func TestNilProvider(t *testing.T) {
	assert.Equal(t, SourceDefault, NewResolver(nil).Resolve(context.Background()).Source)
}

func TestFreshLastKnownSkipsUpdate(t *testing.T) {
	p := &fakeProvider{permitted: true, last: fixAt(30 * time.Second)}

	res := newResolver(p).Resolve(context.Background())

	assert.Equal(t, SourceLastKnown, res.Source)
	assert.Equal(t, here, res.Coordinate)
	assert.Zero(t, p.requests.Load())
}

func TestStaleLastKnownRequestsLiveUpdate(t *testing.T) {
	live := Coordinate{Latitude: 51.5, Longitude: -0.12}
	updates := make(chan Fix, 1)
	updates <- Fix{Coordinate: live, At: now}
	p := &fakeProvider{permitted: true, last: fixAt(2 * time.Minute), updates: updates}

	res := newResolver(p).Resolve(context.Background())

	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, live, res.Coordinate)
	assert.Equal(t, int32(1), p.requests.Load())
	assert.Equal(t, int32(1), p.closed.Load())
}

func TestTimeoutFallsBackToStaleFix(t *testing.T) {
	p := &fakeProvider{permitted: true, last: fixAt(10 * time.Minute), updates: make(chan Fix)}

	res := newResolver(p, WithTimeout(20*time.Millisecond)).Resolve(context.Background())

	assert.Equal(t, SourceStale, res.Source)
	assert.Equal(t, here, res.Coordinate)
	assert.Equal(t, int32(1), p.closed.Load())
}

func TestTimeoutWithoutFixReturnsDefault(t *testing.T) {
	p := &fakeProvider{permitted: true, updates: make(chan Fix)}

	start := time.Now()
	res := newResolver(p, WithTimeout(20*time.Millisecond)).Resolve(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, Default, res.Coordinate)
	assert.Equal(t, int32(1), p.closed.Load())
}

func TestRequestErrorFallsBack(t *testing.T) {
	p := &fakeProvider{permitted: true, requestErr: errors.New("gps off")}
	res := newResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)

	p = &fakeProvider{permitted: true, requestErr: errors.New("gps off"), last: fixAt(time.Hour)}
	res = newResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceStale, res.Source)
}

func TestLastKnownErrorIsIgnored(t *testing.T) {
	updates := make(chan Fix, 1)
	updates <- Fix{Coordinate: here, At: now}
	p := &fakeProvider{permitted: true, lastErr: errors.New("boom"), updates: updates}

	res := newResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceLive, res.Source)
}

func TestClosedUpdatesFallsBack(t *testing.T) {
	updates := make(chan Fix)
	close(updates)
	p := &fakeProvider{permitted: true, updates: updates}

	res := newResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)
	assert.Equal(t, int32(1), p.closed.Load())
}

func TestCancellationReleasesSubscription(t *testing.T) {
	p := &fakeProvider{permitted: true, last: fixAt(time.Hour), updates: make(chan Fix)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Result, 1)
	go func() { done <- newResolver(p).Resolve(ctx) }()

	require.Eventually(t, func() bool { return p.requests.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, SourceDefault, res.Source)
	case <-time.After(time.Second):
		t.Fatal("Resolve did not return after cancellation")
	}
	assert.Equal(t, int32(1), p.closed.Load())
}

func TestResolveRecordsSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	NewResolver(Denied{}, WithMetrics(c)).Resolve(context.Background())

	n, err := testutil.GatherAndCount(reg, "restaurantfinder_location_resolutions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIPProviderLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":48.8566,"lon":2.3522}`))
	}))
	defer srv.Close()

	p := NewIPProvider(true, srv.URL)
	_, ok, err := p.LastKnown(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	res := NewResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceLive, res.Source)
	assert.InDelta(t, 48.8566, res.Latitude, 1e-9)
	assert.InDelta(t, 2.3522, res.Longitude, 1e-9)

	// The fix is cached and fresh for the next call.
	res = NewResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceLastKnown, res.Source)
}

func TestIPProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	p := NewIPProvider(true, srv.URL)
	_, err := p.lookup(context.Background())
	assert.ErrorIs(t, err, ErrLookupFailed)
	assert.Contains(t, err.Error(), "reserved range")

	res := NewResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)
}

func TestIPProviderLogsLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	p := NewIPProvider(true, srv.URL, WithIPLogger(logging.New(&buf, log.WarnLevel)))

	res := NewResolver(p).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)
	assert.Contains(t, buf.String(), "ip location lookup failed")
	assert.Contains(t, buf.String(), "status 503")
}

func TestIPProviderWithoutConsent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	res := NewResolver(NewIPProvider(false, srv.URL)).Resolve(context.Background())
	assert.Equal(t, SourceDefault, res.Source)
	assert.Zero(t, hits.Load())
}

func TestFixedProvider(t *testing.T) {
	res := NewResolver(NewFixedProvider(here)).Resolve(context.Background())
	assert.Equal(t, SourceLastKnown, res.Source)
	assert.Equal(t, here, res.Coordinate)
}
