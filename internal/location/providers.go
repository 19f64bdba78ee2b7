package location

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"restaurantfinder/internal/logging"
)

const ipLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// ErrLookupFailed is returned when the geolocation service reports a failure.
var ErrLookupFailed = errors.New("location lookup failed")

// IPProvider approximates the device location from its public IP address.
// Each subscription performs one lookup; successful fixes are cached for LastKnown.
type IPProvider struct {
	permitted  bool
	url        string
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time

	mu   sync.Mutex
	last *Fix
}

// IPOption configures an IPProvider.
type IPOption func(*IPProvider)

// WithIPLogger sets where failed lookups are reported.
func WithIPLogger(l *log.Logger) IPOption {
	return func(p *IPProvider) { p.logger = l }
}

// NewIPProvider creates a provider. permitted is the user's location consent.
// An empty url selects the public ip-api endpoint.
func NewIPProvider(permitted bool, url string, opts ...IPOption) *IPProvider {
	if url == "" {
		url = ipLookupURL
	}
	p := &IPProvider{
		permitted:  permitted,
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *IPProvider) Permitted() bool { return p.permitted }

func (p *IPProvider) LastKnown(ctx context.Context) (Fix, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return Fix{}, false, nil
	}
	return *p.last, true, nil
}

func (p *IPProvider) RequestUpdate(ctx context.Context) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &ipSubscription{updates: make(chan Fix, 1), cancel: cancel}

	go func() {
		defer close(sub.updates)
		fix, err := p.lookup(ctx)
		if err != nil {
			// A closed subscription cancels the lookup; that is not a failure.
			if ctx.Err() != nil {
				p.logger.Debug("ip location lookup cancelled", "err", err)
				return
			}
			p.logger.Warn("ip location lookup failed", "url", p.url, "err", err)
			return
		}
		p.mu.Lock()
		p.last = &fix
		p.mu.Unlock()
		sub.updates <- fix
	}()

	return sub, nil
}

// lookup expects {"status":"success","lat":..,"lon":..} or
// {"status":"fail","message":".."}.
func (p *IPProvider) lookup(ctx context.Context) (Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Fix{}, fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Fix{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Fix{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Fix{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	result := gjson.ParseBytes(body)
	if result.Get("status").String() != "success" {
		return Fix{}, fmt.Errorf("%w: %s", ErrLookupFailed, result.Get("message").String())
	}

	lat, lon := result.Get("lat"), result.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return Fix{}, fmt.Errorf("%w: missing coordinates", ErrLookupFailed)
	}

	return Fix{
		Coordinate: Coordinate{Latitude: lat.Float(), Longitude: lon.Float()},
		At:         p.now(),
	}, nil
}

type ipSubscription struct {
	updates chan Fix
	cancel  context.CancelFunc
}

func (s *ipSubscription) Updates() <-chan Fix { return s.updates }

// Close aborts an in-flight lookup. It is safe to call more than once.
func (s *ipSubscription) Close() { s.cancel() }

// FixedProvider always reports the same coordinate.
type FixedProvider struct {
	Coordinate Coordinate
	now        func() time.Time
}

func NewFixedProvider(c Coordinate) *FixedProvider {
	return &FixedProvider{Coordinate: c, now: time.Now}
}

func (p *FixedProvider) Permitted() bool { return true }

func (p *FixedProvider) LastKnown(ctx context.Context) (Fix, bool, error) {
	return Fix{Coordinate: p.Coordinate, At: p.now()}, true, nil
}

func (p *FixedProvider) RequestUpdate(ctx context.Context) (Subscription, error) {
	ch := make(chan Fix, 1)
	ch <- Fix{Coordinate: p.Coordinate, At: p.now()}
	close(ch)
	return closedSubscription(ch), nil
}

type closedSubscription <-chan Fix

func (s closedSubscription) Updates() <-chan Fix { return s }
func (s closedSubscription) Close()              {}

// Denied is a provider without permission.
type Denied struct{}

func (Denied) Permitted() bool { return false }

func (Denied) LastKnown(ctx context.Context) (Fix, bool, error) { return Fix{}, false, nil }

func (Denied) RequestUpdate(ctx context.Context) (Subscription, error) {
	return nil, errors.New("location permission denied")
}
