// Package state merges remote search results and the local store into one
// observable snapshot.
package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"restaurantfinder/internal/db"
	"restaurantfinder/internal/location"
	"restaurantfinder/internal/logging"
	"restaurantfinder/internal/metrics"
	"restaurantfinder/internal/model"
	"restaurantfinder/internal/search"
)

// Gateway is the remote business search API.
type Gateway interface {
	Search(ctx context.Context, p model.SearchParams) (model.SearchResponse, error)
	BusinessDetails(ctx context.Context, id string) (model.BusinessDetail, error)
	Reviews(ctx context.Context, id string, limit int) (model.ReviewsResponse, error)
}

// Store persists favorites and ratings.
type Store interface {
	UpsertFavorite(ctx context.Context, f model.FavoriteRestaurant) error
	DeleteFavorite(ctx context.Context, id string) error
	ListFavorites(ctx context.Context) ([]model.FavoriteRestaurant, error)
	UpsertRating(ctx context.Context, r model.UserRating) error
	ListRatings(ctx context.Context) ([]model.UserRating, error)
}

// Locator resolves the coordinate for nearby searches.
type Locator interface {
	Resolve(ctx context.Context) location.Result
}

// Observer is called after every snapshot change, outside the aggregator's
// lock. It must not block. Calls from different goroutines may arrive out of
// order; compare Version to discard older snapshots.
type Observer func(Snapshot)

// Aggregator owns the application snapshot. Asynchronous operations mark
// their section loading before returning, then apply exactly one success or
// failure update when the work completes. Only the most recently issued
// request per section is applied.
type Aggregator struct {
	gateway     Gateway
	store       Store
	locator     Locator
	logger      *log.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	reviewLimit int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// storeMu serializes store access between Init and the write queue.
	storeMu sync.Mutex

	mu           sync.Mutex
	closed       bool
	writes       []func(ctx context.Context) // pending store mutations, oldest first
	writing      bool                        // a drain goroutine is running
	snap         Snapshot
	searchGen    uint64
	detailsGen   uint64
	reviewsGen   uint64
	observers    map[int]Observer
	nextObserver int
}

type Option func(*Aggregator)

func WithLocator(l Locator) Option {
	return func(a *Aggregator) { a.locator = l }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithReviewLimit sets how many reviews LoadBusiness requests.
func WithReviewLimit(n int) Option {
	return func(a *Aggregator) { a.reviewLimit = n }
}

// New creates an Aggregator. Without WithLocator, nearby searches use the default coordinate.
func New(gateway Gateway, store Store, opts ...Option) *Aggregator {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		gateway:     gateway,
		store:       store,
		locator:     location.NewResolver(location.Denied{}),
		logger:      logging.Discard(),
		metrics:     metrics.Nop{},
		now:         time.Now,
		reviewLimit: model.DefaultReviews,
		ctx:         ctx,
		cancel:      cancel,
		snap:        initialSnapshot(),
		observers:   make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns the current state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

func (a *Aggregator) IsFavorite(id string) bool {
	return a.Snapshot().IsFavorite(id)
}

func (a *Aggregator) UserRating(id string) (float64, bool) {
	return a.Snapshot().UserRating(id)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (a *Aggregator) Subscribe(fn Observer) func() {
	a.mu.Lock()
	id := a.nextObserver
	a.nextObserver++
	a.observers[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.observers, id)
			a.mu.Unlock()
		})
	}
}

// Wait blocks until every in-flight operation has completed.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

// Close cancels in-flight operations and waits for them to finish. Work
// issued after Close is dropped.
func (a *Aggregator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
	a.wg.Wait()
}

// update applies fn to a copy of the snapshot under the lock. fn returns
// false to leave the snapshot unchanged. Observers see the new snapshot.
func (a *Aggregator) update(fn func(s *Snapshot) bool) {
	a.mu.Lock()
	next := a.snap
	if !fn(&next) {
		a.mu.Unlock()
		return
	}
	next.Version = a.snap.Version + 1
	a.snap = next

	observers := make([]Observer, 0, len(a.observers))
	for _, o := range a.observers {
		observers = append(observers, o)
	}
	a.mu.Unlock()

	for _, o := range observers {
		o(next)
	}
}

// start registers one unit of work unless the aggregator is closed.
func (a *Aggregator) start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.wg.Add(1)
	return true
}

func (a *Aggregator) goAsync(fn func(ctx context.Context)) {
	if !a.start() {
		a.logger.Debug("dropping work issued after close")
		return
	}
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

// enqueueWrite queues a store mutation. Mutations run one at a time in the
// order they were issued.
func (a *Aggregator) enqueueWrite(fn func(ctx context.Context)) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		a.logger.Debug("dropping store write issued after close")
		return
	}
	a.wg.Add(1)
	a.writes = append(a.writes, fn)
	drain := !a.writing
	a.writing = true
	a.mu.Unlock()

	if drain {
		go a.drainWrites()
	}
}

func (a *Aggregator) drainWrites() {
	for {
		a.mu.Lock()
		if len(a.writes) == 0 {
			a.writing = false
			a.mu.Unlock()
			return
		}
		fn := a.writes[0]
		a.writes[0] = nil
		a.writes = a.writes[1:]
		a.mu.Unlock()

		a.storeMu.Lock()
		fn(a.ctx)
		a.storeMu.Unlock()
		a.wg.Done()
	}
}

// Init loads favorites and ratings from the store. Store failures are logged
// and leave the lists empty.
func (a *Aggregator) Init(ctx context.Context) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()
	a.reloadFavorites(ctx, "init")
	a.reloadRatings(ctx, "init")
}

// Search replaces the search parameters with p and fetches results.
func (a *Aggregator) Search(p model.SearchParams) {
	var gen uint64
	a.update(func(s *Snapshot) bool {
		a.searchGen++
		gen = a.searchGen
		s.Params = p
		s.Search.Status = Loading()
		return true
	})
	a.goAsync(func(ctx context.Context) { a.runSearch(ctx, gen, p) })
}

// RetrySearch re-runs the search with the current parameters.
func (a *Aggregator) RetrySearch() {
	a.Search(a.Snapshot().Params)
}

// UpdateSearchParams merges u into the current parameters without searching.
func (a *Aggregator) UpdateSearchParams(u model.ParamsUpdate) {
	a.update(func(s *Snapshot) bool {
		s.Params = u.Apply(s.Params)
		return true
	})
}

// FilterByPrice re-runs the current search restricted to the given price
// tiers, e.g. ["1", "2"]. An empty list clears the price filter.
func (a *Aggregator) FilterByPrice(tiers []string) {
	p := a.Snapshot().Params
	p.Price = strings.Join(tiers, ",")
	a.Search(p)
}

// FetchLocationAndSearch resolves the current location and searches around it.
// The search section is loading from the moment this returns.
func (a *Aggregator) FetchLocationAndSearch() {
	var gen uint64
	a.update(func(s *Snapshot) bool {
		a.searchGen++
		gen = a.searchGen
		s.Search.Status = Loading()
		return true
	})

	a.goAsync(func(ctx context.Context) {
		res := a.locator.Resolve(ctx)

		var p model.SearchParams
		current := true
		a.update(func(s *Snapshot) bool {
			s.Location = LocationState{Resolved: true, Coordinate: res.Coordinate, Source: res.Source}
			if gen != a.searchGen {
				current = false
				return true
			}
			lat, lon := res.Latitude, res.Longitude
			s.Params.Latitude = &lat
			s.Params.Longitude = &lon
			s.Params.Location = ""
			p = s.Params
			return true
		})
		if !current {
			a.logger.Debug("dropping superseded nearby search", "gen", gen)
			return
		}

		a.runSearch(ctx, gen, p)
	})
}

func (a *Aggregator) runSearch(ctx context.Context, gen uint64, p model.SearchParams) {
	resp, err := a.gateway.Search(ctx, p)
	if err != nil {
		a.logger.Error("search failed", "term", p.Term, "err", err)
	}

	a.update(func(s *Snapshot) bool {
		if gen != a.searchGen {
			a.logger.Debug("dropping superseded search result", "gen", gen, "current", a.searchGen)
			return false
		}
		if err != nil {
			s.Search.Status = Failed(errorMessage(err))
			return true
		}
		businesses := resp.Businesses
		if businesses == nil {
			businesses = []model.Business{}
		}
		s.Search = SearchSection{Status: Idle(), Businesses: businesses, Total: resp.Total}
		s.Sort = ""
		return true
	})
}

// Sort reorders the current results locally.
func (a *Aggregator) Sort(by model.SortCriteria) {
	a.update(func(s *Snapshot) bool {
		s.Search.Businesses = SortBusinesses(s.Search.Businesses, by)
		s.Sort = by
		return true
	})
}

// LoadBusiness loads the detail and reviews for id.
func (a *Aggregator) LoadBusiness(id string) {
	a.LoadDetails(id)
	a.LoadReviews(id, a.reviewLimit)
}

// LoadDetails fetches the detail record for id.
func (a *Aggregator) LoadDetails(id string) {
	var gen uint64
	a.update(func(s *Snapshot) bool {
		a.detailsGen++
		gen = a.detailsGen
		if d, ok := SelectedDetail(s.Details.Selected); !ok || d.ID != id {
			s.Details.Selected = NoSelection{}
		}
		s.Details.Status = Loading()
		return true
	})

	a.goAsync(func(ctx context.Context) {
		detail, err := a.gateway.BusinessDetails(ctx, id)
		if err != nil {
			a.logger.Error("business details failed", "id", id, "err", err)
		}

		a.update(func(s *Snapshot) bool {
			if gen != a.detailsGen {
				a.logger.Debug("dropping superseded details", "id", id, "gen", gen)
				return false
			}
			if err != nil {
				s.Details.Status = Failed(errorMessage(err))
				return true
			}
			s.Details = DetailsSection{Status: Idle(), Selected: DetailSelection{Detail: detail}}
			return true
		})
	})
}

// LoadReviews fetches up to limit reviews for id.
func (a *Aggregator) LoadReviews(id string, limit int) {
	var gen uint64
	a.update(func(s *Snapshot) bool {
		a.reviewsGen++
		gen = a.reviewsGen
		if s.Reviews.BusinessID != id {
			s.Reviews.BusinessID = id
			s.Reviews.Reviews = []model.Review{}
		}
		s.Reviews.Status = Loading()
		return true
	})

	a.goAsync(func(ctx context.Context) {
		resp, err := a.gateway.Reviews(ctx, id, limit)
		if err != nil {
			a.logger.Error("reviews failed", "id", id, "err", err)
		}

		a.update(func(s *Snapshot) bool {
			if gen != a.reviewsGen {
				a.logger.Debug("dropping superseded reviews", "id", id, "gen", gen)
				return false
			}
			if err != nil {
				s.Reviews.Status = Failed(errorMessage(err))
				return true
			}
			reviews := resp.Reviews
			if reviews == nil {
				reviews = []model.Review{}
			}
			s.Reviews = ReviewsSection{Status: Idle(), BusinessID: id, Reviews: reviews}
			return true
		})
	})
}

// AddFavorite stores a search result as a favorite.
func (a *Aggregator) AddFavorite(b model.Business) {
	f := model.FavoriteFromBusiness(b, a.now())
	a.enqueueWrite(func(ctx context.Context) { a.writeFavorite(ctx, "add_favorite", f) })
}

// AddDetailToFavorites stores a detail record as a favorite.
func (a *Aggregator) AddDetailToFavorites(d model.BusinessDetail) {
	f := model.FavoriteFromDetail(d, a.now())
	a.enqueueWrite(func(ctx context.Context) { a.writeFavorite(ctx, "add_detail_favorite", f) })
}

func (a *Aggregator) writeFavorite(ctx context.Context, op string, f model.FavoriteRestaurant) {
	if err := a.store.UpsertFavorite(ctx, f); err != nil {
		a.storeFailed(op, err, "id", f.ID)
		return
	}
	a.reloadFavorites(ctx, op)
}

// RemoveFavorite deletes a favorite.
func (a *Aggregator) RemoveFavorite(id string) {
	a.enqueueWrite(func(ctx context.Context) {
		if err := a.store.DeleteFavorite(ctx, id); err != nil {
			a.storeFailed("remove_favorite", err, "id", id)
			return
		}
		a.reloadFavorites(ctx, "remove_favorite")
	})
}

// Rate stores the user's rating for id. The value is not range checked.
func (a *Aggregator) Rate(id string, rating float64) {
	r := model.UserRating{RestaurantID: id, Rating: rating, UpdatedAt: a.now()}
	a.enqueueWrite(func(ctx context.Context) {
		if err := a.store.UpsertRating(ctx, r); err != nil {
			a.storeFailed("rate", err, "id", id)
			return
		}
		a.reloadRatings(ctx, "rate")
	})
}

func (a *Aggregator) reloadFavorites(ctx context.Context, op string) {
	favorites, err := a.store.ListFavorites(ctx)
	if err != nil {
		a.storeFailed(op+"_reload", err)
		return
	}
	a.update(func(s *Snapshot) bool {
		s.Favorites = favorites
		return true
	})
}

func (a *Aggregator) reloadRatings(ctx context.Context, op string) {
	rows, err := a.store.ListRatings(ctx)
	if err != nil {
		a.storeFailed(op+"_reload", err)
		return
	}
	ratings := make(map[string]float64, len(rows))
	for _, r := range rows {
		ratings[r.RestaurantID] = r.Rating
	}
	a.update(func(s *Snapshot) bool {
		s.Ratings = ratings
		return true
	})
}

// storeFailed records a store error. The snapshot keeps its prior values.
func (a *Aggregator) storeFailed(op string, err error, keyvals ...interface{}) {
	a.metrics.RecordStoreFailure(op)
	args := append([]interface{}{"op", op, "err", err}, keyvals...)
	if errors.Is(err, db.ErrNotInitialized) {
		a.logger.Warn("store not initialized", args...)
		return
	}
	a.logger.Warn("store operation failed", args...)
}

// errorMessage is the user-facing text for a gateway failure.
func errorMessage(err error) string {
	var apiErr *search.APIError
	if errors.As(err, &apiErr) && apiErr.Description != "" {
		return apiErr.Description
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	msg := err.Error()
	if msg == "" {
		return "unknown error occurred"
	}
	return msg
}
