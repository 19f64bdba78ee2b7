package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantfinder/internal/db"
	"restaurantfinder/internal/logging"
	"restaurantfinder/internal/metrics"
	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
)

type fakeController struct {
	mu    sync.Mutex
	snap  state.Snapshot
	calls []string

	searched  model.SearchParams
	sorted    model.SortCriteria
	favorited string
	rated     float64
}

func (c *fakeController) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeController) Snapshot() state.Snapshot { return c.snap }

func (c *fakeController) Search(p model.SearchParams) {
	c.searched = p
	c.record("search")
}

func (c *fakeController) FetchLocationAndSearch() { c.record("nearby") }

func (c *fakeController) Sort(by model.SortCriteria) {
	c.sorted = by
	c.record("sort")
}

func (c *fakeController) LoadBusiness(id string) { c.record("load:" + id) }

func (c *fakeController) AddFavorite(b model.Business) {
	c.favorited = b.ID
	c.record("favorite")
}

func (c *fakeController) AddDetailToFavorites(d model.BusinessDetail) {
	c.favorited = d.ID
	c.record("favorite_detail")
}

func (c *fakeController) RemoveFavorite(id string) { c.record("unfavorite:" + id) }

func (c *fakeController) Rate(id string, rating float64) {
	c.rated = rating
	c.record("rate:" + id)
}

func newFake() *fakeController {
	return &fakeController{snap: state.Snapshot{
		Version: 7,
		Search: state.SearchSection{
			Status:     state.Failed("Please specify a location"),
			Businesses: []model.Business{{ID: "abc", Name: "Tacos"}},
			Total:      1,
		},
		Details:   state.DetailsSection{Status: state.Loading(), Selected: state.DetailSelection{Detail: model.BusinessDetail{ID: "pho", Name: "Pho"}}},
		Reviews:   state.ReviewsSection{Status: state.Idle(), Reviews: []model.Review{}},
		Params:    model.DefaultSearchParams(),
		Favorites: []model.FavoriteRestaurant{{ID: "old", Name: "Old Favorite", Categories: "Pizza"}},
		Ratings:   map[string]float64{"abc": 4},
	}}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetSnapshot(t *testing.T) {
	h := NewRouter(newFake(), logging.Discard(), nil)

	rec := do(t, h, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got snapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(7), got.Version)
	assert.Equal(t, "failed", got.Search.Status.State)
	assert.Equal(t, "Please specify a location", got.Search.Status.Error)
	assert.Equal(t, "loading", got.Details.Status.State)
	require.NotNil(t, got.Details.Selected)
	assert.Equal(t, "pho", got.Details.Selected.ID)
	assert.Equal(t, "idle", got.Reviews.Status.State)
	assert.Equal(t, "restaurants", got.Params.Term)
	assert.Equal(t, 4.0, got.Ratings["abc"])
	require.Len(t, got.Favorites, 1)
	assert.Equal(t, "Old Favorite", got.Favorites[0].Name)
}

func TestSearchMergesOverrides(t *testing.T) {
	c := newFake()
	h := NewRouter(c, logging.Discard(), nil)

	rec := do(t, h, http.MethodPost, "/api/search", `{"term":"ramen","location":"Seattle","price":["1"," 2 ",""],"open_now":true}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, "ramen", c.searched.Term)
	assert.Equal(t, "Seattle", c.searched.Location)
	assert.Equal(t, "1,2", c.searched.Price)
	assert.Equal(t, model.DefaultLimit, c.searched.Limit)
	require.NotNil(t, c.searched.OpenNow)
	assert.True(t, *c.searched.OpenNow)

	var got acceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, uint64(7), got.Version)
}

func TestSearchWithEmptyBody(t *testing.T) {
	c := newFake()
	rec := do(t, NewRouter(c, logging.Discard(), nil), http.MethodPost, "/api/search", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, model.DefaultSearchParams(), c.searched)
}

func TestSearchRejectsBadJSON(t *testing.T) {
	c := newFake()
	rec := do(t, NewRouter(c, logging.Discard(), nil), http.MethodPost, "/api/search", `{"term":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.calls)
}

func TestNearbyAndLoad(t *testing.T) {
	c := newFake()
	h := NewRouter(c, logging.Discard(), nil)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/search/nearby", "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/businesses/abc/load", "").Code)
	assert.Equal(t, []string{"nearby", "load:abc"}, c.calls)
}

func TestSort(t *testing.T) {
	c := newFake()
	h := NewRouter(c, logging.Discard(), nil)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/sort", `{"by":"review_count"}`).Code)
	assert.Equal(t, model.SortByReviewCount, c.sorted)

	rec := do(t, h, http.MethodPost, "/api/sort", `{"by":"alphabetical"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SORT")
}

func TestAddFavorite(t *testing.T) {
	c := newFake()
	h := NewRouter(c, logging.Discard(), nil)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/favorites/abc", "").Code)
	assert.Equal(t, "abc", c.favorited)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/favorites/pho", "").Code)
	assert.Equal(t, "pho", c.favorited)

	rec := do(t, h, http.MethodPut, "/api/favorites/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "BUSINESS_NOT_FOUND")

	assert.Equal(t, []string{"favorite", "favorite_detail"}, c.calls)
}

func TestRemoveFavoriteAndRate(t *testing.T) {
	c := newFake()
	h := NewRouter(c, logging.Discard(), nil)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodDelete, "/api/favorites/abc", "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/ratings/abc", `{"rating":4.5}`).Code)
	assert.Equal(t, 4.5, c.rated)
	assert.Equal(t, []string{"unfavorite:abc", "rate:abc"}, c.calls)
}

func TestListFavorites(t *testing.T) {
	rec := do(t, NewRouter(newFake(), logging.Discard(), nil), http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []favoriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg).RecordLocation("default")

	h := NewRouter(newFake(), logging.Discard(), reg)
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "restaurantfinder_location_resolutions_total")

	rec = do(t, NewRouter(newFake(), logging.Discard(), nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type emptyGateway struct{}

func (emptyGateway) Search(ctx context.Context, p model.SearchParams) (model.SearchResponse, error) {
	return model.SearchResponse{Businesses: []model.Business{{ID: "abc", Name: "Tacos", Rating: 4}}, Total: 1}, nil
}

func (emptyGateway) BusinessDetails(ctx context.Context, id string) (model.BusinessDetail, error) {
	return model.BusinessDetail{ID: id}, nil
}

func (emptyGateway) Reviews(ctx context.Context, id string, limit int) (model.ReviewsResponse, error) {
	return model.ReviewsResponse{}, nil
}

func TestWithAggregator(t *testing.T) {
	store := db.NewStore()
	require.NoError(t, store.Init(filepath.Join(t.TempDir(), "api.db")))
	defer store.Close()

	agg := state.New(emptyGateway{}, store)
	defer agg.Close()
	h := NewRouter(agg, logging.Discard(), nil)

	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/api/search", `{"term":"tacos"}`).Code)
	agg.Wait()

	require.Equal(t, http.StatusAccepted, do(t, h, http.MethodPut, "/api/favorites/abc", "").Code)
	agg.Wait()

	var favs []favoriteResponse
	rec := do(t, h, http.MethodGet, "/api/favorites", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "Tacos", favs[0].Name)
}
