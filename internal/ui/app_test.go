package ui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
)

type fakeController struct {
	mu       sync.Mutex
	snap     state.Snapshot
	observer state.Observer

	searched  []model.SearchParams
	updates   []model.ParamsUpdate
	nearby    int
	sorted    []model.SortCriteria
	loaded    []string
	favorited []string
	removed   []string
	rated     map[string]float64
	unsubbed  bool
	retried   int
}

func newFakeController() *fakeController {
	return &fakeController{
		snap: state.Snapshot{
			Search: state.SearchSection{
				Status: state.Idle(),
				Businesses: []model.Business{
					{ID: "tacos", Name: "Taqueria", Rating: 4.5, ReviewCount: 120, Price: "$"},
					{ID: "pho", Name: "Pho House", Rating: 4.0, ReviewCount: 80, Price: "$$"},
				},
				Total: 2,
			},
			Details:   state.DetailsSection{Status: state.Idle(), Selected: state.NoSelection{}},
			Reviews:   state.ReviewsSection{Status: state.Idle()},
			Params:    model.DefaultSearchParams(),
			Favorites: []model.FavoriteRestaurant{{ID: "old", Name: "Old Haunt"}},
			Ratings:   map[string]float64{},
		},
		rated: map[string]float64{},
	}
}

func (c *fakeController) Snapshot() state.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *fakeController) Subscribe(fn state.Observer) func() {
	c.observer = fn
	return func() { c.unsubbed = true }
}

func (c *fakeController) Search(p model.SearchParams) { c.searched = append(c.searched, p) }
func (c *fakeController) RetrySearch()                { c.retried++ }
func (c *fakeController) FetchLocationAndSearch()     { c.nearby++ }
func (c *fakeController) LoadBusiness(id string)      { c.loaded = append(c.loaded, id) }
func (c *fakeController) RemoveFavorite(id string)    { c.removed = append(c.removed, id) }

func (c *fakeController) UpdateSearchParams(u model.ParamsUpdate) {
	c.updates = append(c.updates, u)
}

func (c *fakeController) Sort(by model.SortCriteria) {
	c.sorted = append(c.sorted, by)
	c.mu.Lock()
	c.snap.Sort = by
	c.mu.Unlock()
}

func (c *fakeController) AddFavorite(b model.Business) {
	c.favorited = append(c.favorited, b.ID)
}

func (c *fakeController) AddDetailToFavorites(d model.BusinessDetail) {
	c.favorited = append(c.favorited, "detail:"+d.ID)
}

func (c *fakeController) Rate(id string, rating float64) { c.rated[id] = rating }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func newTestModel(t *testing.T, c *fakeController) Model {
	t.Helper()
	m := New(c, Options{ConfigDir: t.TempDir()})
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
}

func TestResultsView(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	view := m.View()
	assert.Contains(t, view, "Taqueria")
	assert.Contains(t, view, "Pho House")
	assert.Contains(t, view, "2 of 2 results")
}

func TestTabSwitchesToFavorites(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.ScreenFavorites, m.screen)
	assert.Contains(t, m.View(), "Old Haunt")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, model.ScreenResults, m.screen)
}

func TestSortCyclesAndPersists(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, runes("s"))
	require.Equal(t, []model.SortCriteria{model.SortByRating}, c.sorted)

	m = send(t, m, runes("s"))
	assert.Equal(t, []model.SortCriteria{model.SortByRating, model.SortByReviewCount}, c.sorted)
	assert.Equal(t, model.SortByReviewCount, loadUIPreferences(m.opts.ConfigDir).LastSort)
}

func TestPreferredSortAppliedToFreshResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveUIPreferences(dir, UIPreferences{LastSort: model.SortByDistance, LastTerm: "ramen"}))

	c := newFakeController()
	m := New(c, Options{ConfigDir: dir})
	require.Len(t, c.updates, 1)
	assert.Equal(t, "ramen", *c.updates[0].Term)

	m = send(t, m, snapshotChangedMsg{})
	assert.Equal(t, []model.SortCriteria{model.SortByDistance}, c.sorted)

	// Already sorted; no second request.
	send(t, m, snapshotChangedMsg{})
	assert.Len(t, c.sorted, 1)
}

func TestFavoriteToggleAndRate(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, runes("j"), runes("f"))
	assert.Equal(t, []string{"pho"}, c.favorited)

	m = send(t, m, runes("4"))
	assert.Equal(t, 4.0, c.rated["pho"])

	c.snap.Favorites = []model.FavoriteRestaurant{{ID: "pho", Name: "Pho House"}}
	send(t, m, runes("f"))
	assert.Equal(t, []string{"pho"}, c.removed)
}

func TestOpenDetailAndBack(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, model.ScreenDetail, m.screen)
	assert.Equal(t, []string{"tacos"}, c.loaded)
	assert.Contains(t, m.View(), "Loading business")

	c.snap.Details = state.DetailsSection{
		Status:   state.Idle(),
		Selected: state.DetailSelection{Detail: model.BusinessDetail{ID: "tacos", Name: "Taqueria", Rating: 4.5}},
	}
	c.snap.Reviews = state.ReviewsSection{
		Status:     state.Idle(),
		BusinessID: "tacos",
		Reviews:    []model.Review{{ID: "r1", Rating: 5, User: model.User{Name: "Sam"}, Text: "Great al pastor"}},
	}
	view := m.View()
	assert.Contains(t, view, "Great al pastor")
	assert.Contains(t, view, "Sam")

	m = send(t, m, runes("f"))
	assert.Equal(t, []string{"detail:tacos"}, c.favorited)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, model.ScreenResults, m.screen)
	assert.Nil(t, m.detail)
}

func TestSearchFormSubmitsLocation(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, runes("/"))
	require.Equal(t, model.ModeInsert, m.mode)
	require.Equal(t, model.ScreenSearchForm, m.screen)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab}, runes("Seattle"))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = send(t, m, cmd())

	assert.Equal(t, model.ModeNav, m.mode)
	assert.Equal(t, model.ScreenResults, m.screen)
	require.Len(t, c.searched, 1)
	assert.Equal(t, "Seattle", c.searched[0].Location)
	assert.Equal(t, model.DefaultSearchTerm, c.searched[0].Term)
	assert.Zero(t, c.nearby)
}

func TestSearchFormWithoutLocationSearchesNearby(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, runes("/"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab}, runes("$$"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	send(t, m, cmd())

	assert.Empty(t, c.searched)
	assert.Equal(t, 1, c.nearby)
	require.Len(t, c.updates, 1)
	assert.Equal(t, "2", *c.updates[0].Price)
}

func TestSearchFormRejectsBadPrice(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	m = send(t, m, runes("/"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab}, runes("cheap"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, model.ModeInsert, m.mode)
	assert.Contains(t, m.View(), "invalid price tier")
}

func TestFailedSearchShowsBannerAndRetries(t *testing.T) {
	c := newFakeController()
	c.snap.Search = state.SearchSection{Status: state.Failed("Please specify a location"), Businesses: []model.Business{}}
	m := newTestModel(t, c)

	assert.Contains(t, m.View(), "Please specify a location")

	send(t, m, runes("r"))
	assert.Equal(t, 1, c.retried)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, newFakeController())

	m = send(t, m, runes("?"))
	assert.True(t, m.showingHelp)
	assert.True(t, strings.Contains(m.View(), "Searching"))

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showingHelp)
}

func TestCloseUnsubscribes(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)
	require.NotNil(t, c.observer)

	m.Close()
	assert.True(t, c.unsubbed)
}

func TestNotificationsCoalesce(t *testing.T) {
	c := newFakeController()
	m := newTestModel(t, c)

	for i := 0; i < 5; i++ {
		c.observer(c.Snapshot())
	}
	assert.Len(t, m.changes, 1)
	assert.Equal(t, snapshotChangedMsg{}, m.waitForSnapshot()())
	assert.Len(t, m.changes, 0)
}
