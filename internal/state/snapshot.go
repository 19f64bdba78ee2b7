package state

import (
	"restaurantfinder/internal/location"
	"restaurantfinder/internal/model"
)

type statusKind int

const (
	statusIdle statusKind = iota
	statusLoading
	statusFailed
)

// Status is the lifecycle of one asynchronous section. A section is either
// idle, loading, or failed with a message; never loading and failed at once.
type Status struct {
	kind statusKind
	msg  string
}

func Idle() Status { return Status{kind: statusIdle} }

func Loading() Status { return Status{kind: statusLoading} }

func Failed(msg string) Status { return Status{kind: statusFailed, msg: msg} }

func (s Status) IsLoading() bool { return s.kind == statusLoading }

func (s Status) IsFailed() bool { return s.kind == statusFailed }

// Err returns the failure message, or "" when the section has not failed.
func (s Status) Err() string {
	if s.kind != statusFailed {
		return ""
	}
	return s.msg
}

func (s Status) String() string {
	switch s.kind {
	case statusLoading:
		return "loading"
	case statusFailed:
		return "failed: " + s.msg
	default:
		return "idle"
	}
}

// Selection is the business shown on the detail screen.
type Selection interface {
	isSelection()
}

// NoSelection means no detail has been loaded.
type NoSelection struct{}

// DetailSelection holds a loaded business detail.
type DetailSelection struct {
	Detail model.BusinessDetail
}

func (NoSelection) isSelection()     {}
func (DetailSelection) isSelection() {}

// SelectedDetail unwraps sel.
func SelectedDetail(sel Selection) (model.BusinessDetail, bool) {
	if d, ok := sel.(DetailSelection); ok {
		return d.Detail, true
	}
	return model.BusinessDetail{}, false
}

type SearchSection struct {
	Status     Status
	Businesses []model.Business
	Total      int
}

type DetailsSection struct {
	Status   Status
	Selected Selection
}

type ReviewsSection struct {
	Status     Status
	BusinessID string
	Reviews    []model.Review
}

// LocationState is the last coordinate used for a nearby search.
type LocationState struct {
	Resolved   bool
	Coordinate location.Coordinate
	Source     location.Source
}

// Snapshot is an immutable view of the application state.
// Slices and maps are shared between snapshots and must not be modified.
type Snapshot struct {
	Version   uint64
	Search    SearchSection
	Details   DetailsSection
	Reviews   ReviewsSection
	Params    model.SearchParams
	Sort      model.SortCriteria // last local sort applied, "" for API order
	Favorites []model.FavoriteRestaurant
	Ratings   map[string]float64
	Location  LocationState
}

func initialSnapshot() Snapshot {
	return Snapshot{
		Search:    SearchSection{Status: Idle(), Businesses: []model.Business{}},
		Details:   DetailsSection{Status: Idle(), Selected: NoSelection{}},
		Reviews:   ReviewsSection{Status: Idle(), Reviews: []model.Review{}},
		Params:    model.DefaultSearchParams(),
		Favorites: []model.FavoriteRestaurant{},
		Ratings:   map[string]float64{},
	}
}

// IsFavorite reports whether id is in the favorites list.
func (s Snapshot) IsFavorite(id string) bool {
	for _, f := range s.Favorites {
		if f.ID == id {
			return true
		}
	}
	return false
}

// UserRating returns the user's rating for id.
func (s Snapshot) UserRating(id string) (float64, bool) {
	r, ok := s.Ratings[id]
	return r, ok
}

// Business finds id in the current search results.
func (s Snapshot) Business(id string) (model.Business, bool) {
	for _, b := range s.Search.Businesses {
		if b.ID == id {
			return b, true
		}
	}
	return model.Business{}, false
}
