package api

import (
	"time"

	"restaurantfinder/internal/model"
	"restaurantfinder/internal/state"
)

// --- request types ---

// searchRequest overrides fields of the current search parameters.
// Absent fields keep their current value.
type searchRequest struct {
	Term       *string  `json:"term,omitempty"`
	Location   *string  `json:"location,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Radius     *int     `json:"radius,omitempty"`
	Categories *string  `json:"categories,omitempty"`
	Price      []string `json:"price,omitempty"` // tiers, e.g. ["1","2"]
	SortBy     *string  `json:"sort_by,omitempty"`
	Limit      *int     `json:"limit,omitempty"`
	Offset     *int     `json:"offset,omitempty"`
	OpenNow    *bool    `json:"open_now,omitempty"`
}

func (r searchRequest) apply(p model.SearchParams) model.SearchParams {
	p = model.ParamsUpdate{
		Term:      r.Term,
		Location:  r.Location,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Radius:    r.Radius,
		SortBy:    r.SortBy,
	}.Apply(p)
	if r.Categories != nil {
		p.Categories = *r.Categories
	}
	if r.Price != nil {
		p.Price = joinTiers(r.Price)
	}
	if r.Limit != nil {
		p.Limit = *r.Limit
	}
	if r.Offset != nil {
		p.Offset = *r.Offset
	}
	if r.OpenNow != nil {
		v := *r.OpenNow
		p.OpenNow = &v
	}
	return p
}

type sortRequest struct {
	By string `json:"by"`
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

// --- response types ---

type statusResponse struct {
	State string `json:"state"` // idle, loading, failed
	Error string `json:"error,omitempty"`
}

func newStatus(s state.Status) statusResponse {
	switch {
	case s.IsLoading():
		return statusResponse{State: "loading"}
	case s.IsFailed():
		return statusResponse{State: "failed", Error: s.Err()}
	default:
		return statusResponse{State: "idle"}
	}
}

type searchSectionResponse struct {
	Status     statusResponse   `json:"status"`
	Businesses []model.Business `json:"businesses"`
	Total      int              `json:"total"`
}

type detailsSectionResponse struct {
	Status   statusResponse        `json:"status"`
	Selected *model.BusinessDetail `json:"selected"`
}

type reviewsSectionResponse struct {
	Status     statusResponse `json:"status"`
	BusinessID string         `json:"business_id,omitempty"`
	Reviews    []model.Review `json:"reviews"`
}

type paramsResponse struct {
	Term       string   `json:"term"`
	Location   string   `json:"location,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Radius     *int     `json:"radius,omitempty"`
	Categories string   `json:"categories,omitempty"`
	Price      string   `json:"price,omitempty"`
	SortBy     string   `json:"sort_by,omitempty"`
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
	OpenNow    *bool    `json:"open_now,omitempty"`
}

type favoriteResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ImageURL    string    `json:"image_url,omitempty"`
	Rating      float64   `json:"rating"`
	Price       string    `json:"price,omitempty"`
	Address     string    `json:"address"`
	Categories  string    `json:"categories"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	ReviewCount int       `json:"review_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type locationResponse struct {
	Resolved  bool    `json:"resolved"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source,omitempty"`
}

type snapshotResponse struct {
	Version   uint64                 `json:"version"`
	Search    searchSectionResponse  `json:"search"`
	Details   detailsSectionResponse `json:"details"`
	Reviews   reviewsSectionResponse `json:"reviews"`
	Params    paramsResponse         `json:"params"`
	Sort      string                 `json:"sort,omitempty"`
	Favorites []favoriteResponse     `json:"favorites"`
	Ratings   map[string]float64     `json:"ratings"`
	Location  locationResponse       `json:"location"`
}

func newSnapshotResponse(s state.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Version: s.Version,
		Search: searchSectionResponse{
			Status:     newStatus(s.Search.Status),
			Businesses: s.Search.Businesses,
			Total:      s.Search.Total,
		},
		Details: detailsSectionResponse{Status: newStatus(s.Details.Status)},
		Reviews: reviewsSectionResponse{
			Status:     newStatus(s.Reviews.Status),
			BusinessID: s.Reviews.BusinessID,
			Reviews:    s.Reviews.Reviews,
		},
		Params: paramsResponse{
			Term:       s.Params.Term,
			Location:   s.Params.Location,
			Latitude:   s.Params.Latitude,
			Longitude:  s.Params.Longitude,
			Radius:     s.Params.Radius,
			Categories: s.Params.Categories,
			Price:      s.Params.Price,
			SortBy:     s.Params.SortBy,
			Limit:      s.Params.Limit,
			Offset:     s.Params.Offset,
			OpenNow:    s.Params.OpenNow,
		},
		Sort:      string(s.Sort),
		Favorites: newFavorites(s.Favorites),
		Ratings:   s.Ratings,
		Location: locationResponse{
			Resolved:  s.Location.Resolved,
			Latitude:  s.Location.Coordinate.Latitude,
			Longitude: s.Location.Coordinate.Longitude,
			Source:    string(s.Location.Source),
		},
	}
	if d, ok := state.SelectedDetail(s.Details.Selected); ok {
		resp.Details.Selected = &d
	}
	if resp.Ratings == nil {
		resp.Ratings = map[string]float64{}
	}
	return resp
}

func newFavorites(favs []model.FavoriteRestaurant) []favoriteResponse {
	out := make([]favoriteResponse, 0, len(favs))
	for _, f := range favs {
		out = append(out, favoriteResponse{
			ID:          f.ID,
			Name:        f.Name,
			ImageURL:    f.ImageURL,
			Rating:      f.Rating,
			Price:       f.Price,
			Address:     f.Address,
			Categories:  f.Categories,
			Latitude:    f.Latitude,
			Longitude:   f.Longitude,
			Phone:       f.Phone,
			ReviewCount: f.ReviewCount,
			CreatedAt:   f.CreatedAt,
		})
	}
	return out
}

type acceptedResponse struct {
	Version uint64 `json:"version"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
