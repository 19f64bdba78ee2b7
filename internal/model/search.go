package model

import (
	"fmt"
	"strings"
)

const (
	DefaultSearchTerm = "restaurants"
	DefaultSortBy     = "best_match"
	DefaultLimit      = 20
	DefaultReviews    = 3
)

// SearchParams are the filters sent to the business search endpoint.
// Nil pointers and empty strings are omitted from the request.
type SearchParams struct {
	Term       string
	Location   string
	Latitude   *float64
	Longitude  *float64
	Radius     *int
	Categories string
	Price      string // comma-separated tiers, e.g. "1,2"
	SortBy     string
	Limit      int
	Offset     int
	OpenNow    *bool
}

// DefaultSearchParams returns the parameters used before the user has searched.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Term:   DefaultSearchTerm,
		SortBy: DefaultSortBy,
		Limit:  DefaultLimit,
	}
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p SearchParams) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ParamsUpdate holds the fields to change in the current search parameters.
// Nil fields keep their current value.
type ParamsUpdate struct {
	Term      *string
	Location  *string
	Latitude  *float64
	Longitude *float64
	Radius    *int
	Price     *string
	SortBy    *string
}

// Apply returns p with every non-nil field of u copied in.
func (u ParamsUpdate) Apply(p SearchParams) SearchParams {
	if u.Term != nil {
		p.Term = *u.Term
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
	if u.Latitude != nil {
		lat := *u.Latitude
		p.Latitude = &lat
	}
	if u.Longitude != nil {
		lon := *u.Longitude
		p.Longitude = &lon
	}
	if u.Radius != nil {
		r := *u.Radius
		p.Radius = &r
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.SortBy != nil {
		p.SortBy = *u.SortBy
	}
	return p
}

// SortCriteria orders a result list locally.
type SortCriteria string

const (
	SortByRating      SortCriteria = "rating"
	SortByReviewCount SortCriteria = "review_count"
	SortByDistance    SortCriteria = "distance"
	SortByPriceAsc    SortCriteria = "price_asc"
	SortByPriceDesc   SortCriteria = "price_desc"
)

// AllSortCriteria lists the criteria in display order.
var AllSortCriteria = []SortCriteria{
	SortByRating,
	SortByReviewCount,
	SortByDistance,
	SortByPriceAsc,
	SortByPriceDesc,
}

// ParseSortCriteria parses a criterion name.
func ParseSortCriteria(s string) (SortCriteria, error) {
	c := SortCriteria(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSortCriteria {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown sort criteria %q", s)
}

// Next returns the criterion after c, wrapping around.
func (c SortCriteria) Next() SortCriteria {
	for i, known := range AllSortCriteria {
		if known == c {
			return AllSortCriteria[(i+1)%len(AllSortCriteria)]
		}
	}
	return AllSortCriteria[0]
}

// Label is the short human name for c.
func (c SortCriteria) Label() string {
	switch c {
	case SortByRating:
		return "rating"
	case SortByReviewCount:
		return "reviews"
	case SortByDistance:
		return "distance"
	case SortByPriceAsc:
		return "price ↑"
	case SortByPriceDesc:
		return "price ↓"
	default:
		return string(c)
	}
}
