package model

import (
	"strings"
	"time"
)

// FavoriteFromBusiness builds a favorite row from a search result.
func FavoriteFromBusiness(b Business, now time.Time) FavoriteRestaurant {
	return FavoriteRestaurant{
		ID:          b.ID,
		Name:        b.Name,
		ImageURL:    b.ImageURL,
		Rating:      b.Rating,
		Price:       b.Price,
		Address:     address1(b.Location),
		Categories:  JoinCategories(b.Categories),
		Latitude:    copyFloat(b.Coordinates.Latitude),
		Longitude:   copyFloat(b.Coordinates.Longitude),
		Phone:       b.Phone,
		ReviewCount: b.ReviewCount,
		CreatedAt:   now,
	}
}

// FavoriteFromDetail builds a favorite row from a business detail record.
func FavoriteFromDetail(d BusinessDetail, now time.Time) FavoriteRestaurant {
	return FavoriteRestaurant{
		ID:          d.ID,
		Name:        d.Name,
		ImageURL:    d.ImageURL,
		Rating:      d.Rating,
		Price:       d.Price,
		Address:     address1(d.Location),
		Categories:  JoinCategories(d.Categories),
		Latitude:    copyFloat(d.Coordinates.Latitude),
		Longitude:   copyFloat(d.Coordinates.Longitude),
		Phone:       d.Phone,
		ReviewCount: d.ReviewCount,
		CreatedAt:   now,
	}
}

// JoinCategories flattens category titles into the single stored string.
func JoinCategories(categories []Category) string {
	titles := make([]string, 0, len(categories))
	for _, c := range categories {
		titles = append(titles, c.Title)
	}
	return strings.Join(titles, ", ")
}

func address1(loc *Location) string {
	if loc == nil {
		return ""
	}
	return loc.Address1
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
