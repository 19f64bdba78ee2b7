package model

import "time"

// FavoriteRestaurant is a locally bookmarked business.
// ID is the remote business identifier and the table's primary key.
type FavoriteRestaurant struct {
	ID          string
	Name        string
	ImageURL    string
	Rating      float64
	Price       string
	Address     string
	Categories  string // comma-joined category titles
	Latitude    *float64
	Longitude   *float64
	Phone       string
	ReviewCount int
	CreatedAt   time.Time
}

// UserRating is a user's private score for a business.
// It does not require the business to be a favorite.
type UserRating struct {
	RestaurantID string
	Rating       float64
	UpdatedAt    time.Time
}
