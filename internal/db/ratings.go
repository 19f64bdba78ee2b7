package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurantfinder/internal/model"
)

// UpsertRating stores a rating, replacing any previous one for the same restaurant.
// The value is stored as given.
func UpsertRating(ctx context.Context, db *sql.DB, r model.UserRating) error {
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := db.ExecContext(ctx,
		"INSERT OR REPLACE INTO user_restaurant_ratings (restaurantId, rating, timestamp) VALUES (?, ?, ?)",
		r.RestaurantID, r.Rating, updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

// ListRatings returns every stored rating in no particular order.
func ListRatings(ctx context.Context, db *sql.DB) ([]model.UserRating, error) {
	rows, err := db.QueryContext(ctx, "SELECT restaurantId, rating, timestamp FROM user_restaurant_ratings")
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	results := []model.UserRating{}
	for rows.Next() {
		var r model.UserRating
		var timestamp int64
		if err := rows.Scan(&r.RestaurantID, &r.Rating, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		r.UpdatedAt = time.UnixMilli(timestamp)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating rows: %w", err)
	}

	return results, nil
}

// GetRating returns the rating for id. The bool is false when none is stored.
func GetRating(ctx context.Context, db *sql.DB, id string) (model.UserRating, bool, error) {
	var r model.UserRating
	var timestamp int64
	err := db.QueryRowContext(ctx,
		"SELECT restaurantId, rating, timestamp FROM user_restaurant_ratings WHERE restaurantId = ?", id,
	).Scan(&r.RestaurantID, &r.Rating, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserRating{}, false, nil
	}
	if err != nil {
		return model.UserRating{}, false, fmt.Errorf("failed to get rating: %w", err)
	}
	r.UpdatedAt = time.UnixMilli(timestamp)
	return r, true, nil
}
