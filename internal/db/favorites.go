package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurantfinder/internal/model"
)

// UpsertFavorite inserts a favorite or replaces the row with the same ID.
func UpsertFavorite(ctx context.Context, db *sql.DB, f model.FavoriteRestaurant) error {
	query := `
		INSERT OR REPLACE INTO favorite_restaurants
			(id, name, imageUrl, rating, price, address, categories, latitude, longitude, phone, reviewCount, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	// Handle NULL values
	var imageURL, price, phone interface{}
	if f.ImageURL != "" {
		imageURL = f.ImageURL
	}
	if f.Price != "" {
		price = f.Price
	}
	if f.Phone != "" {
		phone = f.Phone
	}

	var latitude, longitude interface{}
	if f.Latitude != nil {
		latitude = *f.Latitude
	}
	if f.Longitude != nil {
		longitude = *f.Longitude
	}

	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.ExecContext(ctx, query,
		f.ID, f.Name, imageURL, f.Rating, price, f.Address, f.Categories,
		latitude, longitude, phone, f.ReviewCount, createdAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert favorite: %w", err)
	}

	return nil
}

// DeleteFavorite removes a favorite. Deleting a missing ID is not an error.
func DeleteFavorite(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM favorite_restaurants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

const favoriteColumns = `id, name, imageUrl, rating, price, address, categories, latitude, longitude, phone, reviewCount, timestamp`

// ListFavorites returns every favorite, most recently added first.
func ListFavorites(ctx context.Context, db *sql.DB) ([]model.FavoriteRestaurant, error) {
	query := `SELECT ` + favoriteColumns + `
		FROM favorite_restaurants
		ORDER BY timestamp DESC, rowid DESC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	results := []model.FavoriteRestaurant{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		results = append(results, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite rows: %w", err)
	}

	return results, nil
}

// IsFavorite reports whether a favorite row exists for id.
func IsFavorite(ctx context.Context, db *sql.DB, id string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM favorite_restaurants WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return count > 0, nil
}

// GetFavorite retrieves a single favorite by ID.
func GetFavorite(ctx context.Context, db *sql.DB, id string) (model.FavoriteRestaurant, error) {
	query := `SELECT ` + favoriteColumns + ` FROM favorite_restaurants WHERE id = ?`

	f, err := scanFavorite(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.FavoriteRestaurant{}, ErrNotFound
	}
	if err != nil {
		return model.FavoriteRestaurant{}, fmt.Errorf("failed to get favorite: %w", err)
	}
	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(s scanner) (model.FavoriteRestaurant, error) {
	var f model.FavoriteRestaurant
	var imageURL, price, phone sql.NullString
	var latitude, longitude sql.NullFloat64
	var timestamp int64

	err := s.Scan(
		&f.ID, &f.Name, &imageURL, &f.Rating, &price, &f.Address, &f.Categories,
		&latitude, &longitude, &phone, &f.ReviewCount, &timestamp,
	)
	if err != nil {
		return model.FavoriteRestaurant{}, err
	}

	f.ImageURL = imageURL.String
	f.Price = price.String
	f.Phone = phone.String

	if latitude.Valid {
		f.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		f.Longitude = &longitude.Float64
	}

	f.CreatedAt = time.UnixMilli(timestamp)

	return f, nil
}
