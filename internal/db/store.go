package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"restaurantfinder/internal/model"
)

var (
	// ErrNotInitialized is returned by every Store operation before Init or after Close.
	ErrNotInitialized = errors.New("store not initialized")
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// storeState is either uninitialized or ready.
type storeState interface {
	isStoreState()
}

type uninitialized struct{}

type ready struct {
	db *sql.DB
}

func (uninitialized) isStoreState() {}
func (ready) isStoreState()         {}

// Store is the favorites and ratings store. The zero value is usable and uninitialized.
type Store struct {
	mu    sync.RWMutex
	state storeState
}

// NewStore returns an uninitialized store.
func NewStore() *Store {
	return &Store{state: uninitialized{}}
}

// Init opens the database at path and makes the store ready.
// Calling Init on a ready store closes the previous handle first.
func (s *Store) Init(path string) error {
	conn, err := Open(path)
	if err != nil {
		return err
	}
	return s.swap(conn)
}

// Use makes the store ready with an already opened handle. No migrations are run.
func (s *Store) Use(conn *sql.DB) error {
	return s.swap(conn)
}

func (s *Store) swap(conn *sql.DB) error {
	s.mu.Lock()
	prev := s.state
	s.state = ready{db: conn}
	s.mu.Unlock()

	if r, ok := prev.(ready); ok && r.db != conn {
		if err := r.db.Close(); err != nil {
			return fmt.Errorf("failed to close previous database: %w", err)
		}
	}
	return nil
}

// Close releases the database and returns the store to the uninitialized state.
func (s *Store) Close() error {
	s.mu.Lock()
	prev := s.state
	s.state = uninitialized{}
	s.mu.Unlock()

	if r, ok := prev.(ready); ok {
		if err := r.db.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// Ready reports whether Init has succeeded and Close has not been called since.
func (s *Store) Ready() bool {
	_, err := s.conn()
	return err == nil
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch st := s.state.(type) {
	case ready:
		return st.db, nil
	default:
		return nil, ErrNotInitialized
	}
}

func (s *Store) UpsertFavorite(ctx context.Context, f model.FavoriteRestaurant) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return UpsertFavorite(ctx, conn, f)
}

func (s *Store) DeleteFavorite(ctx context.Context, id string) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return DeleteFavorite(ctx, conn, id)
}

func (s *Store) ListFavorites(ctx context.Context) ([]model.FavoriteRestaurant, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return ListFavorites(ctx, conn)
}

func (s *Store) IsFavorite(ctx context.Context, id string) (bool, error) {
	conn, err := s.conn()
	if err != nil {
		return false, err
	}
	return IsFavorite(ctx, conn, id)
}

func (s *Store) GetFavorite(ctx context.Context, id string) (model.FavoriteRestaurant, error) {
	conn, err := s.conn()
	if err != nil {
		return model.FavoriteRestaurant{}, err
	}
	return GetFavorite(ctx, conn, id)
}

func (s *Store) UpsertRating(ctx context.Context, r model.UserRating) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	return UpsertRating(ctx, conn, r)
}

func (s *Store) ListRatings(ctx context.Context) ([]model.UserRating, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	return ListRatings(ctx, conn)
}

func (s *Store) GetRating(ctx context.Context, id string) (model.UserRating, bool, error) {
	conn, err := s.conn()
	if err != nil {
		return model.UserRating{}, false, err
	}
	return GetRating(ctx, conn, id)
}
