package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantfinder/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Init(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { s.Close() })
	return s
}

func floatPtr(v float64) *float64 { return &v }

func favorite(id, name string, at time.Time) model.FavoriteRestaurant {
	return model.FavoriteRestaurant{
		ID:          id,
		Name:        name,
		Rating:      4.5,
		Address:     "1 Market St",
		Categories:  "Pizza, Italian",
		ReviewCount: 120,
		CreatedAt:   at,
	}
}

func TestUninitializedStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.False(t, s.Ready())
	assert.ErrorIs(t, s.UpsertFavorite(ctx, favorite("a", "A", time.Now())), ErrNotInitialized)
	assert.ErrorIs(t, s.DeleteFavorite(ctx, "a"), ErrNotInitialized)

	_, err := s.ListFavorites(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.IsFavorite(ctx, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.GetFavorite(ctx, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.ErrorIs(t, s.UpsertRating(ctx, model.UserRating{RestaurantID: "a", Rating: 3}), ErrNotInitialized)

	_, err = s.ListRatings(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, _, err = s.GetRating(ctx, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestZeroValueStoreIsUninitialized(t *testing.T) {
	var s Store
	_, err := s.ListFavorites(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestUpsertFavoriteReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.UpsertFavorite(ctx, favorite("abc", "First", now)))
	require.NoError(t, s.UpsertFavorite(ctx, favorite("abc", "Second", now.Add(time.Second))))

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Second", favs[0].Name)
	assert.Equal(t, now.Add(time.Second).UnixMilli(), favs[0].CreatedAt.UnixMilli())
}

func TestListFavoritesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, s.UpsertFavorite(ctx, favorite("old", "Old", base)))
	require.NoError(t, s.UpsertFavorite(ctx, favorite("new", "New", base.Add(time.Minute))))
	require.NoError(t, s.UpsertFavorite(ctx, favorite("mid", "Mid", base.Add(time.Second))))

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestListFavoritesSameTimestampLastInsertFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, s.UpsertFavorite(ctx, favorite("a", "A", at)))
	require.NoError(t, s.UpsertFavorite(ctx, favorite("b", "B", at)))

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, "b", favs[0].ID)
}

func TestListFavoritesIsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	assert.NotNil(t, favs)
	assert.Empty(t, favs)

	require.NoError(t, s.UpsertFavorite(ctx, favorite("a", "A", time.Now())))
	assert.Empty(t, favs)
}

func TestDeleteFavorite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertFavorite(ctx, favorite("abc", "Tacos", time.Now())))

	ok, err := s.IsFavorite(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteFavorite(ctx, "abc"))

	ok, err = s.IsFavorite(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	// Missing rows are a no-op.
	assert.NoError(t, s.DeleteFavorite(ctx, "abc"))
	assert.NoError(t, s.DeleteFavorite(ctx, "never-existed"))
}

func TestGetFavoriteRoundTripsNullableColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	full := favorite("full", "Full", time.UnixMilli(1_700_000_000_123))
	full.ImageURL = "https://img.example/1.jpg"
	full.Price = "$$"
	full.Phone = "+14155550100"
	full.Latitude = floatPtr(37.78)
	full.Longitude = floatPtr(-122.4)
	require.NoError(t, s.UpsertFavorite(ctx, full))

	bare := favorite("bare", "Bare", time.UnixMilli(1_700_000_000_456))
	require.NoError(t, s.UpsertFavorite(ctx, bare))

	got, err := s.GetFavorite(ctx, "full")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.jpg", got.ImageURL)
	assert.Equal(t, "$$", got.Price)
	assert.Equal(t, "+14155550100", got.Phone)
	require.NotNil(t, got.Latitude)
	require.NotNil(t, got.Longitude)
	assert.InDelta(t, 37.78, *got.Latitude, 1e-9)
	assert.InDelta(t, -122.4, *got.Longitude, 1e-9)
	assert.Equal(t, int64(1_700_000_000_123), got.CreatedAt.UnixMilli())
	assert.Equal(t, "Pizza, Italian", got.Categories)
	assert.Equal(t, 120, got.ReviewCount)

	got, err = s.GetFavorite(ctx, "bare")
	require.NoError(t, err)
	assert.Empty(t, got.ImageURL)
	assert.Empty(t, got.Price)
	assert.Nil(t, got.Latitude)
	assert.Nil(t, got.Longitude)
}

func TestGetFavoriteNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetFavorite(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertRatingReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertRating(ctx, model.UserRating{RestaurantID: "abc", Rating: 2}))
	require.NoError(t, s.UpsertRating(ctx, model.UserRating{RestaurantID: "abc", Rating: 5}))

	r, ok, err := s.GetRating(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, r.Rating)

	all, err := s.ListRatings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRatingIndependentOfFavorites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertRating(ctx, model.UserRating{RestaurantID: "not-a-favorite", Rating: 7.5}))

	r, ok, err := s.GetRating(ctx, "not-a-favorite")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7.5, r.Rating)

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestGetRatingMissing(t *testing.T) {
	_, ok, err := newTestStore(t).GetRating(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s := NewStore()
	require.NoError(t, s.Init(path))
	require.NoError(t, s.UpsertFavorite(ctx, favorite("abc", "Sushi", time.Now())))
	require.NoError(t, s.UpsertRating(ctx, model.UserRating{RestaurantID: "abc", Rating: 4}))
	require.NoError(t, s.Close())
	assert.False(t, s.Ready())

	// Migrations on an up-to-date schema are a no-op.
	require.NoError(t, s.Init(path))
	defer s.Close()

	ok, err := s.IsFavorite(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	r, ok, err := s.GetRating(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.0, r.Rating)
}

func TestStoreWrapsDriverErrors(t *testing.T) {
	ctx := context.Background()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	diskErr := errors.New("disk I/O error")
	mock.ExpectExec("INSERT OR REPLACE INTO favorite_restaurants").WillReturnError(diskErr)
	mock.ExpectQuery("SELECT (.+) FROM favorite_restaurants").WillReturnError(diskErr)
	mock.ExpectQuery("SELECT COUNT").WithArgs("abc").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s := NewStore()
	require.NoError(t, s.Use(conn))

	err = s.UpsertFavorite(ctx, favorite("abc", "Tacos", time.Now()))
	assert.ErrorIs(t, err, diskErr)
	assert.Contains(t, err.Error(), "failed to upsert favorite")

	_, err = s.ListFavorites(ctx)
	assert.ErrorIs(t, err, diskErr)
	assert.Contains(t, err.Error(), "failed to list favorites")

	ok, err := s.IsFavorite(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
