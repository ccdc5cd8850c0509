package stations

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/earthgrid/pkg/models"
)

var delhi = models.Location{Lat: 28.6139, Lon: 77.2090}

func seededStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.InitSchema(ctx))
	require.NoError(t, s.Upsert(ctx, DefaultStations()))
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	seededStore(t, s)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultStations())), count)

	nearby, err := s.Nearby(ctx, delhi, 50, 0)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, "in-del-02", nearby[0].ID, "RK Puram is closer to the centre")
	assert.Equal(t, "in-del-01", nearby[1].ID)

	limited, err := s.Nearby(ctx, delhi, 50, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.Nearby(ctx, models.Location{Lat: -60, Lon: 0}, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	// Upserting an existing id replaces it.
	updated := DefaultStations()[0]
	updated.AQI = 42
	updated.UpdatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(ctx, []models.Station{updated}))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultStations())), count)

	nearby, err = s.Nearby(ctx, models.Location{Lat: updated.Lat, Lon: updated.Lon}, 1, 1)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, 42, nearby[0].AQI)
	assert.True(t, updated.UpdatedAt.Equal(nearby[0].UpdatedAt))
}

func TestSQLiteStoreInMemory(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteStoreFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.db")
	s, err := Open(Config{Driver: "sqlite", DSN: path})
	require.NoError(t, err)
	seededStore(t, s)
	require.NoError(t, s.Close())

	// Data survives reopening.
	s, err = Open(Config{DSN: path})
	require.NoError(t, err)
	defer s.Close()
	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(DefaultStations())), count)
}

func TestPostGISStore(t *testing.T) {
	dsn := os.Getenv("EARTHGRID_POSTGIS_DSN")
	if dsn == "" {
		t.Skip("EARTHGRID_POSTGIS_DSN not set")
	}

	s, err := Open(Config{Driver: "postgis", DSN: dsn})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	stats, err := s.(*PostGISStore).GetDatabaseStats(context.Background())
	require.NoError(t, err)
	assert.Contains(t, stats, "row_count")
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mongo"})
	assert.Error(t, err)
}

func TestBoxAround(t *testing.T) {
	box := boxAround(delhi, 111)
	assert.InDelta(t, delhi.Lat+1, box.North, 1e-9)
	assert.InDelta(t, delhi.Lat-1, box.South, 1e-9)
	assert.Greater(t, box.East-delhi.Lon, 1.0, "longitude degrees shrink away from the equator")

	polar := boxAround(models.Location{Lat: 90, Lon: 0}, 500)
	assert.Equal(t, 90.0, polar.North)
	assert.Equal(t, 180.0, polar.East)
	assert.Equal(t, -180.0, polar.West)
}
