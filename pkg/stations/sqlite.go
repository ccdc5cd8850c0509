package stations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/1F47E/earthgrid/pkg/models"
)

// SQLiteStore keeps stations in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. An empty path or
// ":memory:" gives an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// InitSchema creates the stations table and its coordinate index
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			aqi INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stations_lat_lon ON stations(lat, lon);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Upsert inserts or replaces stations in a single transaction
func (s *SQLiteStore) Upsert(ctx context.Context, stations []models.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (id, name, lat, lon, aqi, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, lat = excluded.lat, lon = excluded.lon,
			aqi = excluded.aqi, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.Lat, st.Lon, st.AQI, st.UpdatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Nearby returns stations within radiusKm of center, nearest first
func (s *SQLiteStore) Nearby(ctx context.Context, center models.Location, radiusKm float64, limit int) ([]models.Station, error) {
	box := boxAround(center, radiusKm)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, lat, lon, aqi, updated_at
		FROM stations
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
	`, box.South, box.North, box.West, box.East)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var candidates []models.Station
	for rows.Next() {
		var st models.Station
		var updated int64
		if err := rows.Scan(&st.ID, &st.Name, &st.Lat, &st.Lon, &st.AQI, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		st.UpdatedAt = time.Unix(updated, 0).UTC()
		candidates = append(candidates, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return filterByDistance(candidates, center, radiusKm, limit), nil
}

// Count returns the number of stations
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
