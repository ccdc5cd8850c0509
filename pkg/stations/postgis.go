package stations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/1F47E/earthgrid/pkg/models"
)

const batchSize = 10000

// PostGISStore keeps stations in PostgreSQL with a geography column.
type PostGISStore struct {
	db *sql.DB
}

// NewPostGISStore opens a PostGIS connection, e.g.
// "host=localhost port=5432 user=geo password=geo dbname=geodb sslmode=disable".
func NewPostGISStore(dsn string) (*PostGISStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostGISStore{db: db}, nil
}

// InitSchema creates the necessary tables and a GIST index
func (p *PostGISStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`CREATE TABLE IF NOT EXISTS stations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			aqi INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			location GEOGRAPHY(POINT, 4326) NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stations_location ON stations USING GIST(location);`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Upsert inserts stations in batches, one transaction per batch
func (p *PostGISStore) Upsert(ctx context.Context, stations []models.Station) error {
	const query = `
		INSERT INTO stations (id, name, aqi, updated_at, location)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($5, $6), 4326)::geography)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, aqi = EXCLUDED.aqi,
			updated_at = EXCLUDED.updated_at, location = EXCLUDED.location
	`

	for start := 0; start < len(stations); start += batchSize {
		end := start + batchSize
		if end > len(stations) {
			end = len(stations)
		}
		if err := p.upsertBatch(ctx, query, stations[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostGISStore) upsertBatch(ctx context.Context, query string, batch []models.Station) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, st := range batch {
		if _, err := stmt.ExecContext(ctx, st.ID, st.Name, st.AQI, st.UpdatedAt, st.Lon, st.Lat); err != nil {
			return fmt.Errorf("failed to upsert station %s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Nearby returns stations within radiusKm of center, nearest first
func (p *PostGISStore) Nearby(ctx context.Context, center models.Location, radiusKm float64, limit int) ([]models.Station, error) {
	query := `
		SELECT id, name, aqi, updated_at, ST_Y(location::geometry) AS lat, ST_X(location::geometry) AS lon
		FROM stations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
	`
	args := []any{center.Lon, center.Lat, radiusKm * 1000}
	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []models.Station
	for rows.Next() {
		var st models.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.AQI, &st.UpdatedAt, &st.Lat, &st.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}

// Count returns the number of stations in the database
func (p *PostGISStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stations: %w", err)
	}
	return count, nil
}

// GetDatabaseStats returns table and index sizes
func (p *PostGISStore) GetDatabaseStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var tableSize, indexSize string
	err := p.db.QueryRowContext(ctx, `
		SELECT
			pg_size_pretty(pg_total_relation_size('stations')) as total_size,
			pg_size_pretty(pg_indexes_size('stations')) as index_size
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		// Table might not exist yet
		stats["table_size"] = "0 bytes"
		stats["index_size"] = "0 bytes"
	} else {
		stats["table_size"] = tableSize
		stats["index_size"] = indexSize
	}

	count, _ := p.Count(ctx)
	stats["row_count"] = count

	return stats, nil
}

// Close closes the database connection
func (p *PostGISStore) Close() error {
	return p.db.Close()
}
