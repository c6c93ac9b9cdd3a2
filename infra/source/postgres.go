package source

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/model"
	"github.com/kdr47101/Bikeshare-Demand-Forecasting/core/timeseries"
)

// PostgresConfig configures the warehouse-backed source. The table must
// already hold hourly buckets, one row per station-hour.
type PostgresConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
	// Start and End bound the loaded window as RFC 3339 timestamps. An
	// empty end means "now".
	Start string `json:"start"`
	End   string `json:"end"`
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// PostgresSource reads pre-aggregated station-hour rows from Postgres.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
	start time.Time
	end   time.Time
}

// NewPostgresSource parses the DSN and prepares a lazily connecting pool.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, model.NewConfigError("source.dsn", "connection string is required")
	}
	if cfg.Table == "" {
		cfg.Table = "station_hour"
	}
	if !tableNamePattern.MatchString(cfg.Table) {
		return nil, model.NewConfigError("source.table", fmt.Sprintf("invalid table name %q", cfg.Table))
	}
	var start, end time.Time
	var err error
	if cfg.Start != "" {
		if start, err = time.Parse(time.RFC3339, cfg.Start); err != nil {
			return nil, model.NewConfigError("source.start", err.Error())
		}
	}
	if cfg.End != "" {
		if end, err = time.Parse(time.RFC3339, cfg.End); err != nil {
			return nil, model.NewConfigError("source.end", err.Error())
		}
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return &PostgresSource{pool: pool, table: cfg.Table, start: start, end: end}, nil
}

// Observations loads the configured window. NULL trip counts come back as
// nil demand and stay distinguishable from zero.
func (s *PostgresSource) Observations(ctx context.Context) ([]model.Observation, error) {
	end := s.end
	if end.IsZero() {
		end = time.Now().UTC()
	}
	q := fmt.Sprintf(
		`SELECT station_id, bucket_ts, trips FROM %s WHERE bucket_ts >= $1 AND bucket_ts < $2 ORDER BY station_id, bucket_ts`,
		s.table)
	rows, err := s.pool.Query(ctx, q, s.start, end)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var obs []model.Observation
	for rows.Next() {
		var (
			id    string
			ts    time.Time
			trips *float64
		)
		if err := rows.Scan(&id, &ts, &trips); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		obs = append(obs, model.Observation{StationID: id, Timestamp: timeseries.HourOf(ts), Demand: trips})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.table, err)
	}
	return obs, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}
