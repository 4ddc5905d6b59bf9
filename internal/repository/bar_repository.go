package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yourusername/crosscheck/internal/database"
	"github.com/yourusername/crosscheck/internal/models"
)

const errScanBar = "failed to scan bar: %w"

// PostgresBarRepository implements BarRepository for PostgreSQL
type PostgresBarRepository struct {
	db *database.DB
}

// NewPostgresBarRepository creates a new bar repository
func NewPostgresBarRepository(db *database.DB) BarRepository {
	return &PostgresBarRepository{db: db}
}

const upsertBarQuery = `
	INSERT INTO daily_bars (ticker, bar_date, open, high, low, close, adjusted_close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (ticker, bar_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adjusted_close = EXCLUDED.adjusted_close,
		volume = EXCLUDED.volume
`

// barExecer is the slice of pgx.Tx the upsert loop needs.
type barExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// UpsertSeries inserts or replaces daily bars for a ticker in one transaction.
// Re-fetched history overwrites what is stored; the provider is the source of
// truth for restatements.
func (r *PostgresBarRepository) UpsertSeries(ctx context.Context, series *models.BarSeries) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid series: %w", err)
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return upsertBars(ctx, tx, series)
	})
}

// upsertBars runs the per-bar statements on the supplied transaction so a
// mid-series failure rolls back every bar already written.
func upsertBars(ctx context.Context, tx barExecer, series *models.BarSeries) error {
	for _, bar := range series.Bars {
		_, err := tx.Exec(ctx, upsertBarQuery,
			series.Ticker, bar.Date, bar.Open, bar.High, bar.Low,
			bar.Close, bar.AdjustedClose, bar.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert bar %s/%s: %w", series.Ticker, bar.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

// GetSeries retrieves daily bars for a ticker within a date range, ordered by
// date. Series loaded from the database carry cache provenance.
func (r *PostgresBarRepository) GetSeries(ctx context.Context, ticker string, start, end time.Time) (*models.BarSeries, error) {
	query := `
		SELECT bar_date, open, high, low, close, adjusted_close, volume
		FROM daily_bars
		WHERE ticker = $1 AND bar_date >= $2 AND bar_date <= $3
		ORDER BY bar_date ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var bar models.PriceBar
		err := rows.Scan(&bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.AdjustedClose, &bar.Volume)
		if err != nil {
			return nil, fmt.Errorf(errScanBar, err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bars: %w", err)
	}

	if len(bars) == 0 {
		return nil, models.ErrNotFound
	}

	return &models.BarSeries{
		Ticker: ticker,
		Bars:   bars,
		Source: models.ProvenanceCache,
	}, nil
}

// GetLatestBarDate returns the most recent stored bar date for a ticker
func (r *PostgresBarRepository) GetLatestBarDate(ctx context.Context, ticker string) (time.Time, error) {
	query := `SELECT MAX(bar_date) FROM daily_bars WHERE ticker = $1`

	var latest *time.Time
	err := r.db.GetPool().QueryRow(ctx, query, ticker).Scan(&latest)
	if err == pgx.ErrNoRows || latest == nil {
		return time.Time{}, models.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest bar date: %w", err)
	}

	return *latest, nil
}

// DeleteByTicker removes all stored bars for a ticker
func (r *PostgresBarRepository) DeleteByTicker(ctx context.Context, ticker string) error {
	_, err := r.db.GetPool().Exec(ctx, `DELETE FROM daily_bars WHERE ticker = $1`, ticker)
	if err != nil {
		return fmt.Errorf("failed to delete bars: %w", err)
	}
	return nil
}
