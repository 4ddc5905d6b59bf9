package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/crosscheck/internal/database"
	"github.com/yourusername/crosscheck/internal/models"
)

const errScanVerdict = "failed to scan verdict: %w"

// PostgresVerdictRepository implements VerdictRepository for PostgreSQL.
// Evidence, economics, and provenance are stored as JSONB alongside the
// queryable columns.
type PostgresVerdictRepository struct {
	db *database.DB
}

// NewPostgresVerdictRepository creates a new verdict repository
func NewPostgresVerdictRepository(db *database.DB) VerdictRepository {
	return &PostgresVerdictRepository{db: db}
}

// Create inserts a new verdict
func (r *PostgresVerdictRepository) Create(ctx context.Context, verdict *models.Verdict) error {
	evidence, err := json.Marshal(verdict.Evidence)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	economics, err := json.Marshal(verdict.Economics)
	if err != nil {
		return fmt.Errorf("failed to marshal economics: %w", err)
	}
	provenance, err := json.Marshal(verdict.Provenance)
	if err != nil {
		return fmt.Errorf("failed to marshal provenance: %w", err)
	}
	flags, err := json.Marshal(verdict.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	query := `
		INSERT INTO verdicts (run_id, ticker, verdict, chosen_horizon, evidence, economics, provenance, flags, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		verdict.RunID, verdict.Ticker, string(verdict.Verdict), verdict.ChosenHorizon,
		evidence, economics, provenance, flags, verdict.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verdict: %w", err)
	}

	return nil
}

// GetByRunID retrieves a verdict by its run ID
func (r *PostgresVerdictRepository) GetByRunID(ctx context.Context, runID uuid.UUID) (*models.Verdict, error) {
	query := verdictSelect + ` WHERE run_id = $1`

	row := r.db.GetPool().QueryRow(ctx, query, runID)
	verdict, err := scanVerdict(row)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}

	return verdict, nil
}

// GetLatestByTicker retrieves the most recent verdict for a ticker
func (r *PostgresVerdictRepository) GetLatestByTicker(ctx context.Context, ticker string) (*models.Verdict, error) {
	query := verdictSelect + ` WHERE ticker = $1 ORDER BY generated_at DESC LIMIT 1`

	row := r.db.GetPool().QueryRow(ctx, query, ticker)
	verdict, err := scanVerdict(row)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest verdict: %w", err)
	}

	return verdict, nil
}

// GetByDateRange retrieves verdicts generated within a date range
func (r *PostgresVerdictRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Verdict, error) {
	query := verdictSelect + ` WHERE generated_at >= $1 AND generated_at <= $2 ORDER BY generated_at ASC`

	rows, err := r.db.GetPool().Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	return collectVerdicts(rows)
}

// GetRecent retrieves the most recently generated verdicts
func (r *PostgresVerdictRepository) GetRecent(ctx context.Context, limit int) ([]*models.Verdict, error) {
	query := verdictSelect + ` ORDER BY generated_at DESC LIMIT $1`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent verdicts: %w", err)
	}
	defer rows.Close()

	return collectVerdicts(rows)
}

const verdictSelect = `
	SELECT run_id, ticker, verdict, chosen_horizon, evidence, economics, provenance, flags, generated_at
	FROM verdicts
`

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVerdict(row rowScanner) (*models.Verdict, error) {
	var (
		verdict     models.Verdict
		verdictKind string
		evidence    []byte
		economics   []byte
		provenance  []byte
		flags       []byte
	)

	err := row.Scan(
		&verdict.RunID, &verdict.Ticker, &verdictKind, &verdict.ChosenHorizon,
		&evidence, &economics, &provenance, &flags, &verdict.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	verdict.Verdict = models.VerdictKind(verdictKind)
	if err := json.Unmarshal(evidence, &verdict.Evidence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence: %w", err)
	}
	if err := json.Unmarshal(economics, &verdict.Economics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal economics: %w", err)
	}
	if err := json.Unmarshal(provenance, &verdict.Provenance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal provenance: %w", err)
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &verdict.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}

	return &verdict, nil
}

func collectVerdicts(rows pgx.Rows) ([]*models.Verdict, error) {
	var verdicts []*models.Verdict
	for rows.Next() {
		verdict, err := scanVerdict(rows)
		if err != nil {
			return nil, fmt.Errorf(errScanVerdict, err)
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, rows.Err()
}
