package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/crosscheck/internal/models"
)

// BarRepository defines the interface for daily bar data access
type BarRepository interface {
	UpsertSeries(ctx context.Context, series *models.BarSeries) error
	GetSeries(ctx context.Context, ticker string, start, end time.Time) (*models.BarSeries, error)
	GetLatestBarDate(ctx context.Context, ticker string) (time.Time, error)
	DeleteByTicker(ctx context.Context, ticker string) error
}

// VerdictRepository defines the interface for verdict persistence
type VerdictRepository interface {
	Create(ctx context.Context, verdict *models.Verdict) error
	GetByRunID(ctx context.Context, runID uuid.UUID) (*models.Verdict, error)
	GetLatestByTicker(ctx context.Context, ticker string) (*models.Verdict, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.Verdict, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Verdict, error)
}
