// Package service coordinates data loading, the event-study pipeline, and
// persistence into ticker evaluations and scheduled scans.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/crosscheck/internal/config"
	"github.com/yourusername/crosscheck/internal/eventstudy"
	"github.com/yourusername/crosscheck/internal/logger"
	"github.com/yourusername/crosscheck/internal/marketdata"
	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/models"
	"github.com/yourusername/crosscheck/internal/repository"
)

// QuoteSource serves the latest live bid/ask snapshot for a ticker, or nil
// when none is available. Implemented by the quotes stream client.
type QuoteSource interface {
	Latest(ticker string) *models.Quote
}

// EvaluationService loads market data, runs the event-study pipeline, and
// persists and exports the resulting verdicts.
type EvaluationService struct {
	provider    marketdata.Provider
	quoteSource QuoteSource
	barRepo     repository.BarRepository
	verdictRepo repository.VerdictRepository
	pipeline    *eventstudy.Pipeline
	cfg         *config.Config
	studyLog    *logger.StudyLogger
	auditLog    *logger.AuditLogger
	log         *logrus.Logger
}

// maxBarStalenessDays is how far behind the requested end date a stored
// series may lag before the provider is consulted instead. Covers weekends
// and exchange holidays.
const maxBarStalenessDays = 5

// NewEvaluationService creates a new evaluation service. The quote source and
// repositories are optional; everything else is required.
func NewEvaluationService(
	provider marketdata.Provider,
	quoteSource QuoteSource,
	repos *repository.Repositories,
	pipeline *eventstudy.Pipeline,
	cfg *config.Config,
	log *logrus.Logger,
) (*EvaluationService, error) {
	if provider == nil {
		return nil, fmt.Errorf("market data provider is required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		log = logrus.New()
	}

	var barRepo repository.BarRepository
	var verdictRepo repository.VerdictRepository
	if repos != nil {
		barRepo = repos.Bar
		verdictRepo = repos.Verdict
	}

	return &EvaluationService{
		provider:    provider,
		quoteSource: quoteSource,
		barRepo:     barRepo,
		verdictRepo: verdictRepo,
		pipeline:    pipeline,
		cfg:         cfg,
		studyLog:    logger.NewStudyLogger(log),
		auditLog:    logger.NewAuditLogger(log),
		log:         log,
	}, nil
}

// EvaluateTicker runs a full evaluation for one ticker: fetch history for
// the ticker and the benchmark, run the pipeline, persist the verdict.
func (s *EvaluationService) EvaluateTicker(ctx context.Context, ticker string) (*eventstudy.RunResult, error) {
	start := time.Now()

	end := time.Now().UTC().Truncate(24 * time.Hour)
	lookback := s.cfg.Scan.LookbackDays
	if lookback <= 0 {
		lookback = 730
	}
	from := end.AddDate(0, 0, -lookback)

	stock, err := s.loadBars(ctx, ticker, from, end)
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, fmt.Errorf("failed to fetch bars for %s: %w", ticker, err)
	}

	benchmark, err := s.loadBars(ctx, s.cfg.Provider.Benchmark, from, end)
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, fmt.Errorf("failed to fetch benchmark %s: %w", s.cfg.Provider.Benchmark, err)
	}

	var quote *models.Quote
	if s.quoteSource != nil {
		quote = s.quoteSource.Latest(ticker)
	}

	result, err := s.pipeline.Run(ctx, eventstudy.RunInput{
		Ticker:    ticker,
		Stock:     stock,
		Benchmark: benchmark,
		Quote:     quote,
	})
	if err != nil {
		metrics.RecordEvaluation("error")
		return nil, err
	}

	s.recordResult(result, time.Since(start))

	if err := s.persistVerdict(ctx, result); err != nil {
		// Persistence failure does not invalidate the verdict itself
		s.log.WithError(err).WithField("ticker", ticker).Error("Failed to persist verdict")
	}

	return result, nil
}

// loadBars reads the bar history from the repository when it is populated
// and fresh enough, otherwise from the provider with a write-through to the
// repository. Persistence failures never fail the load.
func (s *EvaluationService) loadBars(ctx context.Context, ticker string, from, to time.Time) (*models.BarSeries, error) {
	if s.barRepo != nil {
		latest, err := s.barRepo.GetLatestBarDate(ctx, ticker)
		if err == nil && !latest.Before(to.AddDate(0, 0, -maxBarStalenessDays)) {
			series, err := s.barRepo.GetSeries(ctx, ticker, from, to)
			if err == nil {
				return series, nil
			}
			s.log.WithError(err).WithField("ticker", ticker).Warn("Stored bars unreadable, falling back to provider")
		}
	}

	series, err := s.provider.FetchDailyBars(ctx, ticker, from, to)
	if err != nil {
		s.auditLog.LogProviderIncident("fetch_failure", s.provider.Name(), err.Error(), map[string]interface{}{
			"ticker": ticker,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		})
		return nil, err
	}
	if s.barRepo != nil {
		if err := s.barRepo.UpsertSeries(ctx, series); err != nil {
			s.log.WithError(err).WithField("ticker", ticker).Warn("Failed to store fetched bars")
		}
	}
	return series, nil
}

// ExportResult writes the evidence export for a run to the configured output
// directory.
func (s *EvaluationService) ExportResult(result *eventstudy.RunResult) (string, error) {
	outputDir := s.cfg.Scan.OutputDir
	if outputDir == "" {
		outputDir = "./output"
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_verdict.json", result.Ticker))
	if err := eventstudy.ExportToJSON(eventstudy.BuildEvidenceExport(result), path); err != nil {
		return "", err
	}
	return path, nil
}

// RunScan evaluates every configured ticker with bounded parallelism.
// Individual ticker failures are logged and counted but do not abort the
// scan.
func (s *EvaluationService) RunScan(ctx context.Context) error {
	tickers := s.cfg.Scan.Tickers
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers configured for scan")
	}

	parallel := s.cfg.Scan.ParallelTickers
	if parallel <= 0 {
		parallel = 1
	}

	start := time.Now()
	s.log.WithFields(logrus.Fields{
		"tickers":  len(tickers),
		"parallel": parallel,
	}).Info("Starting scan")

	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0

	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := s.EvaluateTicker(ctx, ticker)
			if err != nil {
				s.log.WithError(err).WithField("ticker", ticker).Error("Ticker evaluation failed")
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			if _, err := s.ExportResult(result); err != nil {
				s.log.WithError(err).WithField("ticker", ticker).Error("Failed to export result")
			}
		}(ticker)
	}

	wg.Wait()
	metrics.RecordScanDuration(time.Since(start).Seconds(), len(tickers))

	s.log.WithFields(logrus.Fields{
		"tickers":  len(tickers),
		"failures": failures,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Info("Scan completed")

	if failures == len(tickers) {
		return fmt.Errorf("all %d ticker evaluations failed", failures)
	}
	return nil
}

func (s *EvaluationService) recordResult(result *eventstudy.RunResult, elapsed time.Duration) {
	verdict := &result.Verdict

	status := "success"
	if verdict.Verdict == models.VerdictSkip {
		status = "skip"
	}
	metrics.RecordEvaluation(status)
	metrics.RecordVerdict(string(verdict.Verdict))
	metrics.RecordEventsDetected(len(result.Events), len(eventstudy.ValidEvents(result.Events)))
	metrics.RecordEvaluationDuration(elapsed.Seconds())

	s.studyLog.LogEvaluationCompleted(
		result.RunID.String(), result.Ticker, string(verdict.Verdict),
		verdict.ChosenHorizon, float64(elapsed.Milliseconds()),
	)
	s.auditLog.LogVerdictIssued(
		result.RunID.String(), result.Ticker, string(verdict.Verdict),
		verdict.ChosenHorizon, verdict.Evidence.MedianCARNet, verdict.Evidence.QValue,
		verdict.Economics.SpreadOK && verdict.Economics.ADVOK, verdict.GeneratedAt,
	)
}

func (s *EvaluationService) persistVerdict(ctx context.Context, result *eventstudy.RunResult) error {
	if s.verdictRepo == nil {
		return nil
	}

	if err := s.verdictRepo.Create(ctx, &result.Verdict); err != nil {
		return err
	}

	s.auditLog.LogVerdictPersisted(result.RunID.String(), result.Ticker, string(result.Verdict.Verdict), "postgres")
	return nil
}
