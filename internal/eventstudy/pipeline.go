package eventstudy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/crosscheck/internal/logger"
	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/models"
)

// RunInput is everything a single-ticker run needs, supplied in-memory by
// the data-loading collaborator. No stage of the pipeline performs I/O.
type RunInput struct {
	Ticker    string
	Stock     *models.BarSeries
	Benchmark *models.BarSeries
	// Quote is an optional live bid/ask snapshot for the economics gate.
	Quote *models.Quote
	// Now anchors quote staleness; zero means time.Now.
	Now time.Time
}

// RunResult carries the terminal verdict plus every intermediate record, so
// reports and exports never recompute statistics.
type RunResult struct {
	RunID        uuid.UUID               `json:"run_id"`
	Ticker       string                  `json:"ticker"`
	Events       []models.Event          `json:"events"`
	Fits         []models.MarketModelFit `json:"fits"`
	Outcomes     []models.EventOutcome   `json:"outcomes"`
	HorizonStats []models.HorizonStats   `json:"horizon_stats"`
	Capacity     models.CapacityStatus   `json:"capacity"`
	Verdict      models.Verdict          `json:"verdict"`
}

// Pipeline runs the event study for one ticker at a time. Distinct runs are
// fully independent; a single Pipeline value may be shared across tickers.
type Pipeline struct {
	cfg    StudyConfig
	logger *logrus.Logger
	study  *logger.StudyLogger
}

// NewPipeline validates the configuration once up front.
func NewPipeline(cfg StudyConfig, log *logrus.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid study config: %w", err)
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{cfg: cfg, logger: log, study: logger.NewStudyLogger(log)}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() StudyConfig {
	return p.cfg
}

// Run executes the full pipeline. Structurally invalid input fails; anything
// else resolves to a verdict, conservative SKIP included.
func (p *Pipeline) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if err := p.checkInput(input); err != nil {
		return nil, err
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	runID := uuid.New()
	log := p.logger.WithFields(logrus.Fields{"run_id": runID, "ticker": input.Ticker})
	p.study.LogEvaluationStarted(runID.String(), input.Ticker, input.Benchmark.Ticker, len(input.Stock.Bars))

	rows, err := ComputeFeatures(input.Stock.Bars, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: feature computation: %w", input.Ticker, err)
	}
	bench := benchmarkReturns(input.Benchmark.Bars)

	result := &RunResult{RunID: runID, Ticker: input.Ticker}
	result.Events = DetectEvents(rows, p.cfg)
	result.Capacity = ComputeCapacity(input.Stock.Bars, input.Quote, now, p.cfg)
	provenance := provenanceInfo(input.Stock)

	valid := ValidEvents(result.Events)
	persistence, cooldown, conflict := rejectCounts(result.Events)
	p.study.LogEventsDetected(runID.String(), input.Ticker, len(result.Events), len(valid), persistence, cooldown, conflict)

	if len(valid) == 0 {
		// Not an exception: the run completes with a SKIP verdict and an
		// empty evidence table.
		result.Verdict = SynthesizeVerdict(runID, input.Ticker, nil, result.Capacity, provenance, now)
		p.study.LogEvaluationSkipped(runID.String(), input.Ticker, "no valid crossover events")
		return result, nil
	}

	result.Fits, result.Outcomes = p.fitAndMeasure(ctx, rows, bench, valid)
	for i, fit := range result.Fits {
		if !fit.SufficientOverlap {
			metrics.RecordModelFallback()
			p.study.LogModelFallback(runID.String(), input.Ticker, valid[i].Index, fit.OverlapBars, p.cfg.MinOverlapBars)
		}
	}

	result.HorizonStats = ComputeHorizonStats(result.Outcomes, p.cfg)
	for _, hs := range result.HorizonStats {
		p.study.LogSignificanceSummary(runID.String(), input.Ticker, hs.HorizonDays, hs.N, hs.PValue, hs.QValue, hs.Significant)
	}

	result.Verdict = SynthesizeVerdict(runID, input.Ticker, result.HorizonStats, result.Capacity, provenance, now)
	result.Verdict.Flags = appendOverlapFlag(result.Verdict.Flags, result.Fits)

	log.WithFields(logrus.Fields{
		"verdict":        result.Verdict.Verdict,
		"chosen_horizon": result.Verdict.ChosenHorizon,
	}).Info("Event study run completed")
	return result, nil
}

func (p *Pipeline) checkInput(input RunInput) error {
	if input.Stock == nil || input.Benchmark == nil {
		return fmt.Errorf("%s: stock and benchmark series are required", input.Ticker)
	}
	if !input.Stock.Source.Trusted() {
		return fmt.Errorf("%s: stock provenance %q: %w", input.Ticker, input.Stock.Source, models.ErrUntrustedDataSource)
	}
	if !input.Benchmark.Source.Trusted() {
		return fmt.Errorf("%s: benchmark provenance %q: %w", input.Ticker, input.Benchmark.Source, models.ErrUntrustedDataSource)
	}
	if err := input.Stock.Validate(); err != nil {
		return err
	}
	return input.Benchmark.Validate()
}

// fitAndMeasure runs the per-event model fits and forward returns on a
// bounded worker pool. Each worker reads immutable feature rows and writes
// only to its own slot, so no locking is needed beyond the join.
func (p *Pipeline) fitAndMeasure(ctx context.Context, rows []models.FeatureRow, bench map[int64]float64, events []models.Event) ([]models.MarketModelFit, []models.EventOutcome) {
	fits := make([]models.MarketModelFit, len(events))
	perEvent := make([][]models.EventOutcome, len(events))

	workers := p.cfg.MaxParallelFits
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, event := range events {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(slot int, ev models.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			fit := FitMarketModel(rows, bench, ev.Index, p.cfg)
			fits[slot] = fit
			perEvent[slot] = ComputeOutcomes(rows, bench, ev, fit, p.cfg)
		}(i, event)
	}
	wg.Wait()

	// Deterministic order: outcomes are flattened in event order regardless
	// of worker completion order.
	var outcomes []models.EventOutcome
	for _, batch := range perEvent {
		outcomes = append(outcomes, batch...)
	}
	return fits, outcomes
}

func provenanceInfo(series *models.BarSeries) models.ProvenanceInfo {
	start, end := series.DateRange()
	return models.ProvenanceInfo{
		Source: series.Source,
		Start:  start,
		End:    end,
		NBars:  len(series.Bars),
	}
}

// rejectCounts attributes each invalid event to the gate that rejected it.
// An event failing several gates counts once, against the first.
func rejectCounts(events []models.Event) (persistence, cooldown, conflict int) {
	for _, e := range events {
		switch {
		case e.Valid:
		case !e.PersistenceOK:
			persistence++
		case e.OppositeConflict:
			conflict++
		case !e.DedupOK:
			cooldown++
		}
	}
	return persistence, cooldown, conflict
}

func appendOverlapFlag(flags []string, fits []models.MarketModelFit) []string {
	for _, fit := range fits {
		if !fit.SufficientOverlap {
			return append(flags, FlagInsufficientOverlap)
		}
	}
	return flags
}
