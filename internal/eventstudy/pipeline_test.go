package eventstudy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/models"
)

// trendingSeries produces a multi-year daily history whose drift oscillates
// slowly enough to generate a handful of well-separated EMA crossovers.
func trendingSeries(ticker string, n int) *models.BarSeries {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + 0.0004 + 0.012*math.Sin(float64(i)/40.0)
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   price * 0.999,
			High:   price * 1.004,
			Low:    price * 0.996,
			Close:  price,
			Volume: 2_500_000,
		}
	}
	return &models.BarSeries{Ticker: ticker, Bars: bars, Source: models.ProvenanceProvider}
}

func flatBenchmark(n int) *models.BarSeries {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	price := 400.0
	for i := 0; i < n; i++ {
		price *= 1 + 0.0002*math.Cos(float64(i)/15.0)
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.002,
			Low:    price * 0.998,
			Close:  price,
			Volume: 80_000_000,
		}
	}
	return &models.BarSeries{Ticker: "SPY", Bars: bars, Source: models.ProvenanceProvider}
}

func testInput(n int) RunInput {
	return RunInput{
		Ticker:    "AAPL",
		Stock:     trendingSeries("AAPL", n),
		Benchmark: flatBenchmark(n),
		Now:       time.Date(2024, 6, 3, 21, 0, 0, 0, time.UTC),
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	pipeline, err := NewPipeline(DefaultStudyConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := pipeline.Run(context.Background(), testInput(420))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Events) == 0 {
		t.Fatalf("oscillating series should produce crossovers")
	}
	valid := ValidEvents(result.Events)
	if len(valid) == 0 {
		t.Fatalf("expected at least one valid event")
	}
	if len(result.Fits) != len(valid) {
		t.Fatalf("one fit per valid event: %d fits, %d events", len(result.Fits), len(valid))
	}
	if len(result.HorizonStats) != len(DefaultStudyConfig().Horizons) {
		t.Fatalf("expected a row per horizon, got %d", len(result.HorizonStats))
	}
	switch result.Verdict.Verdict {
	case models.VerdictBuy, models.VerdictHold, models.VerdictSkip:
	default:
		t.Fatalf("verdict must always resolve, got %q", result.Verdict.Verdict)
	}
	if result.Verdict.Provenance.Source != models.ProvenanceProvider {
		t.Fatalf("provenance should carry through: %+v", result.Verdict.Provenance)
	}
	if result.Verdict.Provenance.NBars != 420 {
		t.Fatalf("provenance bar count = %d, want 420", result.Verdict.Provenance.NBars)
	}
}

func TestPipelineRunDeterministic(t *testing.T) {
	pipeline, err := NewPipeline(DefaultStudyConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := pipeline.Run(context.Background(), testInput(420))
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := pipeline.Run(context.Background(), testInput(420))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if !reflect.DeepEqual(first.HorizonStats, second.HorizonStats) {
		t.Fatalf("identical input must reproduce the horizon table")
	}

	// The verdict record carries every decision field and no per-run
	// identifiers, so two runs on the same input must serialize identically.
	firstRecord, err := json.Marshal(first.Verdict.Record())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	secondRecord, err := json.Marshal(second.Verdict.Record())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(firstRecord) != string(secondRecord) {
		t.Fatalf("identical input must reproduce the verdict record:\n%s\nvs\n%s", firstRecord, secondRecord)
	}
}

func TestPipelineRunEmitsStudyLog(t *testing.T) {
	log := logrus.New()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	pipeline, err := NewPipeline(DefaultStudyConfig(), log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pipeline.Run(context.Background(), testInput(420)); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	output := buf.String()
	for _, msg := range []string{
		"Evaluation started",
		"Crossover detection completed",
		"Horizon significance computed",
	} {
		if !strings.Contains(output, msg) {
			t.Errorf("run log is missing %q", msg)
		}
	}
	if !strings.Contains(output, `"benchmark":"SPY"`) {
		t.Errorf("start line should name the benchmark, got: %s", output)
	}
}

func TestPipelineRecordsModelFallbacks(t *testing.T) {
	log := logrus.New()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	// An overlap floor no 420-bar history can satisfy forces every fit onto
	// passthrough coefficients.
	cfg := DefaultStudyConfig()
	cfg.MinOverlapBars = 500
	pipeline, err := NewPipeline(cfg, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := testutil.ToFloat64(metrics.ModelFallbacksTotal)
	result, err := pipeline.Run(context.Background(), testInput(420))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	valid := ValidEvents(result.Events)
	if len(valid) == 0 {
		t.Fatalf("expected at least one valid event")
	}
	if got := testutil.ToFloat64(metrics.ModelFallbacksTotal); got != before+float64(len(valid)) {
		t.Errorf("expected fallback counter to advance by %d, got %v -> %v", len(valid), before, got)
	}
	if !strings.Contains(buf.String(), "Market model fell back to passthrough coefficients") {
		t.Errorf("run log is missing the fallback warning")
	}
	if !hasFlag(result.Verdict.Flags, FlagInsufficientOverlap) {
		t.Errorf("expected %s flag, got %v", FlagInsufficientOverlap, result.Verdict.Flags)
	}
}

func TestPipelineRejectsUntrustedProvenance(t *testing.T) {
	pipeline, err := NewPipeline(DefaultStudyConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := testInput(420)
	input.Stock.Source = "synthetic"
	if _, err := pipeline.Run(context.Background(), input); !errors.Is(err, models.ErrUntrustedDataSource) {
		t.Fatalf("expected ErrUntrustedDataSource, got %v", err)
	}

	input = testInput(420)
	input.Benchmark.Source = ""
	if _, err := pipeline.Run(context.Background(), input); !errors.Is(err, models.ErrUntrustedDataSource) {
		t.Fatalf("untrusted benchmark must be rejected too, got %v", err)
	}
}

func TestPipelineQuietSeriesSkips(t *testing.T) {
	pipeline, err := NewPipeline(DefaultStudyConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A dead-flat series never crosses; the run still completes with SKIP.
	input := testInput(420)
	for i := range input.Stock.Bars {
		input.Stock.Bars[i].Close = 100
		input.Stock.Bars[i].Open = 100
		input.Stock.Bars[i].High = 100.1
		input.Stock.Bars[i].Low = 99.9
	}
	result, err := pipeline.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Verdict.Verdict != models.VerdictSkip {
		t.Fatalf("no valid events should SKIP, got %s", result.Verdict.Verdict)
	}
	if !hasFlag(result.Verdict.Flags, FlagNoValidEvents) {
		t.Fatalf("expected %s flag, got %v", FlagNoValidEvents, result.Verdict.Flags)
	}
}

func TestEvidenceExportStable(t *testing.T) {
	pipeline, err := NewPipeline(DefaultStudyConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := pipeline.Run(context.Background(), testInput(420))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	export := BuildEvidenceExport(result)
	first, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("export serialization must be byte-stable")
	}
	if export.Record.Ticker != "AAPL" {
		t.Fatalf("record ticker = %q", export.Record.Ticker)
	}
	if len(export.HorizonTable) != len(result.HorizonStats) {
		t.Fatalf("export must carry the full horizon table")
	}
}

func TestPipelineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultStudyConfig()
	cfg.EMAFastPeriod = 50
	cfg.EMASlowPeriod = 20
	if _, err := NewPipeline(cfg, nil); err == nil {
		t.Fatalf("expected config validation error")
	}
}
