package service

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/crosscheck/internal/config"
	"github.com/yourusername/crosscheck/internal/eventstudy"
	"github.com/yourusername/crosscheck/internal/models"
)

// fakeProvider serves deterministic synthetic series
type fakeProvider struct {
	calls int64
	fail  bool
}

func (f *fakeProvider) FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) (*models.BarSeries, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.fail {
		return nil, assert.AnError
	}

	n := 400
	bars := make([]models.PriceBar, n)
	date := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		// Slow oscillation so fast/slow averages cross occasionally
		drift := 0.0005 + 0.01*math.Sin(float64(i)/40.0)
		price *= 1 + drift
		bars[i] = models.PriceBar{
			Date:          date,
			Open:          price * 0.999,
			High:          price * 1.005,
			Low:           price * 0.995,
			Close:         price,
			AdjustedClose: price,
			Volume:        2e6,
		}
		date = date.AddDate(0, 0, 1)
	}

	return &models.BarSeries{Ticker: ticker, Bars: bars, Source: models.ProvenanceProvider}, nil
}

func (f *fakeProvider) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	return nil, nil
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) IsEnabled() bool { return true }

func testService(t *testing.T, provider *fakeProvider, tickers []string, outputDir string) *EvaluationService {
	t.Helper()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)

	pipeline, err := eventstudy.NewPipeline(eventstudy.DefaultStudyConfig(), log)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Provider.Benchmark = "SPY"
	cfg.Scan.Tickers = tickers
	cfg.Scan.LookbackDays = 730
	cfg.Scan.ParallelTickers = 2
	cfg.Scan.OutputDir = outputDir

	svc, err := NewEvaluationService(provider, nil, nil, pipeline, cfg, log)
	require.NoError(t, err)
	return svc
}

func TestEvaluateTickerProducesVerdict(t *testing.T) {
	provider := &fakeProvider{}
	svc := testService(t, provider, nil, t.TempDir())

	result, err := svc.EvaluateTicker(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Ticker)
	assert.Contains(t, []models.VerdictKind{models.VerdictBuy, models.VerdictHold, models.VerdictSkip}, result.Verdict.Verdict)
	// Ticker plus benchmark
	assert.Equal(t, int64(2), atomic.LoadInt64(&provider.calls))
}

func TestEvaluateTickerProviderFailure(t *testing.T) {
	provider := &fakeProvider{fail: true}
	svc := testService(t, provider, nil, t.TempDir())

	_, err := svc.EvaluateTicker(context.Background(), "AAPL")
	assert.Error(t, err)
}

func TestEvaluateTickerProviderFailureAudited(t *testing.T) {
	log := logrus.New()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.WarnLevel)

	pipeline, err := eventstudy.NewPipeline(eventstudy.DefaultStudyConfig(), log)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Provider.Benchmark = "SPY"
	cfg.Scan.LookbackDays = 730

	svc, err := NewEvaluationService(&fakeProvider{fail: true}, nil, nil, pipeline, cfg, log)
	require.NoError(t, err)

	_, err = svc.EvaluateTicker(context.Background(), "AAPL")
	require.Error(t, err)

	assert.Contains(t, buf.String(), "Provider incident recorded")
	assert.Contains(t, buf.String(), `"event_type":"fetch_failure"`)
	assert.Contains(t, buf.String(), `"provider":"fake"`)
}

func TestExportResultWritesFile(t *testing.T) {
	outputDir := t.TempDir()
	provider := &fakeProvider{}
	svc := testService(t, provider, nil, outputDir)

	result, err := svc.EvaluateTicker(context.Background(), "AAPL")
	require.NoError(t, err)

	path, err := svc.ExportResult(result)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "AAPL_verdict.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticker": "AAPL"`)
}

func TestRunScanAllTickers(t *testing.T) {
	outputDir := t.TempDir()
	provider := &fakeProvider{}
	svc := testService(t, provider, []string{"AAPL", "MSFT", "NVDA"}, outputDir)

	err := svc.RunScan(context.Background())
	require.NoError(t, err)

	for _, ticker := range []string{"AAPL", "MSFT", "NVDA"} {
		_, err := os.Stat(filepath.Join(outputDir, ticker+"_verdict.json"))
		assert.NoError(t, err, "expected export for %s", ticker)
	}
}

func TestRunScanNoTickers(t *testing.T) {
	svc := testService(t, &fakeProvider{}, nil, t.TempDir())
	assert.Error(t, svc.RunScan(context.Background()))
}

func TestRunScanAllFailures(t *testing.T) {
	svc := testService(t, &fakeProvider{fail: true}, []string{"AAPL", "MSFT"}, t.TempDir())
	assert.Error(t, svc.RunScan(context.Background()))
}

// fakeBarRepo is an in-memory BarRepository for exercising the read-through
// and write-through paths.
type fakeBarRepo struct {
	stored  map[string]*models.BarSeries
	upserts int
}

func newFakeBarRepo() *fakeBarRepo {
	return &fakeBarRepo{stored: make(map[string]*models.BarSeries)}
}

func (r *fakeBarRepo) UpsertSeries(ctx context.Context, series *models.BarSeries) error {
	r.upserts++
	stored := *series
	stored.Source = models.ProvenanceCache
	r.stored[series.Ticker] = &stored
	return nil
}

func (r *fakeBarRepo) GetSeries(ctx context.Context, ticker string, start, end time.Time) (*models.BarSeries, error) {
	series, ok := r.stored[ticker]
	if !ok {
		return nil, models.ErrNotFound
	}
	return series, nil
}

func (r *fakeBarRepo) GetLatestBarDate(ctx context.Context, ticker string) (time.Time, error) {
	series, ok := r.stored[ticker]
	if !ok || len(series.Bars) == 0 {
		return time.Time{}, models.ErrNotFound
	}
	return series.Bars[len(series.Bars)-1].Date, nil
}

func (r *fakeBarRepo) DeleteByTicker(ctx context.Context, ticker string) error {
	delete(r.stored, ticker)
	return nil
}

func TestLoadBarsWriteThrough(t *testing.T) {
	provider := &fakeProvider{}
	svc := testService(t, provider, nil, t.TempDir())
	repo := newFakeBarRepo()
	svc.barRepo = repo

	end := time.Now().UTC().Truncate(24 * time.Hour)
	from := end.AddDate(0, 0, -730)

	series, err := svc.loadBars(context.Background(), "AAPL", from, end)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceProvider, series.Source)
	assert.Equal(t, 1, repo.upserts)
	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
}

func TestLoadBarsPrefersFreshStoredSeries(t *testing.T) {
	provider := &fakeProvider{}
	svc := testService(t, provider, nil, t.TempDir())
	repo := newFakeBarRepo()
	svc.barRepo = repo

	end := time.Now().UTC().Truncate(24 * time.Hour)
	repo.stored["AAPL"] = &models.BarSeries{
		Ticker: "AAPL",
		Bars:   []models.PriceBar{{Date: end.AddDate(0, 0, -1), Close: 100, Volume: 1e6}},
		Source: models.ProvenanceCache,
	}

	series, err := svc.loadBars(context.Background(), "AAPL", end.AddDate(0, 0, -730), end)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceCache, series.Source)
	assert.Zero(t, atomic.LoadInt64(&provider.calls))
}

func TestLoadBarsRefetchesStaleSeries(t *testing.T) {
	provider := &fakeProvider{}
	svc := testService(t, provider, nil, t.TempDir())
	repo := newFakeBarRepo()
	svc.barRepo = repo

	end := time.Now().UTC().Truncate(24 * time.Hour)
	repo.stored["AAPL"] = &models.BarSeries{
		Ticker: "AAPL",
		Bars:   []models.PriceBar{{Date: end.AddDate(0, 0, -30), Close: 100, Volume: 1e6}},
		Source: models.ProvenanceCache,
	}

	series, err := svc.loadBars(context.Background(), "AAPL", end.AddDate(0, 0, -730), end)
	require.NoError(t, err)
	assert.Equal(t, models.ProvenanceProvider, series.Source)
	assert.Equal(t, int64(1), atomic.LoadInt64(&provider.calls))
	assert.Equal(t, 1, repo.upserts)
}

func TestNewEvaluationServiceValidation(t *testing.T) {
	log := logrus.New()
	pipeline, err := eventstudy.NewPipeline(eventstudy.DefaultStudyConfig(), log)
	require.NoError(t, err)

	_, err = NewEvaluationService(nil, nil, nil, pipeline, &config.Config{}, log)
	assert.Error(t, err)

	_, err = NewEvaluationService(&fakeProvider{}, nil, nil, nil, &config.Config{}, log)
	assert.Error(t, err)

	_, err = NewEvaluationService(&fakeProvider{}, nil, nil, pipeline, nil, log)
	assert.Error(t, err)
}
