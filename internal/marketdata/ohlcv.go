package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/models"
)

const providerDisabledMsg = "provider is disabled"

// OHLCVClient implements Provider for a JSON daily-bars API
type OHLCVClient struct {
	httpClient *RateLimitedHTTPClient
	name       string
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *log.Logger
}

// ohlcvBarEntry represents a single bar from the OHLCV API. Prices arrive as
// strings to avoid float precision loss on the wire.
type ohlcvBarEntry struct {
	Date          string  `json:"date"`
	Open          string  `json:"open"`
	High          string  `json:"high"`
	Low           string  `json:"low"`
	Close         string  `json:"close"`
	AdjustedClose *string `json:"adjusted_close"`
	Volume        string  `json:"volume"`
}

// ohlcvBarsResponse represents the daily-bars API response envelope
type ohlcvBarsResponse struct {
	Ticker string          `json:"ticker"`
	Bars   []ohlcvBarEntry `json:"bars"`
}

// ohlcvQuoteResponse represents the quote API response
type ohlcvQuoteResponse struct {
	Ticker    string `json:"ticker"`
	Bid       string `json:"bid"`
	Ask       string `json:"ask"`
	Timestamp string `json:"timestamp"`
}

// NewOHLCVClient creates a new OHLCV API client
func NewOHLCVClient(httpClient *RateLimitedHTTPClient, name, baseURL, apiKey string, enabled bool, logger *log.Logger) *OHLCVClient {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &OHLCVClient{
		httpClient: httpClient,
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger,
	}
}

// FetchDailyBars retrieves daily bars for a ticker within the date range
func (c *OHLCVClient) FetchDailyBars(ctx context.Context, ticker string, startDate, endDate time.Time) (*models.BarSeries, error) {
	if !c.enabled {
		return nil, NewProviderError(c.name, ErrCodeNetworkError, providerDisabledMsg, nil)
	}

	url := fmt.Sprintf("%s/daily/%s?from=%s&to=%s", c.baseURL, ticker, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var payload ohlcvBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "failed to parse response", err)
	}

	bars := make([]models.PriceBar, 0, len(payload.Bars))
	for _, entry := range payload.Bars {
		bar, err := c.convertBar(&entry)
		if err != nil {
			c.logger.Printf("Skipping malformed bar for %s on %s: %v", ticker, entry.Date, err)
			continue
		}
		bars = append(bars, *bar)
	}

	// Providers do not guarantee ordering
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	series := &models.BarSeries{
		Ticker: ticker,
		Bars:   bars,
		Source: models.ProvenanceProvider,
	}
	if err := series.Validate(); err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "response failed validation", err)
	}

	return series, nil
}

// FetchQuote retrieves the current best bid/ask for a ticker
func (c *OHLCVClient) FetchQuote(ctx context.Context, ticker string) (*models.Quote, error) {
	if !c.enabled {
		return nil, NewProviderError(c.name, ErrCodeNetworkError, providerDisabledMsg, nil)
	}

	url := fmt.Sprintf("%s/quote/%s", c.baseURL, ticker)

	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var payload ohlcvQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "failed to parse response", err)
	}

	return c.convertQuote(&payload)
}

// Name returns the provider name
func (c *OHLCVClient) Name() string {
	return c.name
}

// IsEnabled returns whether this provider is enabled
func (c *OHLCVClient) IsEnabled() bool {
	return c.enabled
}

func (c *OHLCVClient) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewProviderError(c.name, ErrCodeNetworkError, "failed to create request", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordProviderRequest(c.name, "error", elapsed)
		return nil, NewProviderError(c.name, ErrCodeNetworkError, "request failed", err)
	}
	metrics.RecordProviderRequest(c.name, "success", elapsed)
	return resp, nil
}

func (c *OHLCVClient) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return NewProviderError(c.name, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewProviderError(c.name, ErrCodeNotFound, "ticker not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewProviderError(c.name, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	default:
		body, _ := io.ReadAll(resp.Body)
		return NewProviderError(c.name, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}
}

// convertBar converts a wire bar entry to a PriceBar
func (c *OHLCVClient) convertBar(entry *ohlcvBarEntry) (*models.PriceBar, error) {
	date, err := time.Parse("2006-01-02", entry.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	open, err := parsePrice(entry.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid open: %w", err)
	}
	high, err := parsePrice(entry.High)
	if err != nil {
		return nil, fmt.Errorf("invalid high: %w", err)
	}
	low, err := parsePrice(entry.Low)
	if err != nil {
		return nil, fmt.Errorf("invalid low: %w", err)
	}
	closePrice, err := parsePrice(entry.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close: %w", err)
	}
	volume, err := parsePrice(entry.Volume)
	if err != nil {
		return nil, fmt.Errorf("invalid volume: %w", err)
	}

	// Missing adjusted close falls back to the raw close
	adjusted := closePrice
	if entry.AdjustedClose != nil && *entry.AdjustedClose != "" {
		adjusted, err = parsePrice(*entry.AdjustedClose)
		if err != nil {
			return nil, fmt.Errorf("invalid adjusted close: %w", err)
		}
	}

	return &models.PriceBar{
		Date:          date,
		Open:          open,
		High:          high,
		Low:           low,
		Close:         closePrice,
		AdjustedClose: adjusted,
		Volume:        volume,
	}, nil
}

// convertQuote converts a wire quote to a Quote
func (c *OHLCVClient) convertQuote(payload *ohlcvQuoteResponse) (*models.Quote, error) {
	bid, err := parsePrice(payload.Bid)
	if err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "invalid bid", err)
	}
	ask, err := parsePrice(payload.Ask)
	if err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "invalid ask", err)
	}

	ts, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		return nil, NewProviderError(c.name, ErrCodeInvalidData, "invalid timestamp", err)
	}

	return &models.Quote{
		Ticker: payload.Ticker,
		Bid:    bid,
		Ask:    ask,
		Time:   ts,
	}, nil
}

// parsePrice parses a wire price string through decimal to avoid accepting
// garbage like "1e309" or locale-formatted numbers.
func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
