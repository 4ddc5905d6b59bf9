package marketdata

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/crosscheck/internal/config"
)

// NewProviderFromConfig builds the configured provider stack: a rate-limited
// HTTP client, the OHLCV client on top of it, and a TTL cache on top of that.
func NewProviderFromConfig(cfg *config.ProviderConfig, logger *log.Logger) (Provider, *RateLimitedHTTPClient, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("provider config is required")
	}

	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.MaxRetries
	if cfg.RateLimit > 0 {
		httpCfg.RateLimit = cfg.RateLimit
	}

	httpClient := NewRateLimitedHTTPClient(httpCfg, logger)

	var provider Provider
	switch cfg.Name {
	case "ohlcv_api":
		if cfg.APIKey == "" {
			httpClient.Close()
			return nil, nil, fmt.Errorf("OHLCV API key is required")
		}
		provider = NewOHLCVClient(httpClient, cfg.Name, cfg.BaseURL, cfg.APIKey, true, logger)

	default:
		httpClient.Close()
		return nil, nil, fmt.Errorf("unknown provider: %s", cfg.Name)
	}

	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		provider = NewCachedProvider(provider, ttl, cfg.CacheMaxSize)
	}

	return provider, httpClient, nil
}
