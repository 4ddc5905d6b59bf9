// Package main provides the entry point for the single-ticker evaluation CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/crosscheck/internal/config"
	"github.com/yourusername/crosscheck/internal/database"
	"github.com/yourusername/crosscheck/internal/eventstudy"
	crosslog "github.com/yourusername/crosscheck/internal/logger"
	"github.com/yourusername/crosscheck/internal/marketdata"
	"github.com/yourusername/crosscheck/internal/repository"
	"github.com/yourusername/crosscheck/internal/service"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		ticker     = flag.String("ticker", "", "Ticker symbol to evaluate")
		benchmark  = flag.String("benchmark", "", "Override the benchmark ticker")
		outputDir  = flag.String("output", "", "Override output directory for the evidence export")
		lookback   = flag.Int("lookback", 0, "Override lookback window in calendar days")
		format     = flag.String("format", "console", "Report format: console, csv, none")
	)
	flag.Parse()

	logger := newLogger()
	ctx := context.Background()

	if *ticker == "" {
		logger.Fatal("A ticker is required: -ticker AAPL")
	}

	cfg := loadConfigWithSecrets(*configPath, logger)
	auditLog := crosslog.NewAuditLogger(logger)
	if *outputDir != "" {
		cfg.Scan.OutputDir = *outputDir
	}
	if *benchmark != "" {
		auditLog.LogParameterChange("provider.benchmark", cfg.Provider.Benchmark, *benchmark, "cli")
		cfg.Provider.Benchmark = *benchmark
	}
	if *lookback > 0 {
		auditLog.LogParameterChange("scan.lookback_days", cfg.Scan.LookbackDays, *lookback, "cli")
		cfg.Scan.LookbackDays = *lookback
	}

	pipeline := buildPipeline(cfg, logger)
	provider, httpClient := buildProvider(cfg, logger)
	defer httpClient.Close()

	var repos *repository.Repositories
	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		repos, err = repository.NewRepositories(db)
		if err != nil {
			logger.Fatalf("Failed to initialize repositories: %v", err)
		}
	}

	svc, err := service.NewEvaluationService(provider, nil, repos, pipeline, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create evaluation service: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"ticker":    *ticker,
		"benchmark": cfg.Provider.Benchmark,
	}).Info("Starting evaluation")

	result, err := svc.EvaluateTicker(ctx, *ticker)
	if err != nil {
		logger.Fatalf("Evaluation failed: %v", err)
	}

	exportPath, err := svc.ExportResult(result)
	if err != nil {
		logger.Fatalf("Failed to export result: %v", err)
	}

	switch *format {
	case "console":
		fmt.Println(eventstudy.GenerateConsoleReport(result))
	case "csv":
		csvPath := strings.TrimSuffix(exportPath, ".json") + ".csv"
		if err := eventstudy.GenerateCSVExport(result, csvPath); err != nil {
			logger.Fatalf("Failed to write CSV report: %v", err)
		}
		logger.WithField("path", csvPath).Info("CSV report written")
	case "none":
	default:
		logger.Fatalf("Unknown format %q", *format)
	}
	logger.WithField("path", exportPath).Info("Evidence export written")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func loadConfigWithSecrets(path string, logger *logrus.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			logger.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			logger.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildPipeline(cfg *config.Config, logger *logrus.Logger) *eventstudy.Pipeline {
	studyCfg, err := eventstudy.FromConfig(&cfg.Study)
	if err != nil {
		logger.Fatalf("Invalid study config: %v", err)
	}
	pipeline, err := eventstudy.NewPipeline(studyCfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create pipeline: %v", err)
	}
	return pipeline
}

func buildProvider(cfg *config.Config, logger *logrus.Logger) (marketdata.Provider, *marketdata.RateLimitedHTTPClient) {
	providerLogger := stdlog.New(os.Stdout, "marketdata: ", stdlog.LstdFlags)
	provider, httpClient, err := marketdata.NewProviderFromConfig(&cfg.Provider, providerLogger)
	if err != nil {
		logger.Fatalf("Failed to create market data provider: %v", err)
	}
	return provider, httpClient
}
