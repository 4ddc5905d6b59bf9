package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/crosscheck/internal/config"
	"github.com/yourusername/crosscheck/internal/database"
	"github.com/yourusername/crosscheck/internal/eventstudy"
	"github.com/yourusername/crosscheck/internal/health"
	"github.com/yourusername/crosscheck/internal/logger"
	"github.com/yourusername/crosscheck/internal/marketdata"
	"github.com/yourusername/crosscheck/internal/metrics"
	"github.com/yourusername/crosscheck/internal/quotes"
	"github.com/yourusername/crosscheck/internal/repository"
	"github.com/yourusername/crosscheck/internal/scheduler"
	"github.com/yourusername/crosscheck/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
	db         *database.DB
	repos      *repository.Repositories
	provider   marketdata.Provider
	httpClient *marketdata.RateLimitedHTTPClient
	stream     *quotes.StreamClient
	svc        *service.EvaluationService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the recurring multi-ticker crossover scan",
	Long:  `Evaluates the configured ticker universe on a cron schedule, writing an evidence export per ticker and persisting verdicts when a database is configured.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runDaemon()
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single scan over the configured tickers and exit",
	Run: func(cmd *cobra.Command, args []string) {
		runOnce()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scan %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func setupDependencies() error {
	appLog = logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
	}).Info("Crosscheck scanner starting")

	metrics.InitRegistry()

	if cfg.Database.Enabled {
		var err error
		db, err = database.Initialize(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err = repository.NewRepositories(db)
		if err != nil {
			return fmt.Errorf("failed to initialize repositories: %w", err)
		}
		appLog.Info("Database connection established")
	}

	studyCfg, err := eventstudy.FromConfig(&cfg.Study)
	if err != nil {
		return fmt.Errorf("invalid study config: %w", err)
	}
	pipeline, err := eventstudy.NewPipeline(studyCfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	providerLogger := log.New(os.Stdout, "marketdata: ", log.LstdFlags)
	provider, httpClient, err = marketdata.NewProviderFromConfig(&cfg.Provider, providerLogger)
	if err != nil {
		return fmt.Errorf("failed to create market data provider: %w", err)
	}

	var quoteSource service.QuoteSource
	if cfg.Quotes.Enabled {
		streamLogger := log.New(os.Stdout, "quotes: ", log.LstdFlags)
		stream = quotes.NewStreamClient(cfg.Quotes.StreamURL, cfg.Quotes.APIKey, streamLogger)
		quoteSource = stream
	}

	svc, err = service.NewEvaluationService(provider, quoteSource, repos, pipeline, cfg, appLog)
	if err != nil {
		return fmt.Errorf("failed to create evaluation service: %w", err)
	}

	return nil
}

func runOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer teardown()

	connectStream(ctx)

	if err := svc.RunScan(ctx); err != nil {
		appLog.WithError(err).Error("Scan failed")
		os.Exit(1)
	}
	appLog.Info("Scan completed")
}

func runDaemon() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer teardown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	connectStream(ctx)

	schedLogger := log.New(os.Stdout, "scheduler: ", log.LstdFlags)
	sched := scheduler.NewScheduler(svc, schedLogger)
	if err := sched.ScheduleScan(cfg.Scan.CronSchedule); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule scan")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}

	metricsServer := startMetricsServer()
	healthServer := startHealthServer(ctx)

	appLog.WithFields(logrus.Fields{
		"cron":     cfg.Scan.CronSchedule,
		"tickers":  len(cfg.Scan.Tickers),
		"next_run": sched.GetNextRun(),
	}).Info("Scanner is running")

	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Scheduler shutdown error")
	}
	if healthServer != nil {
		if err := healthServer.Shutdown(); err != nil {
			appLog.WithError(err).Error("Health server shutdown error")
		}
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Metrics server shutdown error")
		}
	}

	appLog.Info("Scanner stopped")
}

func connectStream(ctx context.Context) {
	if stream == nil {
		return
	}
	if err := stream.ConnectWithRetry(ctx); err != nil {
		appLog.WithError(err).Warn("Quote stream unavailable; falling back to bar-range spreads")
		return
	}
	if err := stream.Subscribe(ctx, cfg.Scan.Tickers); err != nil {
		appLog.WithError(err).Warn("Quote stream subscription failed")
		return
	}
	metrics.UpdateQuoteFeedConnected(true)
}

func startMetricsServer() *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Error("Metrics server error")
		}
	}()

	return server
}

func startHealthServer(ctx context.Context) *health.Server {
	if !cfg.Health.Enabled {
		return nil
	}

	healthCfg := health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		Logger:      appLog,
	}
	if db != nil {
		healthCfg.DB = db
	}
	if stream != nil {
		healthCfg.Feed = stream
	}

	server := health.NewServer(healthCfg)
	if err := server.Start(ctx); err != nil {
		appLog.WithError(err).Error("Failed to start health server")
		return nil
	}
	server.SetReady(true)
	return server
}

func teardown() {
	if stream != nil {
		if err := stream.Close(); err != nil {
			appLog.WithError(err).Error("Quote stream close error")
		}
		metrics.UpdateQuoteFeedConnected(false)
	}
	if httpClient != nil {
		httpClient.Close()
	}
	if db != nil {
		db.Close()
	}
}
