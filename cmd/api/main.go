package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loadboard/internal/api"
	"loadboard/internal/config"
	"loadboard/internal/database"
	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/export"
	"loadboard/internal/fees"
	"loadboard/internal/gateway"
	"loadboard/internal/google"
	"loadboard/internal/logging"
	"loadboard/internal/metrics"
	"loadboard/internal/notify"
	"loadboard/internal/repository"
	"loadboard/internal/service"
	"loadboard/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	orders := initOrderRepository(redisClient, &logger)

	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.KeyID, cfg.Gateway.KeySecret)

	schedule, err := fees.LoadSchedule(cfg.Fees.SchedulePath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Fees.SchedulePath).Msg("load fee schedule")
		return err
	}
	calc, err := fees.NewCalculator(*schedule)
	if err != nil {
		return fmt.Errorf("build fee calculator: %w", err)
	}

	eventBus := events.NewEventBus()

	if cfg.Telegram.Enabled {
		if err := initNotifier(cfg, eventBus, &logger); err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := initSheetsSync(ctx, cfg, db, redisClient, &logger)

	orderTTL := time.Duration(cfg.Gateway.OrderTTLSeconds) * time.Second
	loads := service.NewLoadService(db, orders, gatewayClient, calc, eventBus, syncWorker, cfg.Gateway.Currency, orderTTL, &logger)
	quotes := service.NewQuoteService(db, eventBus, syncWorker, &logger)
	settlement := service.NewSettlementService(db, orders, gatewayClient, eventBus, syncWorker, cfg.Gateway.Currency, orderTTL, &logger)

	var exporter *export.Exporter
	if cfg.Exports.Path != "" {
		exporter = export.NewExporter(cfg.Exports.Path, &logger)
	}

	httpServer := api.NewHTTPServer(cfg.API, loads, quotes, settlement, exporter)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initOrderRepository picks redis with in-memory failover when redis is up,
// plain in-memory otherwise. Pending orders survive a restart only with redis.
func initOrderRepository(redisClient *redis.Client, logger *zerolog.Logger) domain.OrderRepository {
	memory := repository.NewMemoryOrderRepository()
	if redisClient == nil {
		logger.Warn().Msg("pending orders held in memory only")
		return memory
	}
	primary := repository.NewRedisOrderRepository(redisClient)
	return repository.NewFailoverOrderRepository(primary, memory, logger)
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram bot api: %w", err)
	}

	notifier := notify.NewNotifier(botAPI, cfg.Telegram.ManagerChatIDs, logger)
	notifier.SubscribeAll(bus)
	logger.Info().Int("chats", len(cfg.Telegram.ManagerChatIDs)).Msg("telegram notifications enabled")
	return nil
}

// initSheetsSync wires the spreadsheet mirror when configured. Returns a nil
// interface when disabled so services skip enqueueing entirely.
func initSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.LoadsSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets sync")
		return nil
	}

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, nil)
	go sheetsWorker.Start(ctx)

	logger.Info().Msg("google sheets sync enabled")
	return sheetsWorker
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
