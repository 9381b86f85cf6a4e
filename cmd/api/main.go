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

	"villaalcielo/internal/api"
	"villaalcielo/internal/availability"
	"villaalcielo/internal/calendar"
	"villaalcielo/internal/config"
	"villaalcielo/internal/database"
	"villaalcielo/internal/domain"
	"villaalcielo/internal/events"
	"villaalcielo/internal/export"
	"villaalcielo/internal/holidays"
	"villaalcielo/internal/logging"
	"villaalcielo/internal/metrics"
	"villaalcielo/internal/models"
	"villaalcielo/internal/notify"
	"villaalcielo/internal/pricing"
	"villaalcielo/internal/repository"
	"villaalcielo/internal/service"
	"villaalcielo/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
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

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	guard := initGuard(cfg, &logger)
	notifier := initTelegram(cfg, &logger)
	calendarClient := initCalendar(cfg, &logger)

	svc := service.NewReservationService(
		db,
		availability.NewChecker(db),
		pricing.NewEngine(holidays.NewCalendar()),
		events.NewEventBus(),
		notifier,
		calendarClient,
		guard,
		service.Policy{
			FreezeDuration:  time.Duration(cfg.Booking.FreezeHours) * time.Hour,
			CodeLength:      cfg.Booking.CodeLength,
			DepositPercent:  cfg.Booking.DepositPercent,
			BookingAttempts: cfg.Booking.RateLimitAttempts,
			BookingWindow:   time.Duration(cfg.Booking.RateLimitWindowSec) * time.Second,
			BankName:        cfg.Payment.BankName,
			AccountHolder:   cfg.Payment.AccountHolder,
			AccountNumber:   cfg.Payment.AccountNumber,
			WhatsAppNumber:  cfg.Payment.WhatsAppNumber,
		},
		&logger,
	)

	httpServer := api.NewHTTPServer(cfg.API, svc, export.NewExporter(db), &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	sweeper := worker.NewSweeper(svc, time.Duration(cfg.Booking.SweepIntervalMin)*time.Minute, worker.RetryPolicy{}, &logger)
	go sweeper.Run(ctx)

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

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	cabins := cfg.Cabins
	if extra, err := loadCabinsFile(logger); err == nil && len(extra) > 0 {
		cabins = extra
	}

	ctx := context.Background()
	for i := range cabins {
		if err := db.UpsertCabin(ctx, &cabins[i]); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed cabin %s: %w", cabins[i].Name, err)
		}
	}

	return db, nil
}

// loadCabinsFile reads an optional standalone cabins file that overrides the
// cabins from the main config. Useful for changing prices without touching
// the rest of the config.
func loadCabinsFile(logger *zerolog.Logger) ([]models.Cabin, error) {
	cabinsPath := os.Getenv("CABINS_PATH")
	if cabinsPath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(cabinsPath)
	if err != nil {
		logger.Warn().Err(err).Str("cabins_path", cabinsPath).Msg("read cabins file")
		return nil, err
	}

	var cabinsConfig struct {
		Cabins []models.Cabin `yaml:"cabins"`
	}
	if err := yaml.Unmarshal(data, &cabinsConfig); err != nil {
		logger.Warn().Err(err).Str("cabins_path", cabinsPath).Msg("parse cabins file")
		return nil, err
	}

	if err := config.ValidateCabins(cabinsConfig.Cabins); err != nil {
		return nil, err
	}
	return cabinsConfig.Cabins, nil
}

func initGuard(cfg *config.Config, logger *zerolog.Logger) domain.BookingGuard {
	memory := repository.NewMemoryGuard()
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, using in-memory rate limiter")
		_ = repository.Close(client)
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return repository.NewFailoverGuard(repository.NewRedisGuard(client), memory, logger)
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) domain.Notifier {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		return nil
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.OwnerChatIDs, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without owner notifications")
		return nil
	}

	logger.Info().Int("chats", len(cfg.Telegram.OwnerChatIDs)).Msg("telegram notifier ready")
	return notifier
}

func initCalendar(cfg *config.Config, logger *zerolog.Logger) domain.CalendarClient {
	if !cfg.Calendar.Enabled {
		return nil
	}

	client, err := calendar.NewGoogleCalendar(cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID)
	if err != nil {
		logger.Warn().Err(err).Msg("google calendar init failed, continuing without calendar sync")
		return nil
	}

	logger.Info().Str("calendar_id", cfg.Calendar.CalendarID).Msg("google calendar connected")
	return client
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
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("API server started")

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
