package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablebook/internal/api"
	"tablebook/internal/capacity"
	"tablebook/internal/catalog"
	"tablebook/internal/config"
	"tablebook/internal/database"
	"tablebook/internal/docstore"
	"tablebook/internal/domain"
	"tablebook/internal/events"
	"tablebook/internal/google"
	"tablebook/internal/lock"
	"tablebook/internal/logging"
	"tablebook/internal/metrics"
	"tablebook/internal/models"
	"tablebook/internal/notify"
	"tablebook/internal/repository"
	"tablebook/internal/service"
	"tablebook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultSyncQueuePath = "data/tablebook.db"

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
	resyncSheets := flag.Bool("resync-sheets", false, "rewrite the bookings sheet from storage and exit")
	flag.Parse()

	if err := run(*configPath, *resyncSheets); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// stores are the persistence backends picked by database.driver. The sync
// queue always lives in SQLite.
type stores struct {
	bookings     domain.BookingRepository
	availability domain.AvailabilityRepository
	sqlite       *database.DB
	closeFn      func()
}

func run(configPath string, resyncSheets bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	logger := logging.Component(baseLogger, "api-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, baseLogger)
	if err != nil {
		return err
	}
	defer st.closeFn()

	sheetsService := initGoogleSheets(ctx, cfg, logger)
	if resyncSheets {
		return resync(ctx, st.bookings, sheetsService, logger)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache := initCache(cfg, redisClient, baseLogger)
	locker := initLocker(cfg, redisClient, baseLogger)

	eventBus := events.NewEventBus()
	subscribeAuditLog(eventBus, logging.Component(baseLogger, "events"))
	publisher := events.MultiPublisher{eventBus}
	if cfg.NATS.URL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logging.Component(baseLogger, "nats"))
		if err != nil {
			logger.Warn().Err(err).Msg("nats connection failed, events stay in-process")
		} else {
			defer func() { _ = natsPub.Close() }()
			publisher = append(publisher, natsPub)
		}
	}

	restaurants := catalog.NewStaticCatalog(cfg.Restaurants)

	dispatcher := initNotifications(cfg, publisher, restaurants, baseLogger)
	dispatcher.Start(ctx, cfg.Booking.NotifyWorkers)

	var syncWorker domain.SyncWorker
	if sheetsService != nil {
		w := worker.NewSheetsWorker(st.sqlite, sheetsService, redisClient, worker.RetryPolicy{}, logging.Component(baseLogger, "sheets_worker"))
		go w.Start(ctx)
		syncWorker = w
	}

	if cfg.Backup.Enabled && cfg.Database.Driver == config.DriverSQLite {
		go database.NewBackupService(st.sqlite, cfg.Backup, logging.Component(baseLogger, "backup")).Start(ctx)
	}

	retry := worker.RetryPolicy{InitialDelay: cfg.Booking.RetryDelay}
	evaluator := capacity.NewEvaluator(time.Now, loc)

	availability := service.NewAvailabilityService(st.availability, cache, restaurants, publisher, retry, logging.Component(baseLogger, "availability"))
	if err := availability.Seed(ctx, restaurants.Seeds()); err != nil {
		return fmt.Errorf("seed availability: %w", err)
	}

	bookings := service.NewBookingService(service.BookingDeps{
		Bookings:     st.bookings,
		Availability: availability,
		Catalog:      restaurants,
		Locker:       locker,
		Evaluator:    evaluator,
		Events:       publisher,
		Notifier:     dispatcher,
		SyncWorker:   syncWorker,
		RateLimiter:  cache,
		Retry:        retry,
		Config: service.BookingConfig{
			RequestTimeout: cfg.Booking.RequestTimeout,
			RateLimit:      cfg.Booking.RateLimitRequests,
			RateWindow:     cfg.Booking.RateLimitWindow,
		},
		Logger: logging.Component(baseLogger, "bookings"),
	})
	directory := service.NewDirectoryService(st.bookings, availability, evaluator, retry, logging.Component(baseLogger, "directory"))

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	grpcServer, err := api.NewGRPCServer(&cfg.API, api.NewReservationService(bookings, directory), baseLogger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}

	httpServer := api.NewHTTPServer(&cfg.API, api.Services{
		Bookings:     bookings,
		Directory:    directory,
		Availability: availability,
		Catalog:      restaurants,
		ExportDir:    cfg.Exports.Path,
	}, baseLogger)

	startMetrics(ctx, cfg, logger)

	err = startServers(ctx, grpcServer, httpServer, cfg, logger)
	stop()
	dispatcher.Wait()
	return err
}

// subscribeAuditLog writes every booking and availability event to the log.
func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	types := []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingSeated,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
		events.EventBookingNoShow,
		events.EventBookingTableAssigned,
		events.EventWalkInCreated,
		events.EventAvailabilityUpdated,
	}
	for _, t := range types {
		bus.Subscribe(t, func(e *events.Event) error {
			logger.Debug().Str("event", e.Type).RawJSON("payload", e.Payload).Msg("event published")
			return nil
		})
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*stores, error) {
	path := cfg.Database.Path
	if path == "" {
		path = defaultSyncQueuePath
	}
	db, err := database.NewDB(path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", path).Msg("init database")
		return nil, err
	}

	if cfg.Database.Driver != config.DriverMongo {
		return &stores{bookings: db, availability: db, sqlite: db, closeFn: func() { db.Close() }}, nil
	}

	store, err := docstore.Connect(ctx, cfg.Database.Mongo.URI, cfg.Database.Mongo.Database, logging.Component(logger, "docstore"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &stores{
		bookings:     store,
		availability: store,
		sqlite:       db,
		closeFn: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(closeCtx)
			db.Close()
		},
	}, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initCache returns the backend of both the availability cache and the
// booking rate limit.
func initCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) repository.Backend {
	memory := repository.NewMemoryCache(cfg.Cache.AvailabilityTTL)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverCache(
		repository.NewRedisCache(redisClient, cfg.Cache.AvailabilityTTL),
		memory,
		logging.Component(logger, "cache"),
	)
}

func initLocker(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.SlotLocker {
	if cfg.Booking.DistributedLocks && redisClient != nil {
		return lock.NewRedisLocker(redisClient, cfg.Booking.LockTTL, logging.Component(logger, "lock"))
	}
	return lock.NewLocalLocker()
}

func initNotifications(cfg *config.Config, publisher domain.EventPublisher, restaurants *catalog.StaticCatalog, logger *zerolog.Logger) *notify.Dispatcher {
	sinks := []notify.Sink{notify.NewEventSink(publisher)}

	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, staff alerts disabled")
		} else {
			bot.Debug = cfg.Telegram.Debug
			logger.Info().Str("bot", bot.Self.UserName).Msg("telegram staff alerts enabled")
			sinks = append(sinks, notify.NewTelegramSink(bot, restaurants))
		}
	}

	return notify.NewDispatcher(cfg.Booking.NotifyQueueSize, 10*time.Second, logger, sinks...)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID, cfg.Google.BookingsSheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets warm-up failed")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// resync rewrites the whole bookings sheet, newest bookings first.
func resync(ctx context.Context, repo domain.BookingRepository, sheetsService *google.SheetsService, logger *zerolog.Logger) error {
	if sheetsService == nil {
		return errors.New("google sheets are not configured")
	}
	bookings, err := repo.ListBookings(ctx, models.BookingFilter{})
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}
	if err := sheetsService.ReplaceBookingsSheet(ctx, bookings); err != nil {
		return fmt.Errorf("replace sheet: %w", err)
	}
	logger.Info().Int("bookings", len(bookings)).Msg("bookings sheet rewritten")
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Serve(); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
