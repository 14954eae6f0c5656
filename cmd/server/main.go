package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"estatehub/server/config"
	"estatehub/server/internal/api"
	"estatehub/server/internal/auth"
	"estatehub/server/internal/catalog"
	"estatehub/server/internal/database"
	"estatehub/server/internal/logging"
	"estatehub/server/internal/messaging"
	"estatehub/server/internal/metrics"
	"estatehub/server/internal/models"
	"estatehub/server/internal/processor"
	"estatehub/server/internal/queue"
	"estatehub/server/internal/remote"
	"estatehub/server/internal/storage"
)

type localStore interface {
	storage.KeyValueStore
	Close() error
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local, err := openLocalStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open local storage")
	}
	defer local.Close()

	docs, closeRemote := openRemoteStore(ctx, cfg, logger)
	defer closeRemote()

	m := metrics.New()
	adapter := storage.NewAdapter(docs, local, logger, storage.Options{
		LocalOnly:     cfg.Storage.Type == config.StorageLocalStorage,
		DocumentID:    cfg.Storage.DocumentID,
		RemoteTimeout: cfg.Storage.RemoteTimeout,
		Observer:      m,
	})
	adapter.Initialize(ctx)
	logger.WithField("mode", adapter.Mode()).Info("Storage ready")

	events := queue.NewEventQueue(cfg.Events.QueueSize, logger)
	publisher, closeNATS := openPublisher(cfg, logger)
	defer closeNATS()
	eventProcessor := processor.NewEventProcessor(publisher, events, processor.Settings{
		MaxRetries: cfg.Events.MaxRetries,
		RetryDelay: cfg.Events.RetryDelay,
	}, m, logger)
	eventProcessor.Start()
	events.Start()

	svc := catalog.New(adapter, events, logger, nil)
	seedCatalog(ctx, cfg, svc, logger)

	authn := auth.NewManager(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if !authn.Enabled() {
		logger.Warn("ADMIN_PASSWORD or JWT_SECRET not set, admin routes are disabled")
	}

	router := api.NewRouter(api.NewHandler(svc, authn, logger), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	if err := eventProcessor.Shutdown(); err != nil {
		logger.WithError(err).Error("Failed to flush listing events")
	}
}

func openLocalStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (localStore, error) {
	if cfg.Storage.LocalStore == config.LocalRedis {
		kv, err := database.NewRedisKV(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis local storage")
		return kv, nil
	}

	logger.Infof("Using database at: %s", cfg.SQLite.Path)
	db, err := database.NewDatabase(cfg.SQLite.Path, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openRemoteStore returns a nil store when the remote is disabled or unreachable; the
// adapter then runs local-only.
func openRemoteStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.DocumentStore, func()) {
	switch cfg.Storage.Type {
	case config.StorageJSONBin:
		return remote.NewJSONBinClient(cfg.JSONBin.BaseURL, cfg.JSONBin.MasterKey, logger), func() {}
	case config.StorageMongo:
		store, err := remote.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		if err != nil {
			logger.WithError(err).Warn("MongoDB unavailable, falling back to local storage")
			return nil, func() {}
		}
		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				logger.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}
	default:
		return nil, func() {}
	}
}

// openPublisher connects to NATS when configured. Without NATS, events are only logged.
func openPublisher(cfg *config.Config, logger *logrus.Logger) (processor.Publisher, func()) {
	if cfg.NATS.URL == "" {
		return logPublisher{logger: logger}, func() {}
	}

	nc, err := messaging.Connect(cfg.NATS.URL, logger)
	if err != nil {
		logger.WithError(err).Warn("NATS unavailable, listing events will only be logged")
		return logPublisher{logger: logger}, func() {}
	}

	publisher, err := messaging.NewPublisher(nc, cfg.NATS.Subject)
	if err != nil {
		nc.Close()
		logger.WithError(err).Warn("Failed to create NATS publisher")
		return logPublisher{logger: logger}, func() {}
	}
	return publisher, func() { drain(nc, logger) }
}

func drain(nc *nats.Conn, logger *logrus.Logger) {
	if err := nc.Drain(); err != nil {
		logger.WithError(err).Warn("Failed to drain NATS connection")
		nc.Close()
	}
}

// seedCatalog stores the sample listings when the collection is empty.
func seedCatalog(ctx context.Context, cfg *config.Config, svc *catalog.Service, logger *logrus.Logger) {
	if !cfg.SeedSamples {
		return
	}
	listings, err := config.LoadSeedListings(cfg.SeedFile)
	if errors.Is(err, os.ErrNotExist) && cfg.SeedFile == "" {
		logger.WithField("path", config.DefaultSeedPath).Info("No sample listings bundled, skipping seed")
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to load seed listings")
		return
	}
	res := svc.Seed(ctx, listings)
	if !res.OK() {
		logger.WithError(res.Err).Error("Failed to seed listings")
	}
}

type logPublisher struct {
	logger *logrus.Logger
}

func (p logPublisher) Publish(ctx context.Context, event models.ListingEvent) error {
	p.logger.WithFields(logrus.Fields{
		"event":      event.Type,
		"listing_id": event.ListingID,
		"source":     event.Source,
	}).Info("Listing event")
	return nil
}
