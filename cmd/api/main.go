// Package main is the entry point for the event tracker API server and stream consumer.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/event-tracker/internal/config"
	"github.com/capitalize-ai/event-tracker/internal/handler"
	natsclient "github.com/capitalize-ai/event-tracker/internal/nats"
	"github.com/capitalize-ai/event-tracker/internal/service"
	"github.com/capitalize-ai/event-tracker/internal/store"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
	"github.com/capitalize-ai/event-tracker/pkg/tracing"
)

const serviceName = "event-tracker"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.NewForFormat(logger.Format(cfg.LogFormat), cfg.LogLevel, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("event tracker stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting event tracker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Open database
	db, err := store.Open(ctx, store.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(); err != nil {
			return err
		}
		log.Info("database migrated", zap.String("driver", cfg.DBDriver))
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(natsclient.Config{
		Name:     serviceName,
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log.Named("nats"))
	if err != nil {
		return err
	}
	defer natsClient.Close()

	// Ensure JetStream stream exists
	streamManager := natsclient.NewStreamManager(natsClient, natsclient.StreamConfig{
		Name:          cfg.NATSStream,
		SubjectPrefix: cfg.NATSSubject,
	})
	if err := streamManager.EnsureStream(ctx); err != nil {
		return err
	}

	// Initialize services
	classifier := service.NewClassifier(db, log.Named("classifier"))
	if err := classifier.Load(ctx); err != nil {
		return err
	}
	duplicates := service.NewDuplicateChecker(db)
	querySvc := service.NewQueryService(db, classifier, log.Named("query"))
	ingestor := service.NewIngestor(db, duplicates, classifier, log.Named("ingest"))

	consumer := natsclient.NewConsumer(streamManager, natsclient.ConsumerConfig{
		Durable:    cfg.ConsumerName,
		Workers:    cfg.ConsumerWorkers,
		MaxDeliver: cfg.ConsumerMaxDeliver,
		AckWait:    cfg.ConsumerAckWait,
	}, ingestor.Handle, log.Named("consumer"))

	// Create router
	router := handler.NewRouter(handler.RouterConfig{
		Health:            handler.NewHealthHandler(natsClient, db),
		Messages:          handler.NewMessageHandler(querySvc, duplicates, log),
		Conversations:     handler.NewConversationHandler(querySvc, log),
		Facets:            handler.NewFacetHandler(querySvc, log),
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.AllowedOrigins,
		Logger:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return consumer.Run(gctx)
	})

	g.Go(func() error {
		querySvc.RefreshFacetsEvery(gctx, cfg.FacetsRefreshInterval)
		return nil
	})

	// Wait for shutdown signal or a failed component
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	if drainErr := natsClient.Drain(); drainErr != nil {
		log.Warn("failed to drain NATS connection", zap.Error(drainErr))
	}
	log.Info("event tracker stopped")
	return err
}
