package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stanstork/sponsordesk-api/internal/campaign"
	"github.com/stanstork/sponsordesk-api/internal/config"
	"github.com/stanstork/sponsordesk-api/internal/derivation"
	"github.com/stanstork/sponsordesk-api/internal/handlers"
	"github.com/stanstork/sponsordesk-api/internal/identity"
	"github.com/stanstork/sponsordesk-api/internal/middleware"
	"github.com/stanstork/sponsordesk-api/internal/migration"
	"github.com/stanstork/sponsordesk-api/internal/notification"
	"github.com/stanstork/sponsordesk-api/internal/repository"
	"github.com/stanstork/sponsordesk-api/internal/routes"
	"github.com/stanstork/sponsordesk-api/internal/temporal"
	"github.com/stanstork/sponsordesk-api/internal/temporal/workflows"
	"github.com/stanstork/sponsordesk-api/internal/worker"
	tc "go.temporal.io/sdk/client"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	logger         zerolog.Logger
	hub            *notification.Hub
	notifications  notification.Service
	campaigns      *campaign.Service
	identity       *identity.Service
	engine         *derivation.Engine
	scheduler      *derivation.Scheduler
	temporalClient tc.Client
	temporalWorker *worker.Worker
	closers        []io.Closer
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := bootstrap()

	db := openDB(cfg, logger)
	defer db.Close()

	if err := migration.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	app := newApplication(cfg, db, logger)
	defer app.close()

	app.startScheduling()

	router := app.initRouter()
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(corsHandler)
	logger.Info().Msg("Application terminated.")
	return nil
}

// newApplication builds repositories, services and notifiers.
func newApplication(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *application {
	app := &application{config: cfg, db: db, logger: logger}

	campaignRepo := repository.NewCampaignRepository(db)
	app.hub = notification.NewHub(logger)
	app.notifications = notification.NewService(
		repository.NewNotificationRepository(db),
		repository.NewSettingsRepository(db),
		logger,
		app.notifiers()...,
	)
	app.campaigns = campaign.NewService(campaignRepo, app.notifications, logger)
	app.engine = derivation.NewEngine(campaignRepo, app.notifications, logger)

	var mailer identity.ConfirmationMailer
	if cfg.Auth.RequireEmailConfirmation {
		smtpMailer, err := identity.NewSMTPMailer(cfg.Email)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure confirmation mailer")
		}
		mailer = smtpMailer
	}
	app.identity = identity.NewService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		mailer,
		identity.Options{
			JWTSecret:                cfg.Auth.JWTSecret,
			TokenTTL:                 cfg.Auth.TokenTTL,
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
			ConfirmURLTemplate:       cfg.Auth.ConfirmURLTemplate,
		},
		logger,
	)

	app.scheduler = derivation.NewScheduler(campaignRepo, app.runner(), cfg.Derivation.Interval, cfg.Derivation.InitialScan, logger)
	return app
}

// notifiers returns the websocket hub plus every configured outbound channel.
func (app *application) notifiers() []notification.Notifier {
	out := []notification.Notifier{app.hub}

	if url := app.config.Broker.AMQPURL; url != "" {
		n, err := notification.NewAMQPNotifier(url, app.config.Broker.AMQPExchange, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("failed to connect AMQP notifier")
		}
		out = append(out, n)
		app.closers = append(app.closers, n)
	}
	if url := app.config.Broker.NATSURL; url != "" {
		n, err := notification.NewNATSNotifier(url, app.config.Broker.NATSSubject, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("failed to connect NATS notifier")
		}
		out = append(out, n)
		app.closers = append(app.closers, n)
	}
	if app.config.Email.NotifyHighPriority {
		n, err := notification.NewEmailNotifier(app.config.Email, app.logger)
		if err != nil {
			app.logger.Fatal().Err(err).Msg("failed to configure email notifier")
		}
		out = append(out, n)
	}
	return out
}

// runner picks in-process scans or Temporal workflows.
func (app *application) runner() derivation.Runner {
	if app.config.Derivation.Mode != config.DerivationModeTemporal {
		return derivation.LocalRunner{Engine: app.engine}
	}

	temporalClient, err := tc.Dial(tc.Options{
		HostPort:  app.config.Temporal.HostPort,
		Namespace: app.config.Temporal.Namespace,
		Logger:    temporal.NewTemporalAdapter(app.logger),
	})
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	app.temporalClient = temporalClient
	app.temporalWorker = worker.NewWorker(worker.WorkerConfig{
		Client:             temporalClient,
		TaskQueue:          app.config.Temporal.TaskQueue,
		Scanner:            app.engine,
		MaxConcurrentScans: app.config.Temporal.MaxConcurrentScans,
	}, app.logger)

	return workflows.NewDispatcher(temporalClient, app.config.Temporal.TaskQueue, app.config.Derivation.Interval, app.logger)
}

func (app *application) startScheduling() {
	if app.temporalWorker != nil {
		if err := app.temporalWorker.Start(); err != nil {
			app.logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter() http.Handler {
	limiter := middleware.NewRateLimiter(app.config.Auth.RateLimit, app.config.Auth.RateBurst)

	hs := routes.Handlers{
		Auth:          handlers.NewAuthHandler(app.identity, app.scheduler, app.logger),
		Campaigns:     handlers.NewCampaignHandler(app.campaigns, app.logger),
		Notifications: handlers.NewNotificationHandler(app.notifications, app.scheduler, app.logger),
		Stream:        handlers.NewStreamHandler(app.hub, app.config.AllowedOrigins, app.logger),
		Finance:       handlers.NewFinanceHandler(app.campaigns, app.logger),
		Health:        handlers.HealthCheck(app.db),
	}
	return routes.NewRouter(hs, app.identity, limiter)
}

// startServer launches the HTTP server and the scheduler and handles graceful shutdown.
func (app *application) startServer(handler http.Handler) {
	logger := app.logger
	server := &http.Server{
		Addr:              ":" + app.config.ServerPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		app.scheduler.Run(schedCtx)
	}()

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	stopScheduler()
	<-schedDone
}

func (app *application) close() {
	if app.temporalWorker != nil {
		app.temporalWorker.Stop()
	}
	if app.temporalClient != nil {
		app.temporalClient.Close()
	}
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			app.logger.Warn().Err(err).Msg("failed to close notifier")
		}
	}
}
