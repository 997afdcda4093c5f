package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/freelance-payments/internal"
	"github.com/frahmantamala/freelance-payments/internal/core/events"
	"github.com/frahmantamala/freelance-payments/internal/payment"
	paymentpostgres "github.com/frahmantamala/freelance-payments/internal/payment/postgres"
	"github.com/frahmantamala/freelance-payments/internal/paymentgateway"
	"github.com/frahmantamala/freelance-payments/internal/transport"
	"github.com/frahmantamala/freelance-payments/internal/transport/rest"
	"github.com/frahmantamala/freelance-payments/pkg/logger"
	"github.com/frahmantamala/freelance-payments/pkg/mq"
)

const (
	shutdownTimeout = 30 * time.Second
	sentryFlush     = 2 * time.Second
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle payment API requests and gateway webhooks`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	DB        *sqlx.DB
	Router    *chi.Mux
	EventBus  *events.EventBus
	Publisher *mq.Publisher
	Logger    *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.close(ctx)
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// close drains in-flight event handlers before releasing what they use.
func (d *Dependencies) close(ctx context.Context) {
	if err := d.EventBus.Wait(ctx); err != nil {
		d.Logger.Warn("event handlers still running at shutdown", "error", err)
	}
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Error("Message publisher close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
	sentry.Flush(sentryFlush)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Configure(os.Stdout, config.Observability.Logging.Format, config.Observability.Logging.Level)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	anomalies := payment.MultiAnomalyReporter{payment.NewSlogAnomalyReporter(log)}
	if dsn := config.Observability.Sentry.DSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.Observability.Sentry.Environment,
		}); err != nil {
			log.Error("sentry init error", "error", err)
		} else {
			anomalies = append(anomalies, payment.NewSentryAnomalyReporter(sentry.CurrentHub()))
		}
	}

	eventBus := events.NewEventBus(log, events.WithHandlerTimeout(config.Messaging.PublishTimeout))
	eventBus.Subscribe(events.EventTypePaymentPaid, events.LogHandler(log))

	var publisher *mq.Publisher
	if url := config.Messaging.AMQPURL; url != "" {
		publisher, err = mq.NewPublisher(url, config.Messaging.Exchange, log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize message publisher: %w", err)
		}
		eventBus.Subscribe(events.EventTypePaymentPaid, events.ForwardTo(publisher, log))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := payment.NewMetrics(registry)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:       config.Payment.BaseURL,
		KeyID:         config.Payment.KeyID,
		KeySecret:     config.Payment.KeySecret,
		WebhookSecret: config.Payment.WebhookSecret,
		Timeout:       config.Payment.Timeout,
	}, log)

	paymentService := payment.NewService(
		paymentpostgres.NewPaymentRepository(gormDB),
		gateway,
		eventBus,
		anomalies,
		metrics,
		config.Payment.Currency,
		log,
	)

	base := transport.NewBaseHandler(log)
	routes := rest.Routes{
		DB:       db,
		Payments: payment.NewHandler(base, paymentService),
		Webhooks: payment.NewWebhookHandler(base, paymentService),
		Logger:   log,
	}
	if publisher != nil {
		routes.Checks = map[string]rest.CheckFunc{"amqp": publisher.Ping}
	}
	if config.Observability.Metrics.Enabled {
		routes.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		routes.MetricsPath = config.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, routes)

	return &Dependencies{
		Config:    config,
		DB:        db,
		Router:    router,
		EventBus:  eventBus,
		Publisher: publisher,
		Logger:    log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}
