package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/payng/fee-payment-service/internal/adapters/arca"
	"github.com/payng/fee-payment-service/internal/adapters/directory"
	"github.com/payng/fee-payment-service/internal/adapters/flutterwave"
	"github.com/payng/fee-payment-service/internal/adapters/notify"
	"github.com/payng/fee-payment-service/internal/adapters/postgres"
	"github.com/payng/fee-payment-service/internal/adapters/secrets"
	"github.com/payng/fee-payment-service/internal/config"
	"github.com/payng/fee-payment-service/internal/domain/models"
	"github.com/payng/fee-payment-service/internal/domain/ports"
	paymentHandler "github.com/payng/fee-payment-service/internal/handlers/payment"
	webhookHandler "github.com/payng/fee-payment-service/internal/handlers/webhook"
	"github.com/payng/fee-payment-service/internal/middleware"
	"github.com/payng/fee-payment-service/internal/services/gateway"
	"github.com/payng/fee-payment-service/internal/services/ledger"
	paymentService "github.com/payng/fee-payment-service/internal/services/payment"
	"github.com/payng/fee-payment-service/internal/services/receipt"
	"github.com/payng/fee-payment-service/internal/services/reconcile"
	httpclient "github.com/payng/fee-payment-service/pkg/http"
	"github.com/payng/fee-payment-service/pkg/logging"
	pkgmiddleware "github.com/payng/fee-payment-service/pkg/middleware"
	"github.com/payng/fee-payment-service/pkg/observability"
	"github.com/payng/fee-payment-service/pkg/resilience"
	"github.com/payng/fee-payment-service/pkg/shutdown"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	zapLogger := initZap(cfg.Logger)
	defer zapLogger.Sync()
	logger := logging.NewZapLogger(zapLogger)

	logger.Info("starting fee payment service",
		ports.String("host", cfg.Server.Host),
		ports.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := initDatabase(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize database", ports.Err(err))
		os.Exit(1)
	}
	db := postgres.NewDBExecutor(pool)
	payments := postgres.NewPaymentRepository(db, logger)
	assignments := postgres.NewAssignmentRepository(db, logger)
	schedules := postgres.NewScheduleRepository(db)
	receipts := postgres.NewReceiptRepository(db, logger)

	if err := resolveGatewaySecrets(ctx, cfg, logger); err != nil {
		logger.Error("failed to resolve gateway secrets", ports.Err(err))
		os.Exit(1)
	}

	gatewayClient := httpclient.NewClient(httpclient.GatewayClientConfig(), 30*time.Second)
	internalClient := httpclient.NewClient(httpclient.InternalClientConfig(), 10*time.Second)

	var arcaAdapter *arca.Adapter
	if cfg.Arca.Configured() {
		arcaAdapter = arca.NewAdapter(arca.Config{
			APIKey:        cfg.Arca.APIKey,
			SecretKey:     cfg.Arca.SecretKey,
			WebhookSecret: cfg.Arca.WebhookSecret,
			BaseURL:       cfg.Arca.BaseURL,
		}, gatewayClient, logger)
	}
	var flwAdapter *flutterwave.Adapter
	if cfg.Flutterwave.Configured() {
		flwAdapter = flutterwave.NewAdapter(flutterwave.Config{
			PublicKey: cfg.Flutterwave.PublicKey,
			SecretKey: cfg.Flutterwave.SecretKey,
			BaseURL:   cfg.Flutterwave.BaseURL,
		}, gatewayClient, logger)
	}
	gateways := gateway.NewManager(arcaAdapter, flwAdapter, logger)

	dir := directory.NewClient(cfg.Directory.BaseURL, cfg.Directory.APIKey, internalClient, logger)
	senders := map[models.DeliveryChannel]ports.ChannelSender{}
	if cfg.Notify.BaseURL != "" {
		for _, channel := range models.DeliveryChannels {
			senders[channel] = notify.NewSender(cfg.Notify.BaseURL, cfg.Notify.APIKey, channel, internalClient, logger)
		}
	}

	ledgerSvc := ledger.NewService(db, payments, assignments, logger)
	dispatcher := receipt.NewDispatcher(payments, assignments, schedules, receipts, dir, senders, logger)
	reconciler := reconcile.NewService(db, payments, assignments, gateways, dispatcher, cfg.Jobs.StaleAfter, logger)
	paymentSvc := paymentService.NewService(ledgerSvc, reconciler, gateways, payments, cfg.Server.CallbackURL, logger)

	rateLimiter := pkgmiddleware.NewRateLimiter(50, 100)

	router := mux.NewRouter()
	router.Use(observability.HTTPMetricsMiddleware)
	router.Use(middleware.NewSecurityHeaders(cfg.Logger.Development).Middleware)
	router.Use(rateLimiter.Middleware)
	paymentHandler.NewHandler(paymentSvc, logger).Register(router)
	webhookHandler.NewHandler(reconciler, logger).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), pool)

	go runSweeps(ctx, cfg.Jobs, reconciler, ledgerSvc, logger)

	shutdownMgr := shutdown.NewManager(zapLogger, 15*time.Second)
	shutdownMgr.RegisterNoErr("database", pool.Close)
	shutdownMgr.Register("metrics_server", metricsServer.Shutdown)
	shutdownMgr.Register("http_server", server.Shutdown)
	shutdownMgr.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)

	go func() {
		logger.Info("http server listening", ports.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", ports.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownMgr.Shutdown()
}

// runSweeps drives the periodic reconciliation jobs: the stale-processing
// sweep and the overdue assignment transition.
func runSweeps(ctx context.Context, jobs config.JobsConfig, reconciler *reconcile.Service, ledgerSvc *ledger.Service, logger ports.Logger) {
	staleTicker := time.NewTicker(jobs.StaleSweepInterval)
	overdueTicker := time.NewTicker(jobs.OverdueInterval)
	defer staleTicker.Stop()
	defer overdueTicker.Stop()

	timeouts := resilience.DefaultTimeouts()

	for {
		select {
		case <-ctx.Done():
			return
		case <-staleTicker.C:
			sweepCtx, cancel := timeouts.SweepContext(ctx)
			if _, err := reconciler.ResolveStalePayments(sweepCtx); err != nil {
				logger.Error("stale payment sweep failed", ports.Err(err))
			}
			if _, err := reconciler.ResolveMissingReceipts(sweepCtx); err != nil {
				logger.Error("receipt recovery sweep failed", ports.Err(err))
			}
			cancel()
		case <-overdueTicker.C:
			sweepCtx, cancel := timeouts.SweepContext(ctx)
			if _, err := ledgerSvc.MarkOverdueAssignments(sweepCtx); err != nil {
				logger.Error("overdue sweep failed", ports.Err(err))
			}
			cancel()
		}
	}
}

// resolveGatewaySecrets fills gateway credentials from the configured
// secrets backend. With the "env" backend the environment values stand.
func resolveGatewaySecrets(ctx context.Context, cfg *config.Config, logger ports.Logger) error {
	var manager ports.SecretManager
	switch cfg.Secrets.Backend {
	case "env", "":
		return nil
	case "local":
		manager = secrets.NewLocalSecretManager(cfg.Secrets.LocalPath, logger)
	case "aws":
		var err error
		manager, err = secrets.NewAWSSecretsManagerAdapter(ctx,
			secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion), logger)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}

	load := func(path string, target *string) error {
		secret, err := manager.GetSecret(ctx, path)
		if err != nil {
			return err
		}
		*target = secret.Value
		return nil
	}

	if err := load("fee-payment-service/gateways/arca/secret-key", &cfg.Arca.SecretKey); err != nil {
		logger.Warn("arca secret key not found in secrets backend", ports.Err(err))
	}
	if err := load("fee-payment-service/gateways/arca/webhook-secret", &cfg.Arca.WebhookSecret); err != nil {
		logger.Warn("arca webhook secret not found in secrets backend", ports.Err(err))
	}
	if err := load("fee-payment-service/gateways/flutterwave/secret-key", &cfg.Flutterwave.SecretKey); err != nil {
		logger.Warn("flutterwave secret key not found in secrets backend", ports.Err(err))
	}

	if !cfg.Arca.Configured() && !cfg.Flutterwave.Configured() {
		return fmt.Errorf("no payment gateway configured after secret resolution")
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func initZap(cfg config.LoggerConfig) *zap.Logger {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapConfig.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
