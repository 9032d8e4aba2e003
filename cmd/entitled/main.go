package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entitledhq/entitled/httpapi"
	"github.com/entitledhq/entitled/pkg/config"
	"github.com/entitledhq/entitled/pkg/email"
	"github.com/entitledhq/entitled/pkg/httpserver"
	"github.com/entitledhq/entitled/pkg/logger"
	"github.com/entitledhq/entitled/pkg/pg"
	"github.com/entitledhq/entitled/pkg/redis"
	"github.com/entitledhq/entitled/subscription"
	"github.com/entitledhq/entitled/subscription/pgstore"
	"github.com/entitledhq/entitled/subscription/redisstore"
)

type appConfig struct {
	Env        string `env:"APP_ENV" envDefault:"production"`
	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	UpgradeURL string `env:"UPGRADE_URL,required"`

	// EmailDevDir switches transition notices from Postmark to on-disk
	// delivery, for local development without a provider token.
	EmailDevDir string `env:"EMAIL_DEV_DIR"`

	// LockLease bounds how long one webhook delivery can hold a customer's
	// processing lock before a competing worker may take over.
	LockLease time.Duration `env:"BILLING_LOCK_LEASE" envDefault:"30s"`
	DedupTTL  time.Duration `env:"BILLING_DEDUP_TTL" envDefault:"72h"`

	PG         pg.Config
	Redis      redis.Config
	Email      email.Config
	Processor  subscription.ProcessorConfig
	Gate       subscription.GateConfig
	Enrollment subscription.EnrollmentConfig
	Reconciler subscription.ReconcilerConfig
}

func main() {
	if err := run(); err != nil {
		slog.Error("service exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.WithEnvironment(cfg.Env, "entitled"))
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	sender, err := emailSender(cfg)
	if err != nil {
		return fmt.Errorf("configure email: %w", err)
	}

	store := pgstore.NewAccountStore(pool)
	ledger := pgstore.NewEventLedger(pool)
	transitions := pgstore.NewTransitionLog(pool)
	locker := redisstore.NewLocker(redisClient, cfg.LockLease)
	dedup := redisstore.NewDedupCache(redisClient, cfg.DedupTTL)
	fingerprints := redisstore.NewFingerprintIndex(redisClient, 0)

	processor := subscription.NewProcessor(cfg.Processor, store, ledger, locker,
		subscription.WithDedupFilter(dedup),
		subscription.WithTransitionRecorder(transitions),
		subscription.WithNotifier(subscription.NewEmailNotifier(sender, log)),
		subscription.WithProcessorLogger(log),
	)

	gate := subscription.NewGate(cfg.Gate, store, subscription.WithGateLogger(log))

	enrollment := subscription.NewEnrollment(cfg.Enrollment, store,
		subscription.WithRiskSignalSource(subscription.NewStoredSignalSource(transitions, fingerprints)),
		subscription.WithEnrollmentLogger(log),
	)

	reconciler := subscription.NewReconciler(cfg.Reconciler, ledger,
		subscription.WithReconcilerLogger(log))

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Gate:       gate,
		Processor:  processor,
		Enrollment: enrollment,
		UpgradeURL: cfg.UpgradeURL,
		Logger:     log,
		ReadinessChecks: []func(context.Context) error{
			pg.Healthcheck(pool),
			redis.Healthcheck(redisClient),
		},
	})

	srv := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithReadTimeout(10*time.Second),
		httpserver.WithWriteTimeout(30*time.Second),
		httpserver.WithIdleTimeout(2*time.Minute),
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		}),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reconciler.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, router) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func emailSender(cfg appConfig) (email.EmailSender, error) {
	if cfg.EmailDevDir != "" {
		return email.NewDevSender(cfg.EmailDevDir), nil
	}
	return email.NewPostmarkClient(cfg.Email)
}
