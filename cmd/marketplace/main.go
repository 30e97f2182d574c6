package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/Caskiuz/nemy-marketplace/internal/audit"
	"github.com/Caskiuz/nemy-marketplace/internal/config"
	"github.com/Caskiuz/nemy-marketplace/internal/handler"
	"github.com/Caskiuz/nemy-marketplace/internal/metrics"
	"github.com/Caskiuz/nemy-marketplace/internal/notifier"
	"github.com/Caskiuz/nemy-marketplace/internal/server"
	"github.com/Caskiuz/nemy-marketplace/internal/settlement"
	"github.com/Caskiuz/nemy-marketplace/internal/storage"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(start())
}

func start() int {
	config, err := config.NewConfig()
	if err != nil {
		zap.L().Info("error create config", zap.Error(err))
		return 1
	}

	defer zap.L().Sync()

	db, err := sqlx.Connect("postgres", config.DatabaseURI)
	if err != nil {
		zap.L().Info("error failed to connect to db: %w", zap.Error(err))
		return 1
	}

	defer db.Close()

	postgresStorage, err := storage.NewPostgresStorage(db)
	if err != nil {
		zap.L().Info("error failed to create postgres storage: %w", zap.Error(err))
		return 1
	}

	var (
		serviceMetrics = metrics.New()
		statusNotifier = notifier.NewNotifier(
			config.WebhookAddress,
			config.BrokerList(),
			config.KafkaTopic,
			serviceMetrics,
		)
		engine  = settlement.NewEngine(postgresStorage, statusNotifier, serviceMetrics)
		auditor = audit.NewChecker(postgresStorage)
	)

	server := server.NewServer(config, handler.NewHandler(postgresStorage, engine, auditor), serviceMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := server.Start(); err != nil {
			zap.L().Info("error starting server", zap.Error(err))
			return err
		}

		return nil
	})

	eg.Go(func() error {
		if err := statusNotifier.Start(ctx); err != nil {
			zap.L().Info("error starting notifier", zap.Error(err))
			return err
		}

		return nil
	})

	<-ctx.Done()

	eg.Go(func() error {
		if err := server.Stop(); err != nil {
			zap.L().Info("error stopping server", zap.Error(err))
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return 1
	}

	return 0
}
