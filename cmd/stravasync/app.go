package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/multierr"

	"strava_sync/internal/auth"
	"strava_sync/internal/config"
	"strava_sync/internal/metrics"
	"strava_sync/internal/publisher"
	"strava_sync/internal/retry"
	"strava_sync/internal/service"
	"strava_sync/internal/source/strava"
	"strava_sync/internal/storage/csvfile"
	"strava_sync/internal/storage/postgres"
)

// app holds the resources of one command run and closes them in reverse
// order of creation.
type app struct {
	closers []io.Closer
}

func (a *app) onClose(c io.Closer) {
	a.closers = append(a.closers, c)
}

func (a *app) close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	return err
}

// finish closes the resources and pushes the run metrics.
func (a *app) finish(ctx context.Context, runErr error) error {
	err := multierr.Append(runErr, a.close())

	if cfg.Metrics.PushGatewayURL != "" {
		if pushErr := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushGatewayURL, cfg.Metrics.Job); pushErr != nil {
			logger.Warn("failed to push metrics", "error", pushErr)
		}
	}
	return err
}

func (a *app) stravaClient(ctx context.Context, scope string) (*strava.Client, error) {
	provider := auth.NewProvider(cfg.Auth, os.Stdin, os.Stdout, logger)
	httpClient, err := provider.Client(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("authorize: %w", err)
	}

	return strava.NewClient(httpClient, strava.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		PollInterval: cfg.API.UploadPollInterval,
	}, logger), nil
}

func (a *app) executor() *retry.Executor {
	return retry.New(cfg.Retry.RateLimitDelay, retry.RateLimited, logger)
}

// activityStore opens the record store selected in the config. csvPath is
// only used by the csv driver.
func (a *app) activityStore(csvPath string) (service.ActivityStore, service.RunRecorder, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := sqlx.Connect("postgres", cfg.Store.Database.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		a.onClose(db)
		logger.Info("connected to database", "host", cfg.Store.Database.Host, "dbname", cfg.Store.Database.DBName)
		return postgres.NewActivityStore(db), postgres.NewExportRunStore(db), nil
	default:
		if csvPath == "" {
			return nil, nil, fmt.Errorf("a record file is required for the %s store", config.StoreDriverCSV)
		}
		store := csvfile.NewActivityStore(csvPath)
		a.onClose(store)
		return store, nil, nil
	}
}

// publisher returns nil when publishing is disabled.
func (a *app) publisher() (service.Publisher, error) {
	if !cfg.RabbitMQ.Enabled {
		return nil, nil
	}

	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.onClose(rabbitMQ)
	return rabbitMQ, nil
}
