package main

import (
	"HealthScan/internal/aggregator"
	"HealthScan/internal/config"
	"HealthScan/internal/domain"
	notifier "HealthScan/internal/notifiers"
	probe "HealthScan/internal/probes"
	"HealthScan/internal/reporter"
	"HealthScan/internal/scheduler"
	"HealthScan/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Container wires the components for one process.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	Specs []domain.ProbeSpec
	Rules domain.RuleSet

	Factory    *probe.Factory
	Aggregator *aggregator.Aggregator
	History    storage.HistoryStore
	Dispatcher *notifier.Dispatcher
	Publisher  *reporter.Publisher
	Runner     *scheduler.Runner

	Redis *redis.Client
}

type RuntimeOptions struct {
	Format reporter.Format
	Stdout io.Writer
}

func NewContainer(ctx context.Context, cfg *config.Config, log *slog.Logger, opts RuntimeOptions) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: log,
		Specs:  cfg.ProbeSpecs(),
		Rules:  cfg.RuleSet(),
	}

	if err := container.initProbes(); err != nil {
		return nil, err
	}

	if err := container.initHistory(ctx); err != nil {
		container.Close()
		return nil, err
	}

	if err := container.initNotifiers(ctx); err != nil {
		container.Close()
		return nil, err
	}

	if err := container.initReporter(opts); err != nil {
		container.Close()
		return nil, err
	}

	container.initRunner()

	log.Debug("Dependency container initialized successfully")
	return container, nil
}

func (c *Container) initProbes() error {
	c.Factory = probe.NewDefaultFactory()
	if err := c.Factory.Supports(c.Specs); err != nil {
		return err
	}

	c.Aggregator = aggregator.New(c.Factory, c.Rules, aggregator.Options{
		Concurrency:  c.Config.Runner.Concurrency,
		ProbeTimeout: c.Config.Runner.ProbeTimeout,
	}, c.Logger)
	return nil
}

func (c *Container) initHistory(ctx context.Context) error {
	switch c.Config.History.Driver {
	case "sqlite":
		store, err := storage.NewSQLiteStore(ctx, c.Config.History.SQLitePath, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		c.History = store
	case "postgres":
		pool, err := storage.NewPostgres(ctx, &c.Config.Database, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		store, err := storage.NewReportStore(ctx, pool)
		if err != nil {
			pool.Close()
			return err
		}
		c.History = store
	default:
		c.History = storage.NewNopStore()
	}
	return nil
}

func (c *Container) initNotifiers(ctx context.Context) error {
	var sinks []notifier.Sink

	for _, s := range c.Config.Notify.Sinks {
		switch s.Type {
		case "log":
			sinks = append(sinks, notifier.NewLogSink(c.Logger))
		case "webhook":
			sinks = append(sinks, notifier.NewWebhookSink(s.URL, s.Secret, s.Timeout))
		case "redis":
			sinks = append(sinks, notifier.NewRedisSink(c.redisClient(ctx), s.Channel, s.List, s.ListSize))
		default:
			return fmt.Errorf("unknown sink type %q", s.Type)
		}
	}

	c.Dispatcher = notifier.NewDispatcher(sinks, c.Config.Notify.Timeout, c.Logger)
	return nil
}

// redisClient is created once and shared by every redis sink. An
// unreachable server only costs notifications, so a failed ping is logged
// and the sink keeps the client.
func (c *Container) redisClient(ctx context.Context) *redis.Client {
	if c.Redis != nil {
		return c.Redis
	}

	client := redis.NewClient(c.Config.Redis.GetRedisOptions())
	c.Redis = client

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		c.Logger.Warn("Redis is unreachable, redis notifications will fail", "addr", c.Config.Redis.Addr, "error", err)
		return client
	}

	c.Logger.Info("Connected to Redis", "addr", c.Config.Redis.Addr)
	return client
}

func (c *Container) initReporter(opts RuntimeOptions) error {
	writer, err := reporter.NewWriter(c.Config.Report.Destination)
	if err != nil {
		return err
	}

	format := opts.Format
	if format == "" {
		if format, err = reporter.ParseFormat(c.Config.Report.Format); err != nil {
			return err
		}
	}

	minSeverity, err := domain.ParseSeverity(c.Config.Notify.MinSeverity)
	if err != nil {
		return err
	}

	c.Publisher = reporter.NewPublisher(writer, c.History, c.Dispatcher, reporter.Options{
		Format:      format,
		MinSeverity: minSeverity,
		Stdout:      opts.Stdout,
		Keep:        c.Config.History.Keep,
	}, c.Logger)
	return nil
}

func (c *Container) initRunner() {
	c.Runner = scheduler.NewRunner(c.Aggregator, c.Publisher, c.Specs, scheduler.Options{
		CycleTimeout:   c.Config.Runner.CycleTimeout,
		PublishTimeout: c.Config.Runner.PublishTimeout,
	}, c.Logger)
}

// Close закрывает все соединения
func (c *Container) Close() error {
	var errs []error

	if c.History != nil {
		if err := c.History.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing dependencies: %w", err)
	}
	return nil
}
