// Package bootstrap is the composition root: every client handle is
// constructed once here and passed into the components that need it, so
// no package holds module-level connection state.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finvault/docclassify/internal/config"
	"github.com/finvault/docclassify/internal/core/ports"
	"github.com/finvault/docclassify/internal/core/usecase"
	"github.com/finvault/docclassify/internal/infrastructure/classifier"
	"github.com/finvault/docclassify/internal/infrastructure/contentstore/mongo"
	"github.com/finvault/docclassify/internal/infrastructure/extractor"
	"github.com/finvault/docclassify/internal/infrastructure/queue/jetstream"
	"github.com/finvault/docclassify/internal/infrastructure/repository/postgres"
	"github.com/finvault/docclassify/internal/infrastructure/resilience"
	"github.com/finvault/docclassify/internal/infrastructure/searchindex/elastic"
	"github.com/finvault/docclassify/internal/infrastructure/textproc"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      *jetstream.Queue
	Repo       ports.DocumentRepository
	Dispatcher ports.TaskDispatcher
	Processor  ports.TaskProcessor
	Persister  *usecase.PersistOutcomeUseCase

	closeFn func()
}

// Option tweaks composition before wiring, e.g. to bind metric hooks.
type Option func(*options)

type options struct {
	onDeadLetter func()
	onQueueLag   func(lag time.Duration)
	onRepair     func(store string)
}

func WithDeadLetterHook(hook func()) Option {
	return func(o *options) { o.onDeadLetter = hook }
}

func WithQueueLagHook(hook func(lag time.Duration)) Option {
	return func(o *options) { o.onQueueLag = hook }
}

func WithRepairHook(hook func(store string)) Option {
	return func(o *options) { o.onRepair = hook }
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	contentStore, closeContent, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init content store: %w", err)
	}

	searchIndex, err := elastic.New([]string{cfg.ElasticURL}, cfg.ElasticIndex)
	if err != nil {
		closeContent()
		_ = db.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}
	if err := searchIndex.EnsureIndex(ctx); err != nil {
		closeContent()
		_ = db.Close()
		return nil, fmt.Errorf("ensure search index: %w", err)
	}

	normalizer, err := textproc.New()
	if err != nil {
		closeContent()
		_ = db.Close()
		return nil, fmt.Errorf("init normalizer: %w", err)
	}

	// A worker without a loadable model cannot classify anything; this is
	// a fatal configuration error, not a silent default.
	engine, err := classifier.Load(
		cfg.ModelPath,
		classifier.WithCache(cfg.CacheSize, time.Duration(cfg.CacheTTLSec)*time.Second),
		classifier.WithBatching(cfg.BatchSize, cfg.VectorizePar),
	)
	if err != nil {
		closeContent()
		_ = db.Close()
		return nil, fmt.Errorf("load model artifact: %w", err)
	}
	logger.Info("model artifact loaded",
		"model_type", engine.ModelType(),
		"model_version", engine.Version(),
	)

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	queue, err := jetstream.New(cfg.NATSURL, jetstream.Options{
		StreamName:        cfg.StreamName,
		Subject:           cfg.TaskSubject,
		DeadLetterSubject: cfg.DeadLetterSubject,
		Durable:           cfg.ConsumerDurable,
		MaxDeliver:        cfg.MaxDeliver,
		TaskDeadline:      time.Duration(cfg.TaskTimeoutSec) * time.Second,
		Executor:          executor,
		OnDeadLetter:      o.onDeadLetter,
		OnQueueLag:        o.onQueueLag,
	}, logger)
	if err != nil {
		closeContent()
		_ = db.Close()
		return nil, fmt.Errorf("init task queue: %w", err)
	}

	persister := usecase.NewPersistOutcomeUseCase(repo, contentStore, searchIndex, logger)
	if o.onRepair != nil {
		persister.WithRepairHook(o.onRepair)
	}
	processor := usecase.NewProcessTaskUseCase(
		repo,
		extractor.NewRegistry(),
		normalizer,
		engine,
		persister,
		logger,
	)
	dispatcher := usecase.NewDispatchTaskUseCase(queue, processor, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Queue:      queue,
		Repo:       repo,
		Dispatcher: dispatcher,
		Processor:  processor,
		Persister:  persister,
		closeFn: func() {
			queue.Close()
			closeContent()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
