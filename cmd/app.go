package cmd

import (
	"context"

	"github.com/tristendillon/diagify/core/catalog"
	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/executor"
	"github.com/tristendillon/diagify/core/llm"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/models"
	"github.com/tristendillon/diagify/core/pipeline"
	"github.com/tristendillon/diagify/core/storage"
	"github.com/tristendillon/diagify/core/store"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeConfig, "failed to load config")
	}
	return cfg, nil
}

// app holds everything one command needs to run the pipeline.
type app struct {
	cfg      *config.Config
	db       *store.DB
	cache    *catalog.Cache
	catalog  *models.Catalog
	client   llm.Client
	pipeline *pipeline.Pipeline
}

// openState opens the state database. Without it runs still work, minus the
// catalog cache and history.
func openState(cfg *config.Config) *store.DB {
	db, err := store.Open(cfg.State.Dir)
	if err != nil {
		logger.Warn("State database unavailable, continuing without cache and history: %v", err)
		return nil
	}
	return db
}

func loadCatalog(ctx context.Context, cfg *config.Config, db *store.DB) (*models.Catalog, *catalog.Cache, error) {
	var cache *catalog.Cache
	if db != nil {
		cache = catalog.NewCache(db)
	}
	cat, err := catalog.Load(ctx, cfg.Catalog, cache)
	if err != nil {
		return nil, cache, err
	}
	logger.Info("Loaded %d %s types (version %s)", cat.Len(), cat.Package, orUnknown(cat.Version))
	if cache != nil {
		cache.LogStats()
	}
	return cat, cache, nil
}

// newApp checks the credential first so a missing key fails before any
// catalog build or network call. requestsPerMinute <= 0 disables throttling.
func newApp(ctx context.Context, cfg *config.Config, dest string, requestsPerMinute float64) (*app, error) {
	key, err := cfg.RequireCredential()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, db: openState(cfg)}

	a.catalog, a.cache, err = loadCatalog(ctx, cfg, a.db)
	if err != nil {
		a.Close()
		return nil, err
	}

	client, err := llm.New(ctx, cfg.Provider, key)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = llm.NewRateLimited(client, requestsPerMinute)

	var opts []pipeline.Option
	if a.db != nil {
		opts = append(opts, pipeline.WithHistory(a.db))
	}
	if storage.IsRemote(dest) {
		bucket, _, ok := storage.ParseS3URL(dest)
		if !ok {
			a.Close()
			return nil, derrors.Newf(derrors.CodeConfig, "invalid output URL %q", dest)
		}
		objects, err := storage.NewS3Store(ctx, bucket, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, derrors.Wrap(err, derrors.CodeStorage, "failed to set up object store")
		}
		opts = append(opts, pipeline.WithObjectStore(objects))
	}

	runner := executor.New(executor.OptionsFromConfig(cfg.Execution))
	a.pipeline = pipeline.New(cfg, a.client, a.catalog, runner, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
