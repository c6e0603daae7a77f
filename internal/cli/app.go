package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/safeprotest/factcheck/internal/cache"
	"github.com/safeprotest/factcheck/internal/factcheck"
	"github.com/safeprotest/factcheck/internal/llm"
	"github.com/safeprotest/factcheck/internal/logging"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/sources"
	"github.com/safeprotest/factcheck/internal/store"
	"github.com/safeprotest/factcheck/internal/store/firestore"
	"github.com/safeprotest/factcheck/internal/store/memory"
	"github.com/safeprotest/factcheck/internal/store/sqlite"
)

// app bundles what every store-backed command needs
type app struct {
	cfg    *model.Config
	store  store.Store
	svc    *factcheck.Service
	logger *slog.Logger
}

// newApp loads config, opens the store and builds the service. Extra
// options are applied after the config-derived ones.
func newApp(ctx context.Context, opts ...factcheck.Option) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, newLogger(cfg), opts...)
}

func buildApp(ctx context.Context, cfg *model.Config, logger *slog.Logger, opts ...factcheck.Option) (*app, error) {

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	base := []factcheck.Option{
		factcheck.WithLogger(logger),
		factcheck.WithMaxClaimLength(cfg.Scoring.MaxClaimLength),
		factcheck.WithRecheckOnVote(cfg.FactCheck.RecheckOnVote),
	}
	if cfg.Sources.Inspect {
		base = append(base, factcheck.WithInspector(newInspector(cfg.Sources, cfg.Workers, logger)))
	}

	return &app{
		cfg:    cfg,
		store:  st,
		svc:    factcheck.New(st, append(base, opts...)...),
		logger: logger,
	}, nil
}

// Close releases the store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func newLogger(cfg *model.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Log.Verbose, cfg.Log.Format)
}

// openStore opens the configured backend
func openStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		st, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, fmt.Errorf("store.firestore_project is required for the firestore driver")
		}
		st, err := firestore.NewStore(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials, cfg.FirestoreCollection)
		if err != nil {
			return nil, fmt.Errorf("open firestore store: %w", err)
		}
		return st, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s (use sqlite, firestore or memory)", cfg.Driver)
	}
}

// newInspector builds the source previewer. Previews are cached in memory,
// and on disk too when sources.cache_dir is set.
func newInspector(cfg model.SourcesConfig, workers int, logger *slog.Logger) *sources.Inspector {
	var c cache.Cache
	if cfg.CacheDir != "" {
		dir := cfg.CacheDir
		if strings.HasPrefix(dir, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, dir[2:])
			}
		}
		c = cache.NewMemoryDiskCache(cfg.CacheTTL, dir, cfg.CacheTTL)
	} else {
		c = cache.NewMemoryCache(cfg.CacheTTL, cfg.CacheTTL)
	}

	return sources.NewInspector(cfg,
		sources.WithCache(c),
		sources.WithLogger(logger),
		sources.WithWorkers(workers),
	)
}

// newSummarizer builds the narrative generator; provider "" disables it
func newSummarizer(cfg model.LLMConfig) (*llm.Summarizer, error) {
	s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, fmt.Errorf("configure llm: %w", err)
	}
	return s, nil
}
