// Package app builds the run context: configuration, logger, category
// indexes and every collaborator a batch needs. It is constructed once per
// process and is read-only afterwards.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
	"github.com/JakeFAU/poewiki-assets/internal/config"
	"github.com/JakeFAU/poewiki-assets/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/poewiki-assets/internal/fetcher/colly"
	"github.com/JakeFAU/poewiki-assets/internal/fetcher/headless"
	"github.com/JakeFAU/poewiki-assets/internal/id/uuid"
	"github.com/JakeFAU/poewiki-assets/internal/logging"
	"github.com/JakeFAU/poewiki-assets/internal/metrics"
	"github.com/JakeFAU/poewiki-assets/internal/resolver"
	"github.com/JakeFAU/poewiki-assets/internal/storage"
	"github.com/JakeFAU/poewiki-assets/internal/storage/gcs"
	"github.com/JakeFAU/poewiki-assets/internal/storage/local"
	"github.com/JakeFAU/poewiki-assets/internal/storage/memory"
)

// Renderer is a resolver.Renderer that owns a browser.
type Renderer interface {
	resolver.Renderer
	Close(ctx context.Context) error
}

// App holds the shared, long-lived services for one run.
type App struct {
	cfg         config.Config
	runID       string
	logger      *zap.Logger
	indexes     asset.Indexes
	renderer    Renderer
	mirror      storage.BlobStore
	closeMirror func() error
	resolver    *resolver.Resolver
	dispatcher  *dispatcher.Dispatcher
}

// Option customizes NewApp.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	renderer Renderer
}

// WithLogger replaces the logger built from config.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRenderer replaces the renderer built from config.
func WithRenderer(r Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// NewApp initializes every service from cfg. It fails fast when a required
// directory or the browser cannot be set up.
func NewApp(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	logger := o.logger
	if logger == nil {
		logger, err = logging.New(logging.Options{
			Development: cfg.Logging.Development,
			Level:       cfg.Logging.Level,
		})
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
	}
	logger = logging.ForRun(logger, runID)
	logger.Info("initializing run", zap.String("out", cfg.Out), zap.Int("requests", cfg.Requests.Len()))

	metrics.Init()

	// local.New creates the directory and verifies it is writable.
	if _, err := local.New(local.Config{BaseDir: cfg.Out}); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	assetDirs := make(map[asset.Category]string, len(asset.Categories))
	for _, cat := range asset.Categories {
		store, err := local.New(local.Config{BaseDir: cfg.AssetDir(cat)})
		if err != nil {
			return nil, fmt.Errorf("%s asset dir: %w", cat, err)
		}
		assetDirs[cat] = store.BaseDir()
	}
	indexes, err := LoadIndexes(assetDirs)
	if err != nil {
		return nil, err
	}
	for _, cat := range asset.Categories {
		logger.Debug("index built", zap.String("category", cat.String()), zap.Int("entries", indexes.For(cat).Len()))
	}

	a := &App{
		cfg:     cfg,
		runID:   runID,
		logger:  logger,
		indexes: indexes,
	}

	a.renderer = o.renderer
	if a.renderer == nil {
		a.renderer, err = newRenderer(cfg.Renderer, cfg.Wiki.UserAgent, logger.Named("renderer"))
		if err != nil {
			return nil, err
		}
	}

	resolverOpts := []resolver.Option{}
	if cfg.Wiki.Probe {
		resolverOpts = append(resolverOpts, resolver.WithProber(collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Wiki.UserAgent,
			RespectRobots: cfg.Wiki.RespectRobots,
			Timeout:       cfg.Wiki.ProbeTimeout,
		})))
	}
	a.mirror, a.closeMirror, err = newMirror(ctx, cfg.Mirror)
	if err != nil {
		a.closeRenderer(ctx)
		return nil, err
	}
	if a.mirror != nil {
		logger.Info("mirroring outputs",
			zap.String("bucket", cfg.Mirror.GCSBucket),
			zap.String("dir", cfg.Mirror.Dir),
			zap.Bool("dry_run", cfg.Mirror.DryRun),
		)
		resolverOpts = append(resolverOpts, resolver.WithMirror(a.mirror))
	}

	a.resolver = resolver.New(
		resolver.Config{OutDir: cfg.Out, AssetDirs: assetDirs, BaseURL: cfg.Wiki.BaseURL},
		indexes,
		a.renderer,
		local.NewCopier(),
		logger.Named("resolver"),
		resolverOpts...,
	)
	a.dispatcher = dispatcher.New(a.resolver, nil, logger.Named("dispatcher"))
	return a, nil
}

func newRenderer(cfg config.RendererConfig, userAgent string, logger *zap.Logger) (Renderer, error) {
	if !cfg.Enabled {
		logger.Warn("renderer disabled; cache misses will fail")
		return headless.NewNoop(), nil
	}
	r, err := headless.New(headless.Config{
		MaxParallel: cfg.MaxParallel,
		UserAgent:   userAgent,
		Timeout:     cfg.Timeout,
		DomainQPS:   cfg.DomainQPS,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	return r, nil
}

// newMirror picks the mirror backend. A dry run collects uploads in memory
// so nothing leaves the process. It returns a nil store when mirroring is off.
func newMirror(ctx context.Context, cfg config.MirrorConfig) (storage.BlobStore, func() error, error) {
	switch {
	case cfg.DryRun:
		return memory.NewBlobStore(), nil, nil
	case cfg.GCSBucket != "":
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{
			Bucket:       cfg.GCSBucket,
			Prefix:       cfg.Prefix,
			CacheControl: cfg.CacheControl,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("gcs mirror: %w", err)
		}
		return store, store.Close, nil
	case cfg.Dir != "":
		store, err := local.New(local.Config{BaseDir: filepath.Join(cfg.Dir, cfg.Prefix)})
		if err != nil {
			return nil, nil, fmt.Errorf("dir mirror: %w", err)
		}
		return store, nil, nil
	default:
		return nil, nil, nil
	}
}

// LoadIndexes lists each category directory and builds its index.
func LoadIndexes(dirs map[asset.Category]string) (asset.Indexes, error) {
	indexes := make(asset.Indexes, len(dirs))
	for cat, dir := range dirs {
		names, err := local.ListFilenames(dir)
		if err != nil {
			return nil, fmt.Errorf("%s index: %w", cat, err)
		}
		indexes[cat] = asset.BuildIndex(names)
	}
	return indexes, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// RunID returns the identifier attached to every log line of this run.
func (a *App) RunID() string {
	return a.runID
}

// Logger returns the run-scoped logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Indexes returns the read-only category indexes.
func (a *App) Indexes() asset.Indexes {
	return a.indexes
}

// Run dispatches every configured request and waits for the batch to settle.
// The metrics textfile is written afterwards when configured; a write failure
// is logged and does not affect the results.
func (a *App) Run(ctx context.Context) []asset.Result {
	results := a.dispatcher.Run(ctx, a.cfg.Requests)
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics textfile write failed", zap.String("path", path), zap.Error(err))
		}
	}
	return results
}

// Close shuts down the browser and the mirror client.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.renderer != nil {
		if err := a.renderer.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close renderer: %w", err))
		}
	}
	if dry, ok := a.mirror.(*memory.BlobStore); ok {
		a.logger.Info("dry run: mirror uploads skipped", zap.Strings("objects", dry.Paths()))
	}
	if a.closeMirror != nil {
		if err := a.closeMirror(); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	return errors.Join(errs...)
}

func (a *App) closeRenderer(ctx context.Context) {
	if err := a.renderer.Close(ctx); err != nil {
		a.logger.Warn("close renderer", zap.Error(err))
	}
}
