// Package resolver settles one asset request: it copies a cached image into
// the output directory or renders the wiki page and stores the result in both
// the output directory and the category cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
	"github.com/JakeFAU/poewiki-assets/internal/capture"
	"github.com/JakeFAU/poewiki-assets/internal/clock/system"
	"github.com/JakeFAU/poewiki-assets/internal/metrics"
	"github.com/JakeFAU/poewiki-assets/internal/storage"
	"github.com/JakeFAU/poewiki-assets/internal/wiki"
)

// Renderer produces an image file for a capture request.
type Renderer interface {
	Capture(ctx context.Context, req capture.Request) error
}

// Prober checks a page before it is rendered.
type Prober interface {
	Probe(ctx context.Context, pageURL, selector string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Config locates the directories a Resolver reads and writes.
type Config struct {
	// OutDir is the output directory including its trailing separator.
	OutDir string
	// AssetDirs maps each category to its cache directory.
	AssetDirs map[asset.Category]string
	// BaseURL is the wiki article prefix; empty means wiki.DefaultBaseURL.
	BaseURL string
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithProber runs p before every render.
func WithProber(p Prober) Option {
	return func(r *Resolver) { r.prober = p }
}

// WithMirror uploads every file written to the output directory to store.
func WithMirror(store storage.BlobStore) Option {
	return func(r *Resolver) { r.mirror = store }
}

// WithClock overrides the clock used for render timings.
func WithClock(c Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// Resolver turns requests into unit results. It is safe for concurrent use.
type Resolver struct {
	cfg      Config
	indexes  asset.Indexes
	renderer Renderer
	copier   storage.Copier
	prober   Prober
	mirror   storage.BlobStore
	clock    Clock
	logger   *zap.Logger

	// locks holds one *sync.Mutex per output path.
	locks sync.Map
}

// New constructs a Resolver. indexes are treated as read-only.
func New(
	cfg Config,
	indexes asset.Indexes,
	renderer Renderer,
	copier storage.Copier,
	logger *zap.Logger,
	opts ...Option,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		cfg:      cfg,
		indexes:  indexes,
		renderer: renderer,
		copier:   copier,
		clock:    system.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve settles req. Failures are returned in the Result, never logged here.
func (r *Resolver) Resolve(ctx context.Context, cat asset.Category, req asset.Request) asset.Result {
	metrics.IncActiveUnits()
	defer metrics.DecActiveUnits()

	var res asset.Result
	resolution := asset.Resolve(r.indexes.For(cat), req.Name)
	if resolution.Hit {
		res = r.copyCached(ctx, cat, req, resolution.Filename)
	} else {
		res = r.fetch(ctx, cat, req)
	}
	metrics.ObserveAsset(cat.String(), string(res.Outcome))
	return res
}

func (r *Resolver) copyCached(ctx context.Context, cat asset.Category, req asset.Request, filename string) asset.Result {
	res := asset.Result{Category: cat, Name: req.Name, Filename: filename}
	src := filepath.Join(r.cfg.AssetDirs[cat], filename)
	dst := r.cfg.OutDir + filename

	unlock := r.lock(dst)
	defer unlock()

	if err := r.copier.Copy(ctx, src, dst); err != nil {
		return failed(res, asset.ErrCopy, err)
	}
	r.logger.Debug("asset copied from cache",
		zap.String("category", cat.String()),
		zap.String("asset", req.Name),
		zap.String("file", filename),
	)
	r.upload(ctx, dst, filename)
	res.Outcome = asset.OutcomeCached
	return res
}

func (r *Resolver) fetch(ctx context.Context, cat asset.Category, req asset.Request) asset.Result {
	filename := req.Name + ".png"
	res := asset.Result{Category: cat, Name: req.Name, Filename: filename}
	pageURL := wiki.PageURL(r.cfg.BaseURL, req.Name)
	rule := capture.RuleFor(cat, req)
	dst := r.cfg.OutDir + filename

	unlock := r.lock(dst)
	defer unlock()

	if r.prober != nil {
		if err := r.prober.Probe(ctx, pageURL, rule.Selector); err != nil {
			return failed(res, asset.ErrRender, err)
		}
	}

	start := r.clock.Now()
	err := r.renderer.Capture(ctx, capture.Request{
		URL:       pageURL,
		Dest:      dst,
		Selector:  rule.Selector,
		Overwrite: true,
		Script:    rule.Script,
	})
	metrics.ObserveRender(cat.String(), r.clock.Now().Sub(start))
	if err != nil {
		return failed(res, asset.ErrRender, err)
	}

	cached := filepath.Join(r.cfg.AssetDirs[cat], filename)
	if err := r.copier.Copy(ctx, dst, cached); err != nil {
		return failed(res, asset.ErrCopy, err)
	}
	r.logger.Info("asset fetched",
		zap.String("category", cat.String()),
		zap.String("asset", req.Name),
		zap.String("url", pageURL),
	)
	r.upload(ctx, dst, filename)
	res.Outcome = asset.OutcomeFetched
	return res
}

// upload mirrors an output file. Errors only produce a warning.
func (r *Resolver) upload(ctx context.Context, path, objectName string) {
	if r.mirror == nil {
		return
	}
	if err := r.putMirror(ctx, path, objectName); err != nil {
		metrics.ObserveMirror("error")
		r.logger.Warn("mirror upload failed", zap.String("file", objectName), zap.Error(err))
		return
	}
	metrics.ObserveMirror("ok")
}

func (r *Resolver) putMirror(ctx context.Context, path, objectName string) error {
	// #nosec G304 -- path is inside the configured output directory.
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle
	contentType := mime.TypeByExtension(filepath.Ext(objectName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := r.mirror.PutObject(ctx, objectName, contentType, f); err != nil {
		return fmt.Errorf("put %s: %w", objectName, err)
	}
	return nil
}

// lock serializes units writing the same output path.
func (r *Resolver) lock(path string) func() {
	v, _ := r.locks.LoadOrStore(path, &sync.Mutex{})
	mu, ok := v.(*sync.Mutex)
	if !ok {
		return func() {}
	}
	mu.Lock()
	return mu.Unlock
}

func failed(res asset.Result, kind, err error) asset.Result {
	if errors.Is(err, kind) {
		res.Err = err
	} else {
		res.Err = fmt.Errorf("%w: %w", kind, err)
	}
	res.Outcome = asset.OutcomeFailed
	return res
}
