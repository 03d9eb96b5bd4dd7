// Package dispatcher fans a batch of asset requests out to concurrent units
// and joins them.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/poewiki-assets/internal/asset"
	"github.com/JakeFAU/poewiki-assets/internal/clock/system"
	"github.com/JakeFAU/poewiki-assets/internal/metrics"
)

// Resolver settles a single unit.
type Resolver interface {
	Resolve(ctx context.Context, cat asset.Category, req asset.Request) asset.Result
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Dispatcher runs every configured request as one combined batch.
type Dispatcher struct {
	resolver Resolver
	clock    Clock
	logger   *zap.Logger
}

// New creates a Dispatcher. A nil clock uses the system clock.
func New(resolver Resolver, clock Clock, logger *zap.Logger) *Dispatcher {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

type unit struct {
	cat asset.Category
	req asset.Request
}

// Run dispatches nodes, then items, then skills, each in list order, and
// blocks until every unit has settled. Results are returned in dispatch
// order. Failures are logged once each, followed by a single "Done" line.
func (d *Dispatcher) Run(ctx context.Context, reqs asset.Requests) []asset.Result {
	units := make([]unit, 0, reqs.Len())
	for _, cat := range asset.Categories {
		for _, req := range reqs.For(cat) {
			units = append(units, unit{cat: cat, req: req})
		}
	}
	d.logger.Info("dispatching batch", zap.Int("units", len(units)))

	results := make([]asset.Result, len(units))
	var g errgroup.Group
	for i, u := range units {
		g.Go(func() error {
			results[i] = d.resolver.Resolve(ctx, u.cat, u.req)
			return nil
		})
	}
	_ = g.Wait() // units report through results, never through the group

	for _, res := range results {
		if !res.Failed() {
			continue
		}
		d.logger.Error("asset failed",
			zap.String("category", res.Category.String()),
			zap.String("asset", res.Name),
			zap.Error(res.Err),
		)
	}

	summary := asset.Summarize(results)
	d.logger.Info("Done",
		zap.Int("cached", summary.Cached),
		zap.Int("fetched", summary.Fetched),
		zap.Int("failed", summary.Failed),
		zap.Int("total", summary.Total()),
	)
	metrics.MarkRunComplete(d.clock.Now())
	return results
}
