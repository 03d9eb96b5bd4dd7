// Package headless renders wiki pages in headless Chrome and captures a page
// region to a PNG file.
package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/capture"
	"github.com/JakeFAU/poewiki-assets/internal/metrics"
	"github.com/JakeFAU/poewiki-assets/internal/policy/ratelimit"
	"github.com/JakeFAU/poewiki-assets/internal/storage/local"
)

var (
	// ErrRendererDisabled indicates rendering has been disabled via configuration.
	ErrRendererDisabled = errors.New("renderer disabled")
	// ErrDestinationExists is returned when Overwrite is false and the file exists.
	ErrDestinationExists = errors.New("destination already exists")
)

// Config controls the behavior of the renderer.
type Config struct {
	// MaxParallel bounds concurrently open tabs; 0 means unbounded.
	MaxParallel int
	UserAgent   string
	// Timeout bounds one capture; 0 disables the deadline.
	Timeout time.Duration
	// DomainQPS throttles page loads per host; 0 disables throttling.
	DomainQPS float64
	Width     int64
	Height    int64
}

// Renderer captures page regions using one shared headless Chrome process.
type Renderer struct {
	cfg             Config
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	limiter         *ratelimit.Limiter
}

// New starts the browser and returns a Renderer.
func New(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	var sem chan struct{}
	if cfg.MaxParallel > 0 {
		sem = make(chan struct{}, cfg.MaxParallel)
	}
	return &Renderer{
		cfg:             cfg,
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             sem,
		limiter:         ratelimit.New(ratelimit.Config{RPS: cfg.DomainQPS, Burst: 1}),
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (r *Renderer) Close(_ context.Context) error {
	if r == nil {
		return nil
	}
	r.browserCancel()
	r.allocatorCancel()
	return nil
}

// Capture loads req.URL, optionally evaluates req.Script, screenshots the
// element matching req.Selector and writes the PNG to req.Dest.
func (r *Renderer) Capture(ctx context.Context, req capture.Request) error {
	if r == nil {
		return ErrRendererDisabled
	}
	if !req.Overwrite {
		if _, err := os.Stat(req.Dest); err == nil {
			return fmt.Errorf("%s: %w", req.Dest, ErrDestinationExists)
		}
	}

	release, err := r.acquireSlot(ctx)
	if err != nil {
		return err
	}
	defer release()

	if waitErr := r.waitDomainBudget(ctx, req.URL); waitErr != nil {
		return fmt.Errorf("render rate limit: %w", waitErr)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := r.withTimeout(tabCtx)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	recordResponse(tabCtx, meta)

	start := time.Now()
	png, err := r.runCapture(taskCtx, req, meta)
	if err != nil {
		return err
	}
	if err := local.WriteFile(req.Dest, png, req.Overwrite); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", req.Dest, ErrDestinationExists)
		}
		return fmt.Errorf("write capture: %w", err)
	}
	r.logger.Debug("page captured",
		zap.String("url", req.URL),
		zap.String("selector", req.Selector),
		zap.String("dest", req.Dest),
		zap.Int("bytes", len(png)),
		zap.Duration("dur", time.Since(start)),
	)
	return nil
}

func (r *Renderer) runCapture(ctx context.Context, req capture.Request, meta *responseMeta) ([]byte, error) {
	var png []byte
	tasks := chromedp.Tasks{network.Enable()}
	if r.cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(r.cfg.UserAgent))
	}
	if r.cfg.Width > 0 && r.cfg.Height > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(r.cfg.Width, r.cfg.Height))
	}
	tasks = append(tasks,
		chromedp.Navigate(req.URL),
		chromedp.ActionFunc(meta.checkStatus),
		chromedp.WaitVisible(req.Selector, chromedp.ByQuery),
	)
	if req.Script != "" {
		var ran bool
		tasks = append(tasks, chromedp.Evaluate(req.Script, &ran))
	}
	tasks = append(tasks, chromedp.Screenshot(req.Selector, &png, chromedp.NodeVisible, chromedp.ByQuery))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}
	if len(png) == 0 {
		return nil, fmt.Errorf("empty screenshot for %s", req.Selector)
	}
	return png, nil
}

func (r *Renderer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, r.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (r *Renderer) acquireSlot(ctx context.Context) (func(), error) {
	if r.sem == nil {
		return func() {}, nil
	}
	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (r *Renderer) waitDomainBudget(ctx context.Context, rawURL string) error {
	if !r.limiter.Enabled() {
		return nil
	}
	waited, err := r.limiter.Wait(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	if waited > time.Millisecond {
		metrics.ObserveThrottle(waited)
		r.logger.Debug("render throttled", zap.String("url", rawURL), zap.Duration("waited", waited))
	}
	return nil
}

// responseMeta remembers the main document response of a tab.
type responseMeta struct {
	mu         sync.Mutex
	seen       bool
	statusCode int
	url        string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) capture(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen {
		return
	}
	m.seen = true
	m.statusCode = int(ev.Response.Status)
	m.url = ev.Response.URL
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCode, m.url
}

// checkStatus fails the capture when the wiki answered with an error page,
// which would otherwise wait forever for a selector that never appears.
func (m *responseMeta) checkStatus(_ context.Context) error {
	status, pageURL := m.snapshot()
	if status >= 400 {
		return fmt.Errorf("page %s returned status %d", pageURL, status)
	}
	return nil
}

func recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			meta.capture(resp)
		}
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
