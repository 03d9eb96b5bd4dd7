// Package collyfetcher probes wiki pages over plain HTTP with gocolly before a
// browser is spent on them.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

var (
	// ErrPageMissing is returned when the wiki has no page for the title.
	ErrPageMissing = errors.New("wiki page not found")
	// ErrSelectorMissing is returned when the page lacks the capture region.
	ErrSelectorMissing = errors.New("capture selector not present")
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Prober checks that a page exists and carries the element to capture.
type Prober struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// probeState is filled in by collector callbacks.
type probeState struct {
	mu     sync.Mutex
	status int
	found  bool
	err    error
}

// New builds a Prober.
func New(cfg Config) *Prober {
	c := colly.NewCollector(colly.Async(false))
	transport := newHTTPTransport()
	c.WithTransport(transport)
	return &Prober{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Probe fetches pageURL and reports ErrPageMissing for a 404 and
// ErrSelectorMissing when no element matches selector.
func (p *Prober) Probe(ctx context.Context, pageURL, selector string) error {
	state := &probeState{}
	collector := p.buildCollector()
	p.configureCollectorHooks(collector, selector, state)

	if err := p.runCollector(ctx, collector, pageURL); err != nil {
		state.mu.Lock()
		status := state.status
		state.mu.Unlock()
		if status == http.StatusNotFound {
			return fmt.Errorf("%s: %w", pageURL, ErrPageMissing)
		}
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.err != nil {
		if state.status == http.StatusNotFound {
			return fmt.Errorf("%s: %w", pageURL, ErrPageMissing)
		}
		return fmt.Errorf("colly response failed: %w", state.err)
	}
	if !state.found {
		return fmt.Errorf("%s on %s: %w", selector, pageURL, ErrSelectorMissing)
	}
	return nil
}

func (p *Prober) buildCollector() *colly.Collector {
	collector := p.baseCollector.Clone()
	collector.AllowURLRevisit = true
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !p.cfg.RespectRobots
	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)
	transport := p.transport
	if transport == nil {
		transport = newHTTPTransport()
	}
	collector.WithTransport(transport)
	return collector
}

func (p *Prober) configureCollectorHooks(hooks collectorHooks, selector string, state *probeState) {
	hooks.OnResponse(func(r *colly.Response) {
		state.mu.Lock()
		state.status = r.StatusCode
		state.mu.Unlock()
	})

	hooks.OnHTML(selector, func(_ *colly.HTMLElement) {
		state.mu.Lock()
		state.found = true
		state.mu.Unlock()
	})

	hooks.OnError(func(r *colly.Response, err error) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if r != nil {
			state.status = r.StatusCode
		}
		state.err = err
	})
}

func (p *Prober) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly probe canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
