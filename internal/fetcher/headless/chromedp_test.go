package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/poewiki-assets/internal/capture"
	"github.com/JakeFAU/poewiki-assets/internal/policy/ratelimit"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxParallel: -1}, nil)
	assert.Error(t, err)
	_, err = New(Config{Timeout: -time.Second}, nil)
	assert.Error(t, err)
}

func TestAcquireSlotBounded(t *testing.T) {
	t.Parallel()

	r := &Renderer{sem: make(chan struct{}, 1)}
	release, err := r.acquireSlot(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.acquireSlot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release, err = r.acquireSlot(context.Background())
	require.NoError(t, err)
	release()

	unbounded := &Renderer{}
	release, err = unbounded.acquireSlot(context.Background())
	require.NoError(t, err)
	release()
}

func TestWithTimeout(t *testing.T) {
	t.Parallel()

	r := &Renderer{}
	ctx, cancel := r.withTimeout(context.Background())
	_, hasDeadline := ctx.Deadline()
	cancel()
	assert.False(t, hasDeadline)

	r.cfg.Timeout = time.Minute
	ctx, cancel = r.withTimeout(context.Background())
	_, hasDeadline = ctx.Deadline()
	cancel()
	assert.True(t, hasDeadline)
}

func TestWaitDomainBudget(t *testing.T) {
	t.Parallel()

	r := &Renderer{logger: zap.NewNop()}
	require.NoError(t, r.waitDomainBudget(context.Background(), "https://www.poewiki.net/wiki/X"))

	r.limiter = ratelimit.New(ratelimit.Config{RPS: 1000})
	require.NoError(t, r.waitDomainBudget(context.Background(), "https://www.poewiki.net/wiki/X"))
	assert.Error(t, r.waitDomainBudget(context.Background(), "://bad"))
}

func TestResponseMetaCheckStatus(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	require.NoError(t, meta.checkStatus(context.Background()))

	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://www.poewiki.net/wiki/Nope"},
	})
	// later documents (iframes) do not replace the main response
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, URL: "https://ads.example"},
	})
	meta.capture(&network.EventResponseReceived{
		Type:     network.ResourceTypeImage,
		Response: &network.Response{Status: 200},
	})
	err := meta.checkStatus(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestNoopCapture(t *testing.T) {
	t.Parallel()

	r := NewNoop()
	err := r.Capture(context.Background(), capture.Request{URL: "https://x"})
	assert.ErrorIs(t, err, ErrRendererDisabled)
	assert.NoError(t, r.Close(context.Background()))

	var nilRenderer *Renderer
	assert.ErrorIs(t, nilRenderer.Capture(context.Background(), capture.Request{}), ErrRendererDisabled)
	assert.NoError(t, nilRenderer.Close(context.Background()))
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()

	r, err := New(Config{MaxParallel: 1, Timeout: 20 * time.Second, Width: 800, Height: 600}, zap.NewNop())
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r
}

func TestRendererCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wiki/Missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<!doctype html><html><body>
<span class="item-box" style="display:inline-block;width:200px;height:80px">
<span class="item-stats"><span class="group tc -mod">Base</span></span>
<table><tr><td>x</td></tr></table></span></body></html>`)
	}))
	defer srv.Close()

	r := newTestRenderer(t)
	dest := filepath.Join(t.TempDir(), "out", "Tabula Rasa.png")

	err := r.Capture(context.Background(), capture.Request{
		URL:       srv.URL + "/wiki/Tabula_Rasa",
		Dest:      dest,
		Selector:  capture.ItemBoxSelector,
		Overwrite: true,
		Script:    capture.AnnotationScript([]string{"+1 to Level of Socketed Gems"}),
	})
	require.NoError(t, err)

	// #nosec G304 -- test reads from the controlled temp directory.
	png, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])

	err = r.Capture(context.Background(), capture.Request{
		URL:      srv.URL + "/wiki/Tabula_Rasa",
		Dest:     dest,
		Selector: capture.ItemBoxSelector,
	})
	assert.True(t, errors.Is(err, ErrDestinationExists))

	err = r.Capture(context.Background(), capture.Request{
		URL:       srv.URL + "/wiki/Missing",
		Dest:      filepath.Join(t.TempDir(), "Missing.png"),
		Selector:  capture.ItemBoxSelector,
		Overwrite: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
