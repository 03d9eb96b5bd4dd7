package headless

import (
	"context"
	"fmt"

	"github.com/JakeFAU/poewiki-assets/internal/capture"
)

// Noop refuses every capture. It backs cache-only runs where no browser is
// started and every cache miss fails.
type Noop struct{}

// NewNoop creates a new Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Capture always fails with ErrRendererDisabled.
func (Noop) Capture(_ context.Context, req capture.Request) error {
	return fmt.Errorf("capture %s: %w", req.URL, ErrRendererDisabled)
}

// Close implements the renderer lifecycle; it performs no action.
func (Noop) Close(context.Context) error {
	return nil
}
