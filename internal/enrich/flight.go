package enrich

import (
	"context"
	"sync"
)

// Flight serializes enrichment batches: beginning a new one cancels the one
// in flight, so at most one batch spends credits at a time. The superseded
// batch still returns the windows it finished.
type Flight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// Begin cancels any in-flight batch and derives a context for the new one.
// The returned cancel must be called when the batch ends.
func (f *Flight) Begin(ctx context.Context) (context.Context, context.CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	return ctx, cancel
}
