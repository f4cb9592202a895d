package mail

import (
	"context"
	"sync"
	"time"
)

// Async delivers through Next on a background goroutine. Notify returns
// immediately; delivery errors are logged. Each delivery gets its own Timeout
// and is detached from the caller's cancellation.
type Async struct {
	Next    Notifier
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewAsync wraps next.
func NewAsync(next Notifier, timeout time.Duration) *Async {
	return &Async{Next: next, Timeout: timeout}
}

// Notify schedules delivery and returns nil.
func (a *Async) Notify(ctx context.Context, to []string, tmpl string, data map[string]any) error {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.Timeout)
			defer cancel()
		}
		if err := a.Next.Notify(ctx, to, tmpl, data); err != nil {
			ctxLogger(ctx).Error().Err(err).
				Strs("to", to).
				Str("template", tmpl).
				Msg("mail delivery failed")
		}
	}()
	return nil
}

// Wait blocks until pending deliveries finish. Used on shutdown and in tests.
func (a *Async) Wait() { a.wg.Wait() }
