package llm

import (
	"context"
	"errors"
	"time"
)

// Policy is a bounded retry with a fixed delay between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ErrExhausted wraps the last failure once every attempt is spent.
var ErrExhausted = errors.New("attempts exhausted")

// Do calls fn until it succeeds or the attempts run out. fn receives the
// 0-based attempt number.
func (p Policy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	var last error
	for i := range attempts {
		if last = fn(i); last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return errors.Join(ErrExhausted, last)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
