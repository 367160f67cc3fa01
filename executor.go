package retry

import (
	"context"
	"time"
)

// Operation is a unit of work that may fail transiently. It should observe ctx.
type Operation[R any] func(ctx context.Context) (R, error)

// AsyncOperation starts a unit of work and returns a channel that receives its single Result.
// The channel should be buffered so the work can finish even if nobody receives.
type AsyncOperation[R any] func(ctx context.Context) <-chan Result[R]

// Result is the outcome of an asynchronous operation or execution.
type Result[R any] struct {
	Value R
	Err   error
}

// RetryExecutor runs operations under a retry policy.
type RetryExecutor[R any] interface {
	Execute(ctx context.Context, op Operation[R], p *Policy) (R, error)
	ExecuteAsync(ctx context.Context, op AsyncOperation[R], p *Policy) <-chan Result[R]
}

// Executor drives the attempt loop. It has no state; the zero value is ready to use
// and one Executor may serve any number of concurrent executions.
type Executor[R any] struct{}

var _ RetryExecutor[struct{}] = (*Executor[struct{}])(nil)

// NewExecutor returns an Executor for operations producing R.
func NewExecutor[R any]() *Executor[R] {
	return &Executor[R]{}
}

// Execute calls op until it succeeds, p gives up on it or ctx is done, blocking the calling goroutine throughout.
//
// A nil policy means DefaultPolicy. The error of the last attempt is returned unchanged; if ctx
// is done before an attempt or during a delay, ctx.Err() is returned instead.
func (e *Executor[R]) Execute(ctx context.Context, op Operation[R], p *Policy) (R, error) {
	return run(ctx, p, op)
}

// ExecuteAsync has the semantics of Execute but runs the loop in a new goroutine.
//
// The returned channel receives exactly one Result and is closed right after.
// Each attempt waits for op's channel; a channel closed without a value counts as a failure with ErrNoResult.
func (e *Executor[R]) ExecuteAsync(ctx context.Context, op AsyncOperation[R], p *Policy) <-chan Result[R] {
	ch := make(chan Result[R], 1)

	go func() {
		defer close(ch)

		v, err := run(ctx, p, func(ctx context.Context) (R, error) {
			return await(op(ctx))
		})
		ch <- Result[R]{Value: v, Err: err}
	}()

	return ch
}

// Execute runs op with a zero Executor.
func Execute[R any](ctx context.Context, op Operation[R], p *Policy) (R, error) {
	var e Executor[R]
	return e.Execute(ctx, op, p)
}

// ExecuteAsync runs op with a zero Executor.
func ExecuteAsync[R any](ctx context.Context, op AsyncOperation[R], p *Policy) <-chan Result[R] {
	var e Executor[R]
	return e.ExecuteAsync(ctx, op, p)
}

// Go turns a blocking operation into an AsyncOperation running in its own goroutine.
func Go[R any](op Operation[R]) AsyncOperation[R] {
	return func(ctx context.Context) <-chan Result[R] {
		ch := make(chan Result[R], 1)
		go func() {
			defer close(ch)
			v, err := op(ctx)
			ch <- Result[R]{Value: v, Err: err}
		}()
		return ch
	}
}

func await[R any](ch <-chan Result[R]) (R, error) {
	var zero R
	if ch == nil {
		return zero, ErrNoResult
	}

	r, ok := <-ch
	if !ok {
		return zero, ErrNoResult
	}

	return r.Value, r.Err
}

// run is the attempt loop shared by Execute and ExecuteAsync; they differ only in how invoke obtains an outcome.
func run[R any](ctx context.Context, p *Policy, invoke func(ctx context.Context) (R, error)) (R, error) {
	var zero R

	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		p = DefaultPolicy()
	}
	if err := p.Validate(); err != nil {
		return zero, err
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := invoke(ctx)
		if err == nil {
			return v, nil
		}

		if attempt >= p.MaxRetryAttempts || !p.IsRetryEligible(err) {
			return zero, err
		}

		// the operation may have failed because ctx fired while it ran
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		delay := p.Delay(attempt)
		p.notify(attempt, delay, err)

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

var newTimer = func(d time.Duration) *time.Timer {
	return time.NewTimer(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := newTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
