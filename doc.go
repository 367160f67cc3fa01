// Package retry re-invokes an operation that may fail transiently until it
// succeeds, its retry budget is spent, or its context is cancelled.
//
// A [Policy] describes how many retries to make, how long to wait between
// them ([Constant], [Linear] or [Exponential] backoff with optional jitter),
// which errors are worth retrying and what to call before every retry. An
// [Executor] drives the attempt loop either synchronously ([Executor.Execute])
// or in the background ([Executor.ExecuteAsync]).
//
// Errors caused by the caller's own cancellation ([context.Canceled] and
// [context.DeadlineExceeded]) are never retried. Terminal errors are returned
// as-is, so callers can inspect them with [errors.Is] and [errors.As].
//
//	p, err := retry.NewPolicy(
//		retry.WithBackoff(retry.Exponential),
//		retry.WithBaseDelay(100*time.Millisecond),
//		retry.WithLogger(func(msg string) { log.Println(msg) }),
//	)
//	if err != nil {
//		return err
//	}
//	body, err := retry.Execute(ctx, fetch, p)
package retry
