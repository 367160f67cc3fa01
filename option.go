package retry

import "time"

type Option func(b *builder)

type builder struct {
	policy    Policy
	logger    Logger
	formatter Formatter
}

// WithName sets the diagnostic label of the policy. Default is "Retry".
func WithName(name string) Option {
	return func(b *builder) {
		b.policy.Name = name
	}
}

// WithMaxRetryAttempts sets the number of retries made after the first attempt. Default is three.
func WithMaxRetryAttempts(n int) Option {
	return func(b *builder) {
		b.policy.MaxRetryAttempts = n
	}
}

// WithBackoff sets how the delay grows between retries. Default is Constant.
func WithBackoff(t BackoffType) Option {
	return func(b *builder) {
		b.policy.BackoffType = t
	}
}

// WithJitter enables or disables randomization of the delay.
func WithJitter(enabled bool) Option {
	return func(b *builder) {
		b.policy.UseJitter = enabled
	}
}

// WithBaseDelay sets the base duration of the backoff. Default is 250 milliseconds.
func WithBaseDelay(d time.Duration) Option {
	return func(b *builder) {
		b.policy.BaseDelay = d
	}
}

// WithMaxDelay sets the maximum delay that is allowed between attempts.
func WithMaxDelay(d time.Duration) Option {
	return func(b *builder) {
		b.policy.MaxDelay = d
	}
}

// WithShouldRetry sets the predicate that decides which failures are retried.
func WithShouldRetry(fn func(err error) bool) Option {
	return func(b *builder) {
		b.policy.ShouldRetry = fn
	}
}

// WithOnRetry sets a hook that runs before every retry.
func WithOnRetry(fn OnRetryFunc) Option {
	return func(b *builder) {
		b.policy.OnRetry = fn
	}
}

// WithLogger sends one line per retry to log.
func WithLogger(log Logger) Option {
	return func(b *builder) {
		b.logger = log
	}
}

// WithFormatter sets the function producing the lines passed to the logger. It has no effect without WithLogger.
func WithFormatter(f Formatter) Option {
	return func(b *builder) {
		b.formatter = f
	}
}

// WithRandomFunc sets the random function that is used to generate random values in the half open interval [0,n).
func WithRandomFunc(rf RandomFunc) Option {
	return func(b *builder) {
		b.policy.Random = rf
	}
}
