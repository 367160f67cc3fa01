package retry

import (
	"fmt"
	"strings"
	"time"
)

// Default configuration values
const (
	DefaultName             = "Retry"
	DefaultMaxRetryAttempts = 3
	DefaultBackoffType      = Constant
	DefaultUseJitter        = false
	DefaultBaseDelay        = time.Millisecond * 250
)

// Logger receives one formatted line per retry.
type Logger func(msg string)

// Formatter builds the log line for a retry. attempt is 0-based.
type Formatter func(attempt int, delay time.Duration, err error) string

// OnRetryFunc is called once before every retry, ahead of the delay.
//
// attempt is the 0-based number of the attempt that just failed, delay is the wait before the next one
// and err is the failure that triggered the retry.
type OnRetryFunc func(attempt int, delay time.Duration, err error)

// Policy describes how an Executor retries a failing operation.
//
// A Policy must not be modified once it is handed to an Executor. It holds no
// per-execution state and can be shared by concurrent executions.
type Policy struct {
	// Name is a diagnostic label.
	Name string
	// MaxRetryAttempts is the number of retries after the first attempt.
	MaxRetryAttempts int
	// BackoffType selects how the delay grows with each retry.
	BackoffType BackoffType
	// UseJitter spreads every delay uniformly over [delay/2, 3*delay/2).
	UseJitter bool
	// BaseDelay is the unit the backoff is computed from.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts. Zero means no cap.
	MaxDelay time.Duration
	// ShouldRetry decides which failures are retried. Cancellation errors never reach it.
	// DefaultShouldRetry is used when nil.
	ShouldRetry func(err error) bool
	// OnRetry is called before every retry. Panics raised by it are recovered and discarded.
	OnRetry OnRetryFunc
	// Random is the source used for jitter. DefaultRandomFunc is used when nil.
	Random RandomFunc
}

// DefaultPolicy returns a policy with every field set to its default and an OnRetry hook that does nothing.
func DefaultPolicy() *Policy {
	return &Policy{
		Name:             DefaultName,
		MaxRetryAttempts: DefaultMaxRetryAttempts,
		BackoffType:      DefaultBackoffType,
		UseJitter:        DefaultUseJitter,
		BaseDelay:        DefaultBaseDelay,
		ShouldRetry:      DefaultShouldRetry,
		OnRetry:          func(int, time.Duration, error) {},
		Random:           DefaultRandomFunc(),
	}
}

// NewPolicy creates a policy from the defaults and the given options.
//
// When a logger is supplied the OnRetry hook formats a line with the configured Formatter
// (DefaultFormatter if none) and passes it to the logger, after any hook set with WithOnRetry.
func NewPolicy(options ...Option) (*Policy, error) {
	b := &builder{policy: *DefaultPolicy()}
	b.policy.OnRetry = nil

	for _, o := range options {
		o(b)
	}

	var hooks []OnRetryFunc
	if b.policy.OnRetry != nil {
		hooks = append(hooks, b.policy.OnRetry)
	}
	if b.logger != nil {
		hooks = append(hooks, LogOnRetry(b.logger, b.formatter))
	}
	b.policy.OnRetry = ChainOnRetry(hooks...)

	p := b.policy
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks the configuration for invalid values
func (p *Policy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidPolicy)
	}
	if p.MaxRetryAttempts < 0 {
		return fmt.Errorf("%w: max retry attempts must not be negative", ErrInvalidPolicy)
	}
	if !p.BackoffType.valid() {
		return fmt.Errorf("%w: unknown backoff type %d", ErrInvalidPolicy, int(p.BackoffType))
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("%w: base delay must not be negative", ErrInvalidPolicy)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("%w: max delay must not be negative", ErrInvalidPolicy)
	}

	return nil
}

// IsRetryEligible reports whether err may be retried under p.
// Cancellation errors are never eligible, whatever ShouldRetry says.
func (p *Policy) IsRetryEligible(err error) bool {
	if err == nil || IsCancellation(err) {
		return false
	}
	if p.ShouldRetry == nil {
		return DefaultShouldRetry(err)
	}
	return p.ShouldRetry(err)
}

// Delay returns the wait before the retry that follows the given 0-based attempt.
func (p *Policy) Delay(attempt int) time.Duration {
	d := backoff(p.BackoffType, p.BaseDelay, attempt)

	if p.UseJitter {
		rf := p.Random
		if rf == nil {
			rf = DefaultRandomFunc()
		}
		d = jitter(rf, d)
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	return d
}

func (p *Policy) notify(attempt int, delay time.Duration, err error) {
	if p.OnRetry == nil {
		return
	}
	callHook(p.OnRetry, attempt, delay, err)
}

// DefaultShouldRetry retries every failure except cancellations and errors marked with NonRetryable.
func DefaultShouldRetry(err error) bool {
	return Classify(err) == KindOperation
}

// DefaultFormatter produces "[Retry] Attempt=<n>, Delay=<d>, Exception=<type>: <message>",
// where n is the 1-based number of the retry about to be made.
func DefaultFormatter(attempt int, delay time.Duration, err error) string {
	msg := "<nil>"
	if err != nil {
		msg = err.Error()
	}
	return fmt.Sprintf("[Retry] Attempt=%d, Delay=%s, Exception=%s: %s", attempt+1, delay, errorTypeName(err), msg)
}

// LogOnRetry returns a hook that passes format's output to log.
// A nil format falls back to DefaultFormatter; a nil log yields a hook that does nothing.
func LogOnRetry(log Logger, format Formatter) OnRetryFunc {
	if log == nil {
		return func(int, time.Duration, error) {}
	}
	if format == nil {
		format = DefaultFormatter
	}
	return func(attempt int, delay time.Duration, err error) {
		log(format(attempt, delay, err))
	}
}

// ChainOnRetry returns a hook calling every non-nil hook in order.
// A panic in one hook does not prevent the others from running.
func ChainOnRetry(hooks ...OnRetryFunc) OnRetryFunc {
	chain := make([]OnRetryFunc, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			chain = append(chain, h)
		}
	}

	return func(attempt int, delay time.Duration, err error) {
		for _, h := range chain {
			callHook(h, attempt, delay, err)
		}
	}
}

func callHook(h OnRetryFunc, attempt int, delay time.Duration, err error) {
	defer func() {
		_ = recover()
	}()
	h(attempt, delay, err)
}

func errorTypeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
