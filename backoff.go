package retry

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// BackoffType selects how the delay grows between retries.
type BackoffType int

const (
	// Constant waits BaseDelay before every retry.
	Constant BackoffType = iota
	// Linear waits BaseDelay * (attempt + 1).
	Linear
	// Exponential waits BaseDelay * 2^attempt.
	Exponential
)

const maxDuration = time.Duration(math.MaxInt64)

func (b BackoffType) String() string {
	switch b {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	default:
		return fmt.Sprintf("BackoffType(%d)", int(b))
	}
}

func (b BackoffType) valid() bool {
	return b >= Constant && b <= Exponential
}

// ParseBackoffType parses the case-insensitive name of a backoff type.
func ParseBackoffType(s string) (BackoffType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant":
		return Constant, nil
	case "linear":
		return Linear, nil
	case "exponential":
		return Exponential, nil
	default:
		return 0, fmt.Errorf("retry: unknown backoff type %q", s)
	}
}

// RandomFunc represents a function that returns a random number in the half open interval [0,n)
type RandomFunc func(n int64) int64

// DefaultRandomFunc returns a random function backed by the global math/rand/v2 source, which is safe for concurrent use.
func DefaultRandomFunc() RandomFunc {
	return rand.Int64N
}

// backoff returns the unjittered delay before the retry that follows the given 0-based attempt.
// The result saturates at the maximum duration instead of overflowing.
func backoff(t BackoffType, base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	switch t {
	case Linear:
		return mulSat(base, int64(attempt)+1)
	case Exponential:
		return mulSat(base, pow2(attempt))
	default:
		return base
	}
}

// jitter spreads d uniformly over [d/2, 3d/2) so the mean stays at d.
func jitter(rf RandomFunc, d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	half := d / 2
	j := half + time.Duration(rf(int64(d)))
	if j < half {
		return maxDuration
	}

	return j
}

func pow2(exponent int) int64 {
	if exponent >= 63 {
		return math.MaxInt64
	}
	return int64(1) << exponent
}

func mulSat(d time.Duration, n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	if int64(d) > math.MaxInt64/n {
		return maxDuration
	}
	return d * time.Duration(n)
}
