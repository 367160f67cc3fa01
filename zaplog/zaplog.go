// Package zaplog connects retry hooks to a zap logger.
package zaplog

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aniladanir/retry/v2"
)

// Logger returns a retry.Logger writing every line at the given level.
// A nil logger discards the lines.
func Logger(l *zap.Logger, level zapcore.Level) retry.Logger {
	if l == nil {
		l = zap.NewNop()
	}

	return func(msg string) {
		if ce := l.Check(level, msg); ce != nil {
			ce.Write()
		}
	}
}

// OnRetry returns a hook that logs each retry as a structured warning.
func OnRetry(l *zap.Logger, policy string) retry.OnRetryFunc {
	if l == nil {
		l = zap.NewNop()
	}
	l = l.With(zap.String("policy", policy))

	return func(attempt int, delay time.Duration, err error) {
		l.Warn("retrying operation",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Stringer("kind", retry.Classify(err)),
			zap.Error(err),
		)
	}
}
