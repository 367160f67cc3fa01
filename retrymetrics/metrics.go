// Package retrymetrics provides Prometheus instrumentation for retry policies.
package retrymetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aniladanir/retry/v2"
)

// Recorder counts retries and observes their delays, labelled by policy name.
type Recorder struct {
	retries *prometheus.CounterVec
	delay   *prometheus.HistogramVec
}

// NewRecorder creates the retry collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	r := &Recorder{
		// retries counts every retry taken, by policy and failure kind.
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retries taken.",
		}, []string{"policy", "kind"}),

		// delay tracks the wait before each retry.
		delay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_delay_seconds",
			Help:      "Delay before a retry in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"policy"}),
	}

	for _, c := range []prometheus.Collector{r.retries, r.delay} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// OnRetry returns a hook recording retries made under the named policy.
func (r *Recorder) OnRetry(policy string) retry.OnRetryFunc {
	return func(_ int, delay time.Duration, err error) {
		r.retries.WithLabelValues(policy, retry.Classify(err).String()).Inc()
		r.delay.WithLabelValues(policy).Observe(delay.Seconds())
	}
}

// Instrument returns a copy of p whose OnRetry hook also records metrics.
func (r *Recorder) Instrument(p *retry.Policy) *retry.Policy {
	if p == nil {
		p = retry.DefaultPolicy()
	}

	instrumented := *p
	instrumented.OnRetry = retry.ChainOnRetry(p.OnRetry, r.OnRetry(p.Name))

	return &instrumented
}
