// common/backoff/backoff.go
package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

// -----------------------------------------------------------------------------
// Metrics & service label
// -----------------------------------------------------------------------------

var (
	serviceLabel = "unknown"

	metrics = struct {
		Retries   *prometheus.CounterVec
		Failures  *prometheus.CounterVec
		Successes *prometheus.CounterVec
		Delays    *prometheus.HistogramVec
	}{
		Retries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "common", Subsystem: "backoff", Name: "retries_total",
				Help: "Number of back-off retry attempts",
			},
			[]string{"service", "operation"},
		),
		Failures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "common", Subsystem: "backoff", Name: "failures_total",
				Help: "Number of operations that gave up after retries",
			},
			[]string{"service", "operation"},
		),
		Successes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "common", Subsystem: "backoff", Name: "successes_total",
				Help: "Number of operations that eventually succeeded",
			},
			[]string{"service", "operation"},
		),
		Delays: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "common", Subsystem: "backoff", Name: "retry_delay_seconds",
				Help:    "Histogram of retry delays (seconds)",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
	}
)

// SetServiceLabel must be called once from common.InitServiceName(..)
// before the first Retry(..) or Poll(..).  See common/service.go.
func SetServiceLabel(name string) { serviceLabel = name }

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config bounds a geometric poll loop.
//
// MaxAttempts is the number of retries after the first attempt, so a
// loop performs at most MaxAttempts+1 calls and MaxAttempts waits.
type Config struct {
	// MaxAttempts ≥ 1.
	MaxAttempts int `mapstructure:"max_attempts"`

	// InitialDelay is the first wait. Zero is allowed.
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	// Multiplier grows the wait after every failed attempt; ≥ 1.
	Multiplier float64 `mapstructure:"multiplier"`
}

// Validate checks the invariants listed on Config.
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("backoff: MaxAttempts must be ≥ 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("backoff: InitialDelay must be ≥ 0, got %s", c.InitialDelay)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("backoff: Multiplier must be ≥ 1, got %v", c.Multiplier)
	}
	return nil
}

// Timer is the wait primitive used between attempts. The default one
// is backed by time.Timer.
type Timer = backoff.Timer

// RetryableFunc is a unit of work that may be re-executed until it
// succeeds or the back-off strategy gives up.
type RetryableFunc func(ctx context.Context) error

// Option tunes a single Retry or Poll call.
type Option func(*options)

type options struct {
	operation string
	timer     Timer
	notify    func(attempt int, delay time.Duration, err error)
}

// WithOperation sets the label used in logs and metrics.
func WithOperation(name string) Option {
	return func(o *options) { o.operation = name }
}

// WithTimer replaces the wall-clock timer used for waits.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithNotify registers a callback invoked before every wait.
func WithNotify(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *options) { o.notify = fn }
}

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

// ErrMaxRetries is returned when the function was still failing after
// all retries were exhausted.
type ErrMaxRetries struct {
	Err      error // last error returned by fn
	Attempts int   // number of attempts performed
}

func (e *ErrMaxRetries) Error() string {
	return fmt.Sprintf("backoff: %d attempt(s) failed: %v", e.Attempts, e.Err)
}
func (e *ErrMaxRetries) Unwrap() error { return e.Err }

// Permanent marks an error as non-retryable. The loop stops at once and
// returns the error unchanged.
func Permanent(err error) error { return backoff.Permanent(err) }

// -----------------------------------------------------------------------------
// Core
// -----------------------------------------------------------------------------

// Retry runs fn once and then up to maxRetries more times with no pause
// between attempts.
func Retry(ctx context.Context, maxRetries int, log *logger.Logger, fn RetryableFunc, opts ...Option) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return run(ctx, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxRetries)), log, fn, opts)
}

// Poll runs fn until it succeeds, waiting cfg.InitialDelay, then
// InitialDelay*Multiplier, … between attempts, for at most
// cfg.MaxAttempts waits. Waits block; a cancelled ctx ends the loop.
func Poll(ctx context.Context, cfg Config, log *logger.Logger, fn RetryableFunc, opts ...Option) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("backoff: invalid config: %w", err)
	}
	b := backoff.WithMaxRetries(NewGeometric(cfg.InitialDelay, cfg.Multiplier), uint64(cfg.MaxAttempts))
	return run(ctx, b, log, fn, opts)
}

func run(ctx context.Context, b backoff.BackOff, log *logger.Logger, fn RetryableFunc, opts []Option) error {
	o := options{operation: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	labels := []string{serviceLabel, o.operation}

	attempts := 0
	permanent := false
	operation := func() error {
		attempts++
		err := fn(ctx)
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		metrics.Retries.WithLabelValues(labels...).Inc()
		metrics.Delays.WithLabelValues(labels...).Observe(delay.Seconds())
		log.Warn("back-off retry",
			zap.String("operation", o.operation),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if o.notify != nil {
			o.notify(attempts, delay, err)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(b, ctx), notify, o.timer)
	if err == nil {
		metrics.Successes.WithLabelValues(labels...).Inc()
		return nil
	}

	metrics.Failures.WithLabelValues(labels...).Inc()
	log.Error("back-off give-up",
		zap.String("operation", o.operation),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	switch {
	case permanent:
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("backoff: interrupted after %d attempt(s): %w", attempts, ctx.Err())
	default:
		return &ErrMaxRetries{Err: err, Attempts: attempts}
	}
}
