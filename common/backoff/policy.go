// common/backoff/policy.go
package backoff

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NextDelay returns prev*multiplier, saturating at the largest Duration.
func NextDelay(prev time.Duration, multiplier float64) time.Duration {
	next := float64(prev) * multiplier
	if next >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(next)
}

// Geometric is a jitter-free back-off: Initial, Initial*M, Initial*M², …
//
// It never returns backoff.Stop on its own; wrap it with
// backoff.WithMaxRetries to bound the number of waits.
type Geometric struct {
	Initial    time.Duration
	Multiplier float64

	current time.Duration
}

var _ backoff.BackOff = (*Geometric)(nil)

// NewGeometric returns a Geometric positioned at its first delay.
func NewGeometric(initial time.Duration, multiplier float64) *Geometric {
	g := &Geometric{Initial: initial, Multiplier: multiplier}
	g.Reset()
	return g
}

// Reset rewinds the sequence to Initial.
func (g *Geometric) Reset() { g.current = g.Initial }

// NextBackOff returns the current delay and advances the sequence.
func (g *Geometric) NextBackOff() time.Duration {
	d := g.current
	g.current = NextDelay(g.current, g.Multiplier)
	return d
}

// Delays lists the waits a poll loop configured with cfg may perform,
// in order: at most cfg.MaxAttempts of them.
func Delays(cfg Config) []time.Duration {
	if cfg.MaxAttempts <= 0 {
		return nil
	}
	g := NewGeometric(cfg.InitialDelay, cfg.Multiplier)
	out := make([]time.Duration, cfg.MaxAttempts)
	for i := range out {
		out[i] = g.NextBackOff()
	}
	return out
}
