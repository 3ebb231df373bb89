// services/kafka-bootstrap/internal/readiness/options.go
package readiness

import "github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"

// Option настраивает компоненты гейта.
type Option func(*options)

type options struct {
	timer backoff.Timer
}

// WithTimer подменяет таймер ожидания между попытками (в тестах).
func WithTimer(t backoff.Timer) Option {
	return func(o *options) { o.timer = t }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
