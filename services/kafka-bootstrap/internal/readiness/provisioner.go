// services/kafka-bootstrap/internal/readiness/provisioner.go
package readiness

import (
	"context"

	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

// Provisioner отправляет batch на создание топиков. Наличие топиков
// подтверждает TopicPoller.
type Provisioner struct {
	admin      kafka.TopicAdmin
	maxRetries int
	timer      backoff.Timer
	log        *logger.Logger
}

// NewProvisioner: до maxRetries повторов без пауз.
func NewProvisioner(admin kafka.TopicAdmin, maxRetries int, log *logger.Logger, opts ...Option) *Provisioner {
	o := buildOptions(opts)
	return &Provisioner{
		admin:      admin,
		maxRetries: maxRetries,
		timer:      o.timer,
		log:        log.Named("topic-provisioner"),
	}
}

// CreateTopics отправляет один batch на все specs.
func (p *Provisioner) CreateTopics(ctx context.Context, specs []kafka.TopicSpec) error {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}

	attempt := 0
	err := backoff.Retry(ctx, p.maxRetries, p.log, func(ctx context.Context) error {
		attempt++
		p.log.WithContext(ctx).Info("creating topics",
			zap.Int("count", len(specs)),
			zap.Strings("topics", names),
			zap.Int("attempt", attempt),
		)
		return p.admin.CreateTopics(ctx, specs)
	}, backoff.WithOperation("create_topics"), backoff.WithTimer(p.timer))
	if err != nil {
		return &ProvisionError{Err: err}
	}
	return nil
}
