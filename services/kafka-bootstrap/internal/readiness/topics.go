// services/kafka-bootstrap/internal/readiness/topics.go
package readiness

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/metrics"
)

// TopicPoller ждёт, пока брокер не вернёт все обязательные топики.
type TopicPoller struct {
	admin       kafka.TopicAdmin
	listRetries int
	timer       backoff.Timer
	log         *logger.Logger
}

// NewTopicPoller: каждое чтение снимка повторяется до listRetries раз без пауз.
func NewTopicPoller(admin kafka.TopicAdmin, listRetries int, log *logger.Logger, opts ...Option) *TopicPoller {
	o := buildOptions(opts)
	return &TopicPoller{
		admin:       admin,
		listRetries: listRetries,
		timer:       o.timer,
		log:         log.Named("topic-poller"),
	}
}

// WaitUntilTopicsExist проверяет имена по порядку по последнему снимку.
// Счётчик попыток общий для всех имён: подтверждённое имя больше не
// проверяется и счётчик не сбрасывает. Неудачное чтение снимка сразу
// завершает цикл.
func (p *TopicPoller) WaitUntilTopicsExist(ctx context.Context, names []string, cfg backoff.Config) error {
	next := 0
	fetch := 0
	err := backoff.Poll(ctx, cfg, p.log, func(ctx context.Context) error {
		fetch++
		topics, err := p.snapshot(ctx, fetch)
		if err != nil {
			return backoff.Permanent(err)
		}
		for next < len(names) && topics.Has(names[next]) {
			metrics.TopicChecks.WithLabelValues("confirmed").Inc()
			p.log.Info("topic confirmed", zap.String("topic", names[next]), zap.Int("fetch", fetch))
			next++
		}
		if next == len(names) {
			return nil
		}
		metrics.TopicChecks.WithLabelValues("missing").Inc()
		return fmt.Errorf("topic %q not listed yet", names[next])
	}, backoff.WithOperation("confirm_topics"), backoff.WithTimer(p.timer))
	if err != nil {
		return &ConfirmError{Missing: append([]string(nil), names[next:]...), Err: err}
	}
	p.log.Info("all topics confirmed", zap.Strings("topics", names), zap.Int("fetches", fetch))
	return nil
}

// snapshot читает один TopicSet со своим бюджетом мгновенных ретраев.
func (p *TopicPoller) snapshot(ctx context.Context, fetch int) (kafka.TopicSet, error) {
	var topics kafka.TopicSet
	attempt := 0
	err := backoff.Retry(ctx, p.listRetries, p.log, func(ctx context.Context) error {
		attempt++
		p.log.Debug("reading topics", zap.Int("fetch", fetch), zap.Int("attempt", attempt))
		set, err := p.admin.ListTopics(ctx)
		if err != nil {
			return err
		}
		topics = set
		return nil
	}, backoff.WithOperation("list_topics"), backoff.WithTimer(p.timer))
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	p.log.Info("topics read",
		zap.Int("fetch", fetch),
		zap.String("topics", strings.Join(topics.Names(), ",")),
	)
	return topics, nil
}
