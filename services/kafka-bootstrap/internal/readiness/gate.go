// services/kafka-bootstrap/internal/readiness/gate.go
package readiness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/telemetry"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/metrics"
)

var tracer = telemetry.Tracer("readiness-gate")

// TopicCreator отправляет запрос на создание топиков.
type TopicCreator interface {
	CreateTopics(ctx context.Context, specs []kafka.TopicSpec) error
}

// TopicWaiter блокируется, пока топики не появятся.
type TopicWaiter interface {
	WaitUntilTopicsExist(ctx context.Context, names []string, cfg backoff.Config) error
}

// HealthWaiter блокируется, пока URL не ответит 2xx.
type HealthWaiter interface {
	WaitUntilHealthy(ctx context.Context, url string, cfg backoff.Config) error
}

// Config — всё, что гейт берёт из конфига.
type Config struct {
	Topics      []kafka.TopicSpec
	Retry       backoff.Config
	RegistryURL string
}

// Validate проверяет ретраи, URL и уникальность имён топиков.
func (c Config) Validate() error {
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("readiness: retry: %w", err)
	}
	if c.RegistryURL == "" {
		return errors.New("readiness: registry URL is required")
	}
	seen := make(map[string]struct{}, len(c.Topics))
	for _, t := range c.Topics {
		if t.Name == "" {
			return errors.New("readiness: topic name must not be empty")
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("readiness: duplicate topic %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// Gate один раз прогоняет create → confirm → registry и запоминает
// результат. Failed — терминальное состояние.
type Gate struct {
	cfg      Config
	creator  TopicCreator
	topics   TopicWaiter
	registry HealthWaiter
	log      *logger.Logger

	state atomic.Int32
	once  sync.Once
	err   error
}

// NewGate собирает гейт из трёх шагов.
func NewGate(cfg Config, creator TopicCreator, topics TopicWaiter, registry HealthWaiter, log *logger.Logger) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if creator == nil || topics == nil || registry == nil {
		return nil, errors.New("readiness: all stages are required")
	}
	return &Gate{
		cfg:      cfg,
		creator:  creator,
		topics:   topics,
		registry: registry,
		log:      log.Named("readiness-gate"),
	}, nil
}

// New собирает Gate из Kafka-admin и HTTP-клиента. Создание топиков и
// чтение снимков используют cfg.Retry.MaxAttempts как бюджет мгновенных ретраев.
func New(cfg Config, admin kafka.TopicAdmin, client *http.Client, log *logger.Logger, opts ...Option) (*Gate, error) {
	if admin == nil {
		return nil, errors.New("readiness: topic admin is required")
	}
	return NewGate(cfg,
		NewProvisioner(admin, cfg.Retry.MaxAttempts, log, opts...),
		NewTopicPoller(admin, cfg.Retry.MaxAttempts, log, opts...),
		NewRegistryPoller(client, log, opts...),
		log,
	)
}

// State — текущий шаг, безопасно читать из других горутин.
func (g *Gate) State() State { return State(g.state.Load()) }

// Ready возвращает nil только в StateReady (для /readyz).
func (g *Gate) Ready() error {
	if s := g.State(); s != StateReady {
		return fmt.Errorf("readiness gate is %s", s)
	}
	return nil
}

// EnsureReady блокируется до успеха всех шагов или отказа одного из них.
// Работу делает только первый вызов, остальные возвращают его результат.
func (g *Gate) EnsureReady(ctx context.Context) error {
	g.once.Do(func() { g.err = g.run(ctx) })
	return g.err
}

func (g *Gate) run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "EnsureReady",
		trace.WithAttributes(attribute.Int("topics", len(g.cfg.Topics))))
	defer span.End()

	names := make([]string, len(g.cfg.Topics))
	for i, t := range g.cfg.Topics {
		names[i] = t.Name
	}

	stages := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateProvisioning, func(ctx context.Context) error {
			return g.creator.CreateTopics(ctx, g.cfg.Topics)
		}},
		{StateConfirmingTopics, func(ctx context.Context) error {
			return g.topics.WaitUntilTopicsExist(ctx, names, g.cfg.Retry)
		}},
		{StateCheckingRegistry, func(ctx context.Context) error {
			return g.registry.WaitUntilHealthy(ctx, g.cfg.RegistryURL, g.cfg.Retry)
		}},
	}

	start := time.Now()
	for _, st := range stages {
		if err := g.runStage(ctx, st.state, st.fn); err != nil {
			g.setState(StateFailed)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.log.WithContext(ctx).Error("readiness gate failed",
				zap.Stringer("stage", st.state),
				zap.Error(err),
			)
			return &FatalError{Stage: st.state, Err: err}
		}
	}

	g.setState(StateReady)
	g.log.WithContext(ctx).Info("readiness gate passed",
		zap.Strings("topics", names),
		zap.String("schema_registry", g.cfg.RegistryURL),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (g *Gate) runStage(ctx context.Context, state State, fn func(context.Context) error) error {
	g.setState(state)
	ctx, span := tracer.Start(ctx, state.String())
	defer span.End()

	g.log.WithContext(ctx).Info("readiness stage started", zap.Stringer("stage", state))
	start := time.Now()
	err := fn(ctx)

	result := "success"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.StageDuration.WithLabelValues(state.String(), result).Observe(time.Since(start).Seconds())
	return err
}

func (g *Gate) setState(s State) {
	g.state.Store(int32(s))
	metrics.GateState.Set(float64(s))
}
