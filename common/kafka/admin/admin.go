// common/kafka/admin/admin.go
package admin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	commonkafka "github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/telemetry"
)

// -----------------------------------------------------------------------------
// Service label (заполняется через common.InitServiceName)
// -----------------------------------------------------------------------------

var serviceLabel = "unknown"

// SetServiceLabel вызывается из common.InitServiceName(..) один раз при старте.
func SetServiceLabel(name string) { serviceLabel = name }

// -----------------------------------------------------------------------------
// Prometheus-метрики
// -----------------------------------------------------------------------------

var adminMetrics = struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Topics   *prometheus.GaugeVec
}{
	Requests: promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "common", Subsystem: "kafka_admin", Name: "requests_total",
			Help: "Kafka admin requests by operation and result",
		},
		[]string{"service", "operation", "result"},
	),
	Latency: promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "common", Subsystem: "kafka_admin", Name: "request_latency_seconds",
			Help:    "Kafka admin request latency (seconds)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	),
	Topics: promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "common", Subsystem: "kafka_admin", Name: "listed_topics",
			Help: "Number of topics returned by the last ListTopics call",
		},
		[]string{"service"},
	),
}

// -----------------------------------------------------------------------------
// Tracing
// -----------------------------------------------------------------------------

var tracer = telemetry.Tracer("kafka-admin")

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config groups all tunables for the admin client.
//
// Zero values are replaced with sane defaults by applyDefaults().
type Config struct {
	// Brokers — список адресов Kafka-брокеров.
	Brokers []string

	// ClientID передаётся брокеру в каждом запросе.
	ClientID string

	// Version — версия протокола Kafka, например "2.8.0".
	// CreateTopics требует как минимум 0.10.1.0.
	Version string

	// Timeout ограничивает dial/read/write и ожидание CreateTopics на брокере.
	Timeout time.Duration
}

// applyDefaults заполняет zero-поля безопасными дефолтами.
func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "kafka-bootstrap"
	}
	if c.Version == "" {
		c.Version = "2.8.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// validate выполняет быстрые sanity-checks.
func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka admin: brokers required")
	}
	v, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return fmt.Errorf("kafka admin: invalid Version %q: %w", c.Version, err)
	}
	if !v.IsAtLeast(sarama.V0_10_1_0) {
		return fmt.Errorf("kafka admin: Version %s does not support CreateTopics", c.Version)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Private helpers
// -----------------------------------------------------------------------------

func buildSaramaConfig(c Config) (*sarama.Config, error) {
	v, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("kafka admin: invalid Version %q: %w", c.Version, err)
	}

	sc := sarama.NewConfig()
	sc.ClientID = c.ClientID
	sc.Version = v
	sc.Net.DialTimeout = c.Timeout
	sc.Net.ReadTimeout = c.Timeout
	sc.Net.WriteTimeout = c.Timeout
	sc.Admin.Timeout = c.Timeout
	sc.Metadata.Full = true

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("kafka admin: sarama config: %w", err)
	}
	return sc, nil
}

// createTopicsVersion подбирает версию CreateTopicsRequest под кластер.
func createTopicsVersion(v sarama.KafkaVersion) int16 {
	switch {
	case v.IsAtLeast(sarama.V2_0_0_0):
		return 3
	case v.IsAtLeast(sarama.V0_11_0_0):
		return 2
	case v.IsAtLeast(sarama.V0_10_2_0):
		return 1
	default:
		return 0
	}
}

// topicDetails строит sarama-описание batch-а. Нулевые partitions и
// replication factor заменяются на 1.
func topicDetails(specs []commonkafka.TopicSpec) map[string]*sarama.TopicDetail {
	details := make(map[string]*sarama.TopicDetail, len(specs))
	for _, s := range specs {
		partitions := s.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		rf := s.ReplicationFactor
		if rf <= 0 {
			rf = 1
		}
		details[s.Name] = &sarama.TopicDetail{
			NumPartitions:     partitions,
			ReplicationFactor: rf,
		}
	}
	return details
}

// topicOutcome — результат batch-а по одному топику.
type topicOutcome struct {
	created   []string
	existing  []string
	retriable map[string]error // batch надо отправить повторно
	failed    map[string]error // только логируем, решает poller
}

// isRetriable — коды, после которых брокер мог топик не создать, но
// повторная отправка batch-а имеет смысл (смена контроллера, таймаут).
func isRetriable(kerr sarama.KError) bool {
	switch kerr {
	case sarama.ErrNotController,
		sarama.ErrRequestTimedOut,
		sarama.ErrLeaderNotAvailable,
		sarama.ErrBrokerNotAvailable,
		sarama.ErrNetworkException:
		return true
	default:
		return false
	}
}

func classify(resp *sarama.CreateTopicsResponse) topicOutcome {
	out := topicOutcome{
		retriable: make(map[string]error),
		failed:    make(map[string]error),
	}
	for name, te := range resp.TopicErrors {
		switch {
		case te == nil || te.Err == sarama.ErrNoError:
			out.created = append(out.created, name)
		case te.Err == sarama.ErrTopicAlreadyExists:
			out.existing = append(out.existing, name)
		case isRetriable(te.Err):
			out.retriable[name] = te
		default:
			out.failed[name] = te
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Admin implementation
// -----------------------------------------------------------------------------

type kafkaAdmin struct {
	cfg    Config
	sc     *sarama.Config
	logger *logger.Logger

	mu     sync.Mutex
	client sarama.Client
}

// New создаёт admin-клиент. Подключение к кластеру откладывается до первого
// вызова, чтобы ретраи вызывающей стороны покрывали и недоступный брокер.
func New(cfg Config, log *logger.Logger) (commonkafka.TopicAdmin, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &kafkaAdmin{
		cfg:    cfg,
		sc:     sc,
		logger: log.Named("kafka-admin"),
	}, nil
}

func (a *kafkaAdmin) getClient() (sarama.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	c, err := sarama.NewClient(a.cfg.Brokers, a.sc)
	if err != nil {
		return nil, fmt.Errorf("kafka admin: new client: %w", err)
	}
	a.client = c
	a.logger.Info("kafka admin connected", zap.Strings("brokers", a.cfg.Brokers))
	return c, nil
}

func observe(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	adminMetrics.Requests.WithLabelValues(serviceLabel, op, result).Inc()
	adminMetrics.Latency.WithLabelValues(serviceLabel, op).Observe(time.Since(start).Seconds())
}

// CreateTopics отправляет один CreateTopicsRequest контроллеру кластера.
func (a *kafkaAdmin) CreateTopics(ctx context.Context, specs []commonkafka.TopicSpec) (err error) {
	_, span := tracer.Start(ctx, "CreateTopics", trace.WithAttributes(attribute.Int("topics", len(specs))))
	start := time.Now()
	defer func() {
		observe("create_topics", start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(specs) == 0 {
		return nil
	}
	client, err := a.getClient()
	if err != nil {
		return err
	}
	controller, err := client.Controller()
	if err != nil {
		return fmt.Errorf("kafka admin: controller: %w", err)
	}

	req := &sarama.CreateTopicsRequest{
		Version:      createTopicsVersion(a.sc.Version),
		TopicDetails: topicDetails(specs),
		Timeout:      a.cfg.Timeout,
	}
	resp, err := controller.CreateTopics(req)
	if err != nil {
		// контроллер мог смениться — перечитаем перед следующей попыткой
		if _, rerr := client.RefreshController(); rerr != nil {
			a.logger.Debug("refresh controller failed", zap.Error(rerr))
		}
		return fmt.Errorf("kafka admin: create topics: %w", err)
	}

	out := classify(resp)
	if len(out.created) > 0 {
		a.logger.Info("topics created", zap.Strings("topics", out.created))
	}
	if len(out.existing) > 0 {
		a.logger.Info("topics already exist", zap.Strings("topics", out.existing))
	}
	for name, terr := range out.failed {
		a.logger.Warn("topic create rejected", zap.String("topic", name), zap.Error(terr))
	}
	if len(out.retriable) > 0 {
		names := make([]string, 0, len(out.retriable))
		for name := range out.retriable {
			names = append(names, name)
		}
		sort.Strings(names)
		if _, rerr := client.RefreshController(); rerr != nil {
			a.logger.Debug("refresh controller failed", zap.Error(rerr))
		}
		return fmt.Errorf("kafka admin: create topics %v: %w", names, out.retriable[names[0]])
	}
	return nil
}

// ListTopics обновляет метаданные и возвращает имена всех топиков.
func (a *kafkaAdmin) ListTopics(ctx context.Context) (_ commonkafka.TopicSet, err error) {
	_, span := tracer.Start(ctx, "ListTopics")
	start := time.Now()
	defer func() {
		observe("list_topics", start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	client, err := a.getClient()
	if err != nil {
		return nil, err
	}
	if err := client.RefreshMetadata(); err != nil {
		return nil, fmt.Errorf("kafka admin: refresh metadata: %w", err)
	}
	names, err := client.Topics()
	if err != nil {
		return nil, fmt.Errorf("kafka admin: list topics: %w", err)
	}
	adminMetrics.Topics.WithLabelValues(serviceLabel).Set(float64(len(names)))
	span.SetAttributes(attribute.Int("topics", len(names)))
	return commonkafka.NewTopicSet(names...), nil
}

// Close закрывает sarama-клиент, если он был создан.
func (a *kafkaAdmin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	if err != nil {
		a.logger.Error("kafka admin close failed", zap.Error(err))
		return err
	}
	a.logger.Info("kafka admin closed")
	return nil
}
