// services/kafka-bootstrap/internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/configloader"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/httpserver"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka/admin"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/telemetry"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/readiness"
)

// EnvPrefix — префикс переменных окружения: BOOTSTRAP_KAFKA_BROKERS и т.д.
const EnvPrefix = "BOOTSTRAP"

/*
   --------------------------------------------------------------------------
   СТРУКТУРЫ
   --------------------------------------------------------------------------
*/

// Config — все настройки сервиса.
type Config struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	// ExitOnReady: true → процесс завершается с кодом 0 сразу после Ready,
	// false → продолжает отдавать /readyz до сигнала.
	ExitOnReady bool `mapstructure:"exit_on_ready"`

	Logging        logger.Config        `mapstructure:"logging"`
	Telemetry      telemetry.Config     `mapstructure:"telemetry"`
	HTTP           httpserver.Config    `mapstructure:"http"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	SchemaRegistry SchemaRegistryConfig `mapstructure:"schema_registry"`
}

// KafkaConfig хранит адреса брокеров и описание обязательных топиков.
type KafkaConfig struct {
	Brokers           []string       `mapstructure:"brokers"`
	ClientID          string         `mapstructure:"client_id"`
	Version           string         `mapstructure:"version"`
	Timeout           time.Duration  `mapstructure:"timeout"`
	TopicNames        []string       `mapstructure:"topic_names"`
	Partitions        int32          `mapstructure:"partitions"`
	ReplicationFactor int16          `mapstructure:"replication_factor"`
	Retry             backoff.Config `mapstructure:"retry"`
}

// SchemaRegistryConfig — куда стучаться за health-check.
type SchemaRegistryConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

/*
   --------------------------------------------------------------------------
   LOADER
   --------------------------------------------------------------------------
*/

func init() {
	configloader.RegisterDefaults("service_name", "kafka-bootstrap")
	configloader.RegisterDefaults("service_version", "v1.0.0")
	configloader.RegisterDefaults("exit_on_ready", true)

	// Logging
	configloader.RegisterDefaults("logging.level", "info")
	configloader.RegisterDefaults("logging.dev_mode", false)

	// Telemetry: пустой endpoint — трассировка выключена
	configloader.RegisterDefaults("telemetry.endpoint", "")
	configloader.RegisterDefaults("telemetry.insecure", false)
	configloader.RegisterDefaults("telemetry.sampler_ratio", 1.0)

	// HTTP: пустой addr — сервер не поднимается
	configloader.RegisterDefaults("http.addr", ":8080")
	configloader.RegisterDefaults("http.read_timeout", "10s")
	configloader.RegisterDefaults("http.write_timeout", "15s")
	configloader.RegisterDefaults("http.idle_timeout", "60s")
	configloader.RegisterDefaults("http.shutdown_timeout", "5s")
	configloader.RegisterDefaults("http.metrics_path", "/metrics")
	configloader.RegisterDefaults("http.healthz_path", "/healthz")
	configloader.RegisterDefaults("http.readyz_path", "/readyz")

	// Kafka
	configloader.RegisterDefaults("kafka.brokers", []string{"localhost:9092"})
	configloader.RegisterDefaults("kafka.client_id", "kafka-bootstrap")
	configloader.RegisterDefaults("kafka.version", "2.8.0")
	configloader.RegisterDefaults("kafka.timeout", "10s")
	configloader.RegisterDefaults("kafka.topic_names", []string{})
	configloader.RegisterDefaults("kafka.partitions", 1)
	configloader.RegisterDefaults("kafka.replication_factor", 1)
	configloader.RegisterDefaults("kafka.retry.max_attempts", 5)
	configloader.RegisterDefaults("kafka.retry.initial_delay", "1s")
	configloader.RegisterDefaults("kafka.retry.multiplier", 2.0)

	// Schema registry
	configloader.RegisterDefaults("schema_registry.url", "http://localhost:8081")
	configloader.RegisterDefaults("schema_registry.timeout", "5s")
}

// Load читает defaults → ENV (BOOTSTRAP_*) → YAML и валидирует результат.
// Пустой path — только defaults и ENV.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := configloader.Load(path, EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	cfg.Telemetry.ServiceName = cfg.ServiceName
	cfg.Telemetry.ServiceVersion = cfg.ServiceVersion
	return &cfg, nil
}

/*
   --------------------------------------------------------------------------
   VALIDATION
   --------------------------------------------------------------------------
*/

func (c *Config) Validate() error {
	// Service
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version is required")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	// Telemetry
	if c.Telemetry.SamplerRatio < 0 || c.Telemetry.SamplerRatio > 1 {
		return fmt.Errorf("telemetry.sampler_ratio must be within [0, 1]")
	}

	// HTTP
	if c.HTTP.Addr != "" {
		for k, p := range map[string]string{
			"http.metrics_path": c.HTTP.MetricsPath,
			"http.healthz_path": c.HTTP.HealthzPath,
			"http.readyz_path":  c.HTTP.ReadyzPath,
		} {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("%s must start with '/'", k)
			}
		}
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Kafka.Timeout <= 0 {
		return fmt.Errorf("kafka.timeout must be > 0")
	}
	if c.Kafka.Partitions < 1 {
		return fmt.Errorf("kafka.partitions must be >= 1")
	}
	if c.Kafka.ReplicationFactor < 1 {
		return fmt.Errorf("kafka.replication_factor must be >= 1")
	}
	if err := c.Kafka.Retry.Validate(); err != nil {
		return fmt.Errorf("kafka.retry: %w", err)
	}

	// Schema registry
	u, err := url.Parse(c.SchemaRegistry.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("schema_registry.url must be an absolute URL, got %q", c.SchemaRegistry.URL)
	}
	if c.SchemaRegistry.Timeout <= 0 {
		return fmt.Errorf("schema_registry.timeout must be > 0")
	}

	return c.GateConfig().Validate()
}

/*
   --------------------------------------------------------------------------
   ПРЕОБРАЗОВАНИЯ
   --------------------------------------------------------------------------
*/

// TopicSpecs строит неизменяемый список топиков из kafka.topic_names.
func (c *Config) TopicSpecs() []kafka.TopicSpec {
	return kafka.TopicSpecs(c.Kafka.TopicNames, c.Kafka.Partitions, c.Kafka.ReplicationFactor)
}

// GateConfig — то, что нужно readiness-гейту.
func (c *Config) GateConfig() readiness.Config {
	return readiness.Config{
		Topics:      c.TopicSpecs(),
		Retry:       c.Kafka.Retry,
		RegistryURL: c.SchemaRegistry.URL,
	}
}

// AdminConfig — настройки sarama-клиента.
func (c *Config) AdminConfig() admin.Config {
	return admin.Config{
		Brokers:  c.Kafka.Brokers,
		ClientID: c.Kafka.ClientID,
		Version:  c.Kafka.Version,
		Timeout:  c.Kafka.Timeout,
	}
}
