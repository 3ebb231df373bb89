package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// GateState — текущее состояние readiness-gate (числовое значение readiness.State).
	GateState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bootstrap",
		Subsystem: "gate",
		Name:      "state",
		Help:      "Current readiness gate state (0 idle, 1 provisioning, 2 confirming topics, 3 checking registry, 4 ready, 5 failed)",
	})

	// StageDuration — длительность каждого этапа gate с результатом.
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bootstrap",
		Subsystem: "gate",
		Name:      "stage_duration_seconds",
		Help:      "Duration of readiness gate stages (seconds)",
		Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"stage", "result"})

	// TopicChecks — проверки снимка топиков: confirmed | missing.
	TopicChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bootstrap",
		Subsystem: "topics",
		Name:      "checks_total",
		Help:      "Topic snapshot membership checks by result",
	}, []string{"result"})

	// RegistryProbes — GET-запросы к schema registry по классу ответа.
	RegistryProbes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bootstrap",
		Subsystem: "schema_registry",
		Name:      "probes_total",
		Help:      "Schema registry probes by status class (2xx, 3xx, 4xx, 5xx, other, error)",
	}, []string{"class"})
)

// Register регистрирует все метрики в заданном реестре.
// Можно вызвать без аргументов, чтобы зарегистрировать в DefaultRegisterer.
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			GateState,
			StageDuration,
			TopicChecks,
			RegistryProbes,
		)
	})
}
