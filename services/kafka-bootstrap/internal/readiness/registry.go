// services/kafka-bootstrap/internal/readiness/registry.go
package readiness

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/metrics"
)

// IsSuccess — код ответа из [200,300).
func IsSuccess(code int) bool { return code >= 200 && code < 300 }

// RegistryPoller ждёт, пока schema registry не ответит на GET кодом 2xx.
type RegistryPoller struct {
	client *http.Client
	timer  backoff.Timer
	log    *logger.Logger
}

// NewRegistryPoller: nil client — http.DefaultClient. Сам client не меняется.
func NewRegistryPoller(client *http.Client, log *logger.Logger, opts ...Option) *RegistryPoller {
	if client == nil {
		client = http.DefaultClient
	}
	// одна попытка — один GET: 3xx считается ответом, а не переходом
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	o := buildOptions(opts)
	return &RegistryPoller{
		client: &noRedirect,
		timer:  o.timer,
		log:    log.Named("registry-poller"),
	}
}

// WaitUntilHealthy опрашивает url до ответа 2xx. Любой другой код и
// ошибка транспорта считаются одинаково.
func (p *RegistryPoller) WaitUntilHealthy(ctx context.Context, url string, cfg backoff.Config) error {
	lastStatus := 0
	err := backoff.Poll(ctx, cfg, p.log, func(ctx context.Context) error {
		status, err := p.probe(ctx, url)
		lastStatus = status
		if err != nil {
			metrics.RegistryProbes.WithLabelValues("error").Inc()
			return err
		}
		metrics.RegistryProbes.WithLabelValues(statusClass(status)).Inc()
		if !IsSuccess(status) {
			return fmt.Errorf("schema registry answered %d", status)
		}
		return nil
	}, backoff.WithOperation("schema_registry"), backoff.WithTimer(p.timer))
	if err != nil {
		return &HealthError{URL: url, LastStatus: lastStatus, Err: err}
	}
	p.log.Info("schema registry is healthy", zap.String("url", url), zap.Int("status", lastStatus))
	return nil
}

func (p *RegistryPoller) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}
