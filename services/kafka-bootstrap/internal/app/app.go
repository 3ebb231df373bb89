// services/kafka-bootstrap/internal/app/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Mahamadovich/practicing--microservice-architecture/common"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/httpserver"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka/admin"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/shutdown"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/telemetry"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/config"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/metrics"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/readiness"
)

const shutdownTimeout = 5 * time.Second

// Gate — то, что app ждёт от readiness-гейта.
type Gate interface {
	EnsureReady(ctx context.Context) error
}

// ProbeServer — HTTP-сервер /metrics, /healthz, /readyz.
type ProbeServer interface {
	Run(ctx context.Context) error
}

// Run поднимает зависимости, прогоняет гейт и возвращает его результат.
// Ненулевая ошибка означает, что downstream-сервис стартовать не должен.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	common.InitServiceName(cfg.ServiceName)
	metrics.Register()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdown.Graceful("telemetry", shutdownTimeout, shutdownTracer, log)

	// Kafka admin: клиент создаётся лениво при первом запросе
	adm, err := admin.New(cfg.AdminConfig(), log)
	if err != nil {
		return fmt.Errorf("kafka admin init: %w", err)
	}
	defer shutdown.Close("kafka-admin", adm.Close, log)

	registryClient := &http.Client{
		Timeout:   cfg.SchemaRegistry.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	gate, err := readiness.New(cfg.GateConfig(), adm, registryClient, log)
	if err != nil {
		return fmt.Errorf("readiness gate init: %w", err)
	}

	var srv ProbeServer
	if cfg.HTTP.Addr != "" {
		httpSrv, err := httpserver.New(cfg.HTTP, gate.Ready, log,
			httpserver.RequestIDMiddleware(),
			httpserver.RecoverMiddleware(log),
			httpserver.MetricsMiddleware(),
			httpserver.CORSMiddleware(),
		)
		if err != nil {
			return fmt.Errorf("httpserver init: %w", err)
		}
		srv = httpSrv
	}

	return Serve(ctx, gate, srv, cfg.ExitOnReady, log)
}

// Serve запускает гейт и (если srv != nil) probe-сервер в одной errgroup.
// exitOnReady=true: после Ready сервер останавливается и Serve возвращает nil.
// exitOnReady=false: сервер работает до отмены ctx.
func Serve(ctx context.Context, gate Gate, srv ProbeServer, exitOnReady bool, log *logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	srvCtx, stopServer := context.WithCancel(gctx)
	defer stopServer()

	if srv != nil {
		g.Go(func() error { return srv.Run(srvCtx) })
	}

	g.Go(func() error {
		if err := gate.EnsureReady(gctx); err != nil {
			return err
		}
		if exitOnReady || srv == nil {
			log.Info("bootstrap complete, exiting")
			stopServer()
			return nil
		}
		log.Info("bootstrap complete, serving probes until shutdown")
		<-gctx.Done()
		return nil
	})

	return g.Wait()
}
