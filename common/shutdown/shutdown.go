// Package shutdown — единообразное закрытие ресурсов с логированием.
package shutdown

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

// Graceful вызывает fn с отдельным контекстом, ограниченным timeout.
// Используется для tracer/http shutdown, когда рабочий ctx уже отменён.
// Ошибка только логируется и возвращается для тестов.
func Graceful(name string, timeout time.Duration, fn func(ctx context.Context) error, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Close(name, func() error { return fn(ctx) }, log)
}

// Close — то же для ресурсов с обычным Close() error.
func Close(name string, fn func() error, log *logger.Logger) error {
	log.Info("shutdown: stopping " + name)
	if err := fn(); err != nil {
		log.Error("shutdown: error in "+name, zap.Error(err))
		return err
	}
	log.Info("shutdown: " + name + " stopped cleanly")
	return nil
}
