// common/service.go
package common

import (
	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka/admin"
)

// InitServiceName задаёт единое имя сервиса для backoff и Kafka-admin.
// Нужно вызывать в main() до любых попыток логирования или отправки метрик.
func InitServiceName(name string) {
	backoff.SetServiceLabel(name)
	admin.SetServiceLabel(name)
}
