// services/kafka-bootstrap/internal/readiness/errors.go
package readiness

import (
	"fmt"
	"strings"
)

// State — шаг readiness-гейта.
type State int32

const (
	StateIdle State = iota
	StateProvisioning
	StateConfirmingTopics
	StateCheckingRegistry
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProvisioning:
		return "provisioning"
	case StateConfirmingTopics:
		return "confirming_topics"
	case StateCheckingRegistry:
		return "checking_registry"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ProvisionError — batch CreateTopics не удалось отправить за отведённые ретраи.
type ProvisionError struct {
	Err error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("readiness: max retries exceeded creating topics: %v", e.Err)
}
func (e *ProvisionError) Unwrap() error { return e.Err }

// ConfirmError — часть обязательных топиков так и не появилась в снимке.
type ConfirmError struct {
	Missing []string // неподтверждённые имена на момент отказа
	Err     error
}

func (e *ConfirmError) Error() string {
	return fmt.Sprintf("readiness: topics not confirmed [%s]: %v", strings.Join(e.Missing, ", "), e.Err)
}
func (e *ConfirmError) Unwrap() error { return e.Err }

// HealthError — schema registry ни разу не ответил 2xx.
type HealthError struct {
	URL        string
	LastStatus int // 0, если последняя попытка упала на транспорте
	Err        error
}

func (e *HealthError) Error() string {
	return fmt.Sprintf("readiness: schema registry %s not healthy (last status %d): %v", e.URL, e.LastStatus, e.Err)
}
func (e *HealthError) Unwrap() error { return e.Err }

// FatalError возвращает EnsureReady: упавший шаг и его ошибка
// (ProvisionError, ConfirmError или HealthError).
type FatalError struct {
	Stage State
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("readiness gate failed in %s: %v", e.Stage, e.Err)
}
func (e *FatalError) Unwrap() error { return e.Err }
