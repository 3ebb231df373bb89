// common/kafka/interface.go
//
// Пакет kafka задаёт минимальные контракты администрирования топиков, не
// тянет за собой Sarama и никак не зависит от конкретной реализации.
package kafka

import (
	"context"
	"sort"
)

// TopicSpec описывает топик, который должен существовать в кластере.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// TopicSpecs строит по одному TopicSpec на каждое имя с общими
// partitions и replicationFactor.
func TopicSpecs(names []string, partitions int32, replicationFactor int16) []TopicSpec {
	specs := make([]TopicSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, TopicSpec{Name: n, Partitions: partitions, ReplicationFactor: replicationFactor})
	}
	return specs
}

// TopicSet — снимок имён топиков, известных брокеру в момент запроса.
// Снимок не изменяется после получения.
type TopicSet map[string]struct{}

// NewTopicSet собирает TopicSet из списка имён.
func NewTopicSet(names ...string) TopicSet {
	s := make(TopicSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has сообщает, присутствует ли топик в снимке. Безопасен для nil.
func (s TopicSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names возвращает отсортированный список имён.
func (s TopicSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TopicAdmin описывает административные операции над топиками.
type TopicAdmin interface {
	// CreateTopics отправляет один batch-запрос на создание всех specs.
	// Уже существующие топики ошибкой не считаются.
	CreateTopics(ctx context.Context, specs []TopicSpec) error
	// ListTopics возвращает текущий снимок топиков кластера.
	ListTopics(ctx context.Context) (TopicSet, error)
	Close() error
}
