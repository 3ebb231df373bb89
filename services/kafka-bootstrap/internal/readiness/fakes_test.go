package readiness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
)

// fakeTimer срабатывает сразу и запоминает запрошенные паузы.
type fakeTimer struct {
	ch    chan time.Time
	waits []time.Duration
}

func newFakeTimer() *fakeTimer { return &fakeTimer{ch: make(chan time.Time, 1)} }

func (f *fakeTimer) Start(d time.Duration) {
	f.waits = append(f.waits, d)
	f.ch <- time.Now()
}
func (f *fakeTimer) Stop()               {}
func (f *fakeTimer) C() <-chan time.Time { return f.ch }

var errBroker = errors.New("broker not available")

// fakeAdmin отдаёт заранее заданные ответы; последний снимок повторяется.
type fakeAdmin struct {
	mu sync.Mutex

	createErr      func(call int) error
	createCalls    int
	createdBatches [][]kafka.TopicSpec

	snapshots []kafka.TopicSet
	listErr   func(call int) error
	listCalls int
}

func (f *fakeAdmin) CreateTopics(_ context.Context, specs []kafka.TopicSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createdBatches = append(f.createdBatches, specs)
	if f.createErr != nil {
		return f.createErr(f.createCalls)
	}
	return nil
}

func (f *fakeAdmin) ListTopics(context.Context) (kafka.TopicSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		if err := f.listErr(f.listCalls); err != nil {
			return nil, err
		}
	}
	if len(f.snapshots) == 0 {
		return nil, nil
	}
	i := f.listCalls - 1
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	return f.snapshots[i], nil
}

func (f *fakeAdmin) Close() error { return nil }
