package readiness

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/backoff"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

func TestWaitUntilTopicsExist_AppearOverTime(t *testing.T) {
	admin := &fakeAdmin{snapshots: []kafka.TopicSet{
		kafka.NewTopicSet(),
		kafka.NewTopicSet("orders"),
		kafka.NewTopicSet("orders", "users"),
	}}
	timer := newFakeTimer()
	p := NewTopicPoller(admin, 3, logger.NewNop(), WithTimer(timer))
	cfg := backoff.Config{MaxAttempts: 5, InitialDelay: time.Second, Multiplier: 2}

	if err := p.WaitUntilTopicsExist(context.Background(), []string{"orders", "users"}, cfg); err != nil {
		t.Fatalf("WaitUntilTopicsExist: %v", err)
	}
	if admin.listCalls != 3 {
		t.Errorf("fetches = %d; want 3", admin.listCalls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(timer.waits, want) {
		t.Errorf("waits = %v; want %v", timer.waits, want)
	}
}

func TestWaitUntilTopicsExist_NoPollingWhenPresent(t *testing.T) {
	admin := &fakeAdmin{snapshots: []kafka.TopicSet{kafka.NewTopicSet("orders", "users", "other")}}
	timer := newFakeTimer()
	p := NewTopicPoller(admin, 3, logger.NewNop(), WithTimer(timer))
	cfg := backoff.Config{MaxAttempts: 5, InitialDelay: time.Second, Multiplier: 2}

	if err := p.WaitUntilTopicsExist(context.Background(), []string{"orders", "users"}, cfg); err != nil {
		t.Fatalf("WaitUntilTopicsExist: %v", err)
	}
	if admin.listCalls != 1 || len(timer.waits) != 0 {
		t.Errorf("fetches = %d waits = %v; want 1 fetch and no waits", admin.listCalls, timer.waits)
	}
}

func TestWaitUntilTopicsExist_ExhaustsAfterMaxAttemptsPlusOne(t *testing.T) {
	for _, m := range []int{1, 2, 5} {
		admin := &fakeAdmin{snapshots: []kafka.TopicSet{kafka.NewTopicSet("unrelated")}}
		timer := newFakeTimer()
		p := NewTopicPoller(admin, 3, logger.NewNop(), WithTimer(timer))
		cfg := backoff.Config{MaxAttempts: m, InitialDelay: 10 * time.Millisecond, Multiplier: 3}

		err := p.WaitUntilTopicsExist(context.Background(), []string{"orders", "users"}, cfg)

		var cerr *ConfirmError
		if !errors.As(err, &cerr) {
			t.Fatalf("m=%d: expected ConfirmError, got %v", m, err)
		}
		if !reflect.DeepEqual(cerr.Missing, []string{"orders", "users"}) {
			t.Errorf("m=%d: missing = %v", m, cerr.Missing)
		}
		var maxErr *backoff.ErrMaxRetries
		if !errors.As(err, &maxErr) || maxErr.Attempts != m+1 {
			t.Errorf("m=%d: expected ErrMaxRetries with %d attempts, got %v", m, m+1, err)
		}
		if admin.listCalls != m+1 {
			t.Errorf("m=%d: fetches = %d; want %d", m, admin.listCalls, m+1)
		}
		if !reflect.DeepEqual(timer.waits, backoff.Delays(cfg)) {
			t.Errorf("m=%d: waits = %v; want %v", m, timer.waits, backoff.Delays(cfg))
		}
	}
}

func TestWaitUntilTopicsExist_CounterSharedAcrossNames(t *testing.T) {
	// счётчик общий на все имена: четвёртого чтения нет
	admin := &fakeAdmin{snapshots: []kafka.TopicSet{
		kafka.NewTopicSet(),
		kafka.NewTopicSet("a"),
		kafka.NewTopicSet("a"),
		kafka.NewTopicSet("a", "b"),
	}}
	p := NewTopicPoller(admin, 3, logger.NewNop(), WithTimer(newFakeTimer()))
	cfg := backoff.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 1}

	err := p.WaitUntilTopicsExist(context.Background(), []string{"a", "b"}, cfg)

	var cerr *ConfirmError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfirmError, got %v", err)
	}
	if !reflect.DeepEqual(cerr.Missing, []string{"b"}) {
		t.Errorf("missing = %v; want [b]", cerr.Missing)
	}
	if admin.listCalls != 3 {
		t.Errorf("fetches = %d; want 3", admin.listCalls)
	}
}

func TestWaitUntilTopicsExist_EmptySnapshotKeepsWaiting(t *testing.T) {
	admin := &fakeAdmin{snapshots: []kafka.TopicSet{nil, nil, kafka.NewTopicSet("orders")}}
	p := NewTopicPoller(admin, 3, logger.NewNop(), WithTimer(newFakeTimer()))
	cfg := backoff.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}

	if err := p.WaitUntilTopicsExist(context.Background(), []string{"orders"}, cfg); err != nil {
		t.Fatalf("WaitUntilTopicsExist: %v", err)
	}
	if admin.listCalls != 3 {
		t.Errorf("fetches = %d; want 3", admin.listCalls)
	}
}

func TestWaitUntilTopicsExist_ListRetriedIndependently(t *testing.T) {
	// два сбоя ListTopics гасятся бюджетом чтения и не тратят попытки подтверждения
	admin := &fakeAdmin{
		snapshots: []kafka.TopicSet{kafka.NewTopicSet("orders")},
		listErr: func(call int) error {
			if call <= 2 {
				return errBroker
			}
			return nil
		},
	}
	timer := newFakeTimer()
	p := NewTopicPoller(admin, 2, logger.NewNop(), WithTimer(timer))
	cfg := backoff.Config{MaxAttempts: 1, InitialDelay: time.Second, Multiplier: 2}

	if err := p.WaitUntilTopicsExist(context.Background(), []string{"orders"}, cfg); err != nil {
		t.Fatalf("WaitUntilTopicsExist: %v", err)
	}
	for _, w := range timer.waits {
		if w != 0 {
			t.Errorf("unexpected back-off wait %s for list retries", w)
		}
	}
}

func TestWaitUntilTopicsExist_ListExhaustionIsFatal(t *testing.T) {
	admin := &fakeAdmin{listErr: func(int) error { return errBroker }}
	p := NewTopicPoller(admin, 2, logger.NewNop(), WithTimer(newFakeTimer()))
	cfg := backoff.Config{MaxAttempts: 5, InitialDelay: time.Second, Multiplier: 2}

	err := p.WaitUntilTopicsExist(context.Background(), []string{"orders"}, cfg)

	var cerr *ConfirmError
	if !errors.As(err, &cerr) || !errors.Is(err, errBroker) {
		t.Fatalf("expected ConfirmError wrapping broker error, got %v", err)
	}
	if admin.listCalls != 3 {
		t.Errorf("list calls = %d; want 3 (1 + 2 retries, no outer polling)", admin.listCalls)
	}
}

func TestWaitUntilTopicsExist_CancelledContext(t *testing.T) {
	admin := &fakeAdmin{snapshots: []kafka.TopicSet{kafka.NewTopicSet()}}
	p := NewTopicPoller(admin, 1, logger.NewNop())
	cfg := backoff.Config{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.WaitUntilTopicsExist(ctx, []string{"orders"}, cfg)

	var cerr *ConfirmError
	if !errors.As(err, &cerr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ConfirmError wrapping deadline, got %v", err)
	}
}
