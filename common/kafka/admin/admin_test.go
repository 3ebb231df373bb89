// common/kafka/admin/admin_test.go
package admin

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"

	commonkafka "github.com/Mahamadovich/practicing--microservice-architecture/common/kafka"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

// Проверяем applyDefaults и validate.
func TestConfigDefaultsAndValidate(t *testing.T) {
	cases := []struct {
		name    string
		input   Config
		wantErr bool
	}{
		{"empty", Config{}, true},
		{"ok", Config{Brokers: []string{"b1"}}, false},
		{"badVersion", Config{Brokers: []string{"b1"}, Version: "not-a-version"}, true},
		{"tooOld", Config{Brokers: []string{"b1"}, Version: "0.10.0.0"}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := c.input
			cfg.applyDefaults()
			if cfg.ClientID == "" || cfg.Version == "" || cfg.Timeout <= 0 {
				t.Errorf("defaults not applied: %+v", cfg)
			}
			err := cfg.validate()
			if (err != nil) != c.wantErr {
				t.Errorf("validate() error = %v; wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestCreateTopicsVersion(t *testing.T) {
	cases := []struct {
		v    sarama.KafkaVersion
		want int16
	}{
		{sarama.V0_10_1_0, 0},
		{sarama.V0_10_2_0, 1},
		{sarama.V1_0_0_0, 2},
		{sarama.V2_8_0_0, 3},
	}
	for _, c := range cases {
		if got := createTopicsVersion(c.v); got != c.want {
			t.Errorf("createTopicsVersion(%s) = %d; want %d", c.v, got, c.want)
		}
	}
}

func TestTopicDetails_DefaultsToOne(t *testing.T) {
	d := topicDetails([]commonkafka.TopicSpec{
		{Name: "orders", Partitions: 6, ReplicationFactor: 3},
		{Name: "users"},
	})
	if d["orders"].NumPartitions != 6 || d["orders"].ReplicationFactor != 3 {
		t.Errorf("orders detail = %+v", d["orders"])
	}
	if d["users"].NumPartitions != 1 || d["users"].ReplicationFactor != 1 {
		t.Errorf("users detail = %+v", d["users"])
	}
}

func TestClassify(t *testing.T) {
	resp := &sarama.CreateTopicsResponse{TopicErrors: map[string]*sarama.TopicError{
		"new":      {Err: sarama.ErrNoError},
		"old":      {Err: sarama.ErrTopicAlreadyExists},
		"rejected": {Err: sarama.ErrInvalidReplicationFactor},
		"moved":    {Err: sarama.ErrNotController},
	}}
	out := classify(resp)
	if len(out.created) != 1 || out.created[0] != "new" {
		t.Errorf("created = %v", out.created)
	}
	if len(out.existing) != 1 || out.existing[0] != "old" {
		t.Errorf("existing = %v", out.existing)
	}
	if _, ok := out.failed["rejected"]; !ok || len(out.failed) != 1 {
		t.Errorf("failed = %v", out.failed)
	}
	if _, ok := out.retriable["moved"]; !ok || len(out.retriable) != 1 {
		t.Errorf("retriable = %v", out.retriable)
	}
}

func newMockCluster(t *testing.T, topics ...string) *sarama.MockBroker {
	t.Helper()
	mb := sarama.NewMockBroker(t, 1)
	meta := sarama.NewMockMetadataResponse(t).
		SetController(mb.BrokerID()).
		SetBroker(mb.Addr(), mb.BrokerID())
	for _, topic := range topics {
		meta = meta.SetLeader(topic, 0, mb.BrokerID())
	}
	mb.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest":     meta,
		"CreateTopicsRequest": sarama.NewMockCreateTopicsResponse(t),
	})
	return mb
}

func newTestAdmin(t *testing.T, brokers ...string) commonkafka.TopicAdmin {
	t.Helper()
	a, err := New(Config{Brokers: brokers, Version: "1.0.0", Timeout: time.Second}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestCreateTopics_MockBroker(t *testing.T) {
	mb := newMockCluster(t)
	defer mb.Close()

	a := newTestAdmin(t, mb.Addr())
	specs := commonkafka.TopicSpecs([]string{"orders", "users", "_reserved"}, 3, 1)
	// "_reserved" отклоняется mock-брокером, но это не ошибка batch-а.
	if err := a.CreateTopics(context.Background(), specs); err != nil {
		t.Fatalf("CreateTopics: %v", err)
	}
}

// NOT_CONTROLLER по топику — ошибка batch-а, повторная отправка проходит.
func TestCreateTopics_RetriableTopicError(t *testing.T) {
	mb := newMockCluster(t)
	defer mb.Close()

	notController := &sarama.CreateTopicsResponse{
		Version: 2,
		TopicErrors: map[string]*sarama.TopicError{
			"orders": {Err: sarama.ErrNotController},
			"users":  {Err: sarama.ErrNoError},
		},
	}
	mb.SetHandlerByMap(map[string]sarama.MockResponse{
		"MetadataRequest": sarama.NewMockMetadataResponse(t).
			SetController(mb.BrokerID()).
			SetBroker(mb.Addr(), mb.BrokerID()),
		"CreateTopicsRequest": sarama.NewMockSequence(notController, sarama.NewMockCreateTopicsResponse(t)),
	})

	a := newTestAdmin(t, mb.Addr())
	specs := commonkafka.TopicSpecs([]string{"orders", "users"}, 1, 1)

	err := a.CreateTopics(context.Background(), specs)
	if !errors.Is(err, sarama.ErrNotController) {
		t.Fatalf("first submit: want ErrNotController, got %v", err)
	}
	if !strings.Contains(err.Error(), "orders") {
		t.Errorf("error must name the topic: %v", err)
	}
	if err := a.CreateTopics(context.Background(), specs); err != nil {
		t.Fatalf("second submit: %v", err)
	}
}

func TestCreateTopics_EmptyBatch(t *testing.T) {
	a := newTestAdmin(t, "127.0.0.1:1")
	if err := a.CreateTopics(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must be a no-op, got %v", err)
	}
}

func TestListTopics_MockBroker(t *testing.T) {
	mb := newMockCluster(t, "orders", "users")
	defer mb.Close()

	a := newTestAdmin(t, mb.Addr())
	set, err := a.ListTopics(context.Background())
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	names := set.Names()
	sort.Strings(names)
	if strings.Join(names, ",") != "orders,users" {
		t.Errorf("topics = %v; want [orders users]", names)
	}
}

func TestListTopics_UnreachableBroker(t *testing.T) {
	a := newTestAdmin(t, "127.0.0.1:1")
	if _, err := a.ListTopics(context.Background()); err == nil {
		t.Fatal("expected error for unreachable broker")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{}, logger.NewNop()); err == nil {
		t.Fatal("expected error for empty Config, got nil")
	}
}
