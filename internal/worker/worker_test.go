package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"thumbnail-server/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type fakeEnsurer struct {
	mu      sync.Mutex
	queries []domain.ImageQuery
	err     error
	panics  bool
}

func (f *fakeEnsurer) EnsureThumb(ctx context.Context, q domain.ImageQuery) (string, domain.ThumbStatus, error) {
	if f.panics {
		panic("boom")
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return "", domain.StatusFailed, f.err
	}
	return "/thumb/" + q.Key(), domain.StatusCreated, nil
}

type sentMessage struct {
	key   string
	value []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeProducer) Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{key: string(key), value: value})
	return nil
}

type fakeConsumer struct {
	messages []kafka.Message

	mu        sync.Mutex
	committed []int64
}

func (f *fakeConsumer) StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy) {
	for _, msg := range f.messages {
		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (f *fakeConsumer) Commit(ctx context.Context, msg kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg.Offset)
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

func (f *fakeConsumer) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

func taskMessage(t *testing.T, offset int64, task domain.WarmTask) kafka.Message {
	t.Helper()
	value, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return kafka.Message{Offset: offset, Key: []byte(task.Query().Key()), Value: value}
}

func TestProcessMessagePublishesCreatedEvent(t *testing.T) {
	ensurer := &fakeEnsurer{}
	producer := &fakeProducer{}
	p := NewPool(&fakeConsumer{}, producer, ensurer, retry.Strategy{}, 1, &zlog.Logger)

	msg := taskMessage(t, 1, domain.WarmTask{ID: "t1", File: "fjord", Width: "10", Height: "20"})
	if err := p.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("process error: %v", err)
	}

	if len(producer.sent) != 1 {
		t.Fatalf("expected one event, got %d", len(producer.sent))
	}
	if producer.sent[0].key != "fjord-10x20.jpg" {
		t.Fatalf("unexpected event key %q", producer.sent[0].key)
	}

	var event domain.ThumbnailEvent
	if err := json.Unmarshal(producer.sent[0].value, &event); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if event.TaskID != "t1" || event.Status != domain.StatusCreated || event.Path != "/thumb/fjord-10x20.jpg" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestProcessMessageReportsFailure(t *testing.T) {
	ensurer := &fakeEnsurer{err: errors.New("Input file is missing")}
	producer := &fakeProducer{}
	p := NewPool(&fakeConsumer{}, producer, ensurer, retry.Strategy{}, 1, &zlog.Logger)

	msg := taskMessage(t, 2, domain.WarmTask{ID: "t2", File: "gone", Width: "1", Height: "1"})
	if err := p.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("a failed render must still be reported, got %v", err)
	}

	var event domain.ThumbnailEvent
	if err := json.Unmarshal(producer.sent[0].value, &event); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if event.Status != domain.StatusFailed || event.Error != "Input file is missing" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestProcessMessageDropsUndecodable(t *testing.T) {
	ensurer := &fakeEnsurer{}
	producer := &fakeProducer{}
	p := NewPool(&fakeConsumer{}, producer, ensurer, retry.Strategy{}, 1, &zlog.Logger)

	if err := p.processMessage(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("expected undecodable message to be dropped, got %v", err)
	}
	if len(ensurer.queries) != 0 || len(producer.sent) != 0 {
		t.Fatalf("nothing should be processed for an undecodable message")
	}
}

func TestProcessMessageSendFailure(t *testing.T) {
	p := NewPool(&fakeConsumer{}, &fakeProducer{err: errors.New("broker down")}, &fakeEnsurer{}, retry.Strategy{}, 1, &zlog.Logger)

	msg := taskMessage(t, 3, domain.WarmTask{ID: "t3", File: "fjord", Width: "1", Height: "1"})
	if err := p.processMessage(context.Background(), msg); err == nil {
		t.Fatalf("expected send failure to surface")
	}
}

func TestSafeProcessMessageRecoversPanic(t *testing.T) {
	p := NewPool(&fakeConsumer{}, &fakeProducer{}, &fakeEnsurer{panics: true}, retry.Strategy{}, 1, &zlog.Logger)

	msg := taskMessage(t, 4, domain.WarmTask{ID: "t4", File: "fjord", Width: "1", Height: "1"})
	if err := p.safeProcessMessage(context.Background(), 0, msg); err == nil {
		t.Fatalf("expected panic to be turned into an error")
	}
}

func TestRunCommitsProcessedMessages(t *testing.T) {
	consumer := &fakeConsumer{}
	for i := int64(0); i < 5; i++ {
		consumer.messages = append(consumer.messages, taskMessage(t, i, domain.WarmTask{ID: "t", File: "fjord", Width: "1", Height: "1"}))
	}
	producer := &fakeProducer{}
	p := NewPool(consumer, producer, &fakeEnsurer{}, retry.Strategy{}, 3, &zlog.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for consumer.commits() < 5 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("timed out waiting for commits, got %d", consumer.commits())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pool did not stop after cancel")
	}
}

func TestProcessMessageRejectsInvalidTask(t *testing.T) {
	cases := []struct {
		name string
		task domain.WarmTask
		want error
	}{
		{"parent traversal", domain.WarmTask{ID: "t5", File: "../../../etc/evil", Width: "1", Height: "1"}, domain.ErrInvalidFile},
		{"zero width", domain.WarmTask{ID: "t6", File: "fjord", Width: "0", Height: "1"}, domain.ErrInvalidDimension},
		{"oversized", domain.WarmTask{ID: "t7", File: "fjord", Width: "2147483648", Height: "2147483648"}, domain.ErrInvalidDimension},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ensurer := &fakeEnsurer{}
			producer := &fakeProducer{}
			p := NewPool(&fakeConsumer{}, producer, ensurer, retry.Strategy{}, 1, &zlog.Logger)

			if err := p.processMessage(context.Background(), taskMessage(t, 5, tc.task)); err != nil {
				t.Fatalf("an invalid task must still be reported, got %v", err)
			}
			if len(ensurer.queries) != 0 {
				t.Fatalf("invalid task must not reach the cache, got %v", ensurer.queries)
			}
			if len(producer.sent) != 1 {
				t.Fatalf("expected one event, got %d", len(producer.sent))
			}

			var event domain.ThumbnailEvent
			if err := json.Unmarshal(producer.sent[0].value, &event); err != nil {
				t.Fatalf("unmarshal error: %v", err)
			}
			if event.TaskID != tc.task.ID || event.Status != domain.StatusFailed || event.Error != tc.want.Error() || event.Path != "" {
				t.Fatalf("unexpected event %+v", event)
			}
		})
	}
}
