package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultBatchTimeout bounds how long a change record waits for batch mates.
// kafka-go defaults to one second, which would delay every leaderboard push
// on a topic that sees a handful of changes per minute.
const DefaultBatchTimeout = 10 * time.Millisecond

// ProducerOption configures a ChangeProducer.
type ProducerOption func(*ChangeProducer)

// WithBatchTimeout overrides DefaultBatchTimeout.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(p *ChangeProducer) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// ChangeProducer writes ledger change records to Kafka, one writer per topic.
// Records are hashed on their scope:subject key so every change for one
// athlete lands on the same partition and consumers see them in commit order.
type ChangeProducer struct {
	brokers      []string
	batchTimeout time.Duration

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewChangeProducer creates a ChangeProducer for the given brokers.
func NewChangeProducer(brokers []string, opts ...ProducerOption) *ChangeProducer {
	p := &ChangeProducer{
		brokers:      brokers,
		batchTimeout: DefaultBatchTimeout,
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages publishes msgs to topic. Records without a key are rejected
// since they would be scattered across partitions.
func (p *ChangeProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	for i := range msgs {
		if len(msgs[i].Key) == 0 {
			return fmt.Errorf("change record %d for topic %s has no partition key", i, topic)
		}
	}
	if err := p.writer(topic).WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d change(s) to %s: %w", len(msgs), topic, err)
	}
	return nil
}

func (p *ChangeProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: p.batchTimeout,
		Compression:  kafka.Snappy,
	}
	p.writers[topic] = w
	return w
}

// Close flushes and releases every writer.
func (p *ChangeProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}
