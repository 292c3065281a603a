// Package kafka holds the Kafka leg of the audit outbox. The outbox worker
// drains pending outbox rows through Producer; Kafka consumers (indexers,
// reporting) are external collaborators.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer publishes audit payloads to a single topic, keyed by aggregate id
// so per-account ordering is preserved.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to the given brokers. Production is synchronous per
// record batch; the worker controls batching by how many rows it drains.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// Publish sends one payload and waits for the broker ack.
func (p *Producer) Publish(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *Producer) Close() {
	p.client.Close()
}
