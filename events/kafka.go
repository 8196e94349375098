package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces events as JSON records to a Kafka topic. Records are
// keyed by event kind so that events of the same kind keep their order.
type KafkaSink struct {
	client *kgo.Client
}

// NewKafkaSink connects to the given brokers.
func NewKafkaSink(brokers []string, topic string, opts ...kgo.Opt) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("no kafka topic provided")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client}, nil
}

// Publish implements Sink.
func (k *KafkaSink) Publish(ctx context.Context, e *Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	record := &kgo.Record{Key: []byte(e.Kind), Value: value}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", e.ID, err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (k *KafkaSink) Close() {
	k.client.Close()
}
