package kafka

import (
	"context"

	"github.com/anomstream/anomalyd/pkg/stream"
	kafkago "github.com/segmentio/kafka-go"
)

// WriterConfig holds the connection settings for a topic writer.
type WriterConfig struct {
	Brokers []string
	Topic   string
}

type writer struct {
	w *kafkago.Writer
}

// NewWriter creates a stream.Writer that appends to a Kafka topic.
// Messages are partitioned by hashing the message key, so all
// messages sharing a key preserve their relative order.
func NewWriter(config WriterConfig) stream.Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}

	return &writer{w: w}
}

func (w *writer) Write(ctx context.Context, msgs ...stream.Message) error {
	kafkaMsgs := make([]kafkago.Message, 0, len(msgs))
	for _, msg := range msgs {
		headers := make([]kafkago.Header, 0, len(msg.Headers))
		for _, h := range msg.Headers {
			headers = append(headers, kafkago.Header{Key: h.Key, Value: h.Value})
		}
		kafkaMsgs = append(kafkaMsgs, kafkago.Message{
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: headers,
		})
	}

	return w.w.WriteMessages(ctx, kafkaMsgs...)
}

func (w *writer) Close() error {
	return w.w.Close()
}
