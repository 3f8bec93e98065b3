package kafka

import (
	"context"
	"sync"

	"github.com/anomstream/anomalyd/pkg/stream"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
)

// ReaderConfig holds the connection settings for a consumer group
// reader.
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messagePosition struct {
	partition int
	offset    int64
}

type reader struct {
	r *kafkago.Reader

	pendingMu sync.Mutex
	pending   map[messagePosition]kafkago.Message
}

// NewReader creates a stream.Reader backed by a Kafka consumer group.
// Auto commit is disabled, offsets only advance through explicit
// Commit calls. Fetched messages are tracked until they are committed.
func NewReader(config ReaderConfig) stream.Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafkago.FirstOffset,
	})

	return &reader{
		r:       r,
		pending: make(map[messagePosition]kafkago.Message),
	}
}

func (r *reader) Fetch(ctx context.Context) (stream.Message, error) {
	msg, err := r.r.FetchMessage(ctx)
	if err != nil {
		return stream.Message{}, err
	}

	r.pendingMu.Lock()
	r.pending[messagePosition{msg.Partition, msg.Offset}] = msg
	r.pendingMu.Unlock()

	return messageModel(msg), nil
}

func (r *reader) Commit(ctx context.Context, msgs ...stream.Message) error {
	kafkaMsgs := make([]kafkago.Message, 0, len(msgs))

	r.pendingMu.Lock()
	for _, msg := range msgs {
		pos := messagePosition{msg.Partition, msg.Offset}
		kafkaMsg, ok := r.pending[pos]
		if !ok {
			r.pendingMu.Unlock()
			return errors.Errorf("message at partition %d offset %d is not pending",
				msg.Partition, msg.Offset)
		}
		kafkaMsgs = append(kafkaMsgs, kafkaMsg)
	}
	r.pendingMu.Unlock()

	if err := r.r.CommitMessages(ctx, kafkaMsgs...); err != nil {
		return err
	}

	r.pendingMu.Lock()
	for _, msg := range msgs {
		delete(r.pending, messagePosition{msg.Partition, msg.Offset})
	}
	r.pendingMu.Unlock()

	return nil
}

func (r *reader) Close() error {
	return r.r.Close()
}

func messageModel(msg kafkago.Message) stream.Message {
	headers := make([]stream.Header, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		headers = append(headers, stream.Header{Key: h.Key, Value: h.Value})
	}

	return stream.Message{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	}
}
