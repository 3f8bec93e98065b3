package memory

import (
	"context"
	"hash/fnv"
	"io"
	"sync"

	"github.com/anomstream/anomalyd/pkg/stream"
	"github.com/pkg/errors"
)

// Stream is an in-memory partitioned log implementing both the
// stream.Reader and stream.Writer interfaces. It keeps every appended
// and committed message so tests can assert on delivery and commit
// behavior.
type Stream struct {
	mutex      sync.Mutex
	partitions int
	nextOffset []int64
	messages   []stream.Message
	committed  []stream.Message
	fetchCh    chan stream.Message
	closed     bool
}

// NewStream creates a stream with the given number of partitions.
func NewStream(partitions int) *Stream {
	if partitions < 1 {
		partitions = 1
	}
	return &Stream{
		partitions: partitions,
		nextOffset: make([]int64, partitions),
		fetchCh:    make(chan stream.Message, 1024),
	}
}

// Append adds a message to the partition selected by hashing the key.
func (s *Stream) Append(key, value []byte) {
	s.appendMessage(stream.Message{Key: key, Value: value})
}

// Write implements stream.Writer.
func (s *Stream) Write(ctx context.Context, msgs ...stream.Message) error {
	s.mutex.Lock()
	closed := s.closed
	s.mutex.Unlock()
	if closed {
		return errors.New("stream is closed")
	}

	for _, msg := range msgs {
		s.appendMessage(msg)
	}
	return nil
}

func (s *Stream) appendMessage(msg stream.Message) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	h := fnv.New32a()
	h.Write(msg.Key)
	partition := int(h.Sum32()) % s.partitions
	if partition < 0 {
		partition += s.partitions
	}

	msg.Partition = partition
	msg.Offset = s.nextOffset[partition]
	s.nextOffset[partition]++
	s.messages = append(s.messages, msg)
	s.fetchCh <- msg
}

// Fetch implements stream.Reader. It blocks until a message is
// available, the context is canceled or the stream is closed.
func (s *Stream) Fetch(ctx context.Context) (stream.Message, error) {
	select {
	case <-ctx.Done():
		return stream.Message{}, ctx.Err()
	case msg, ok := <-s.fetchCh:
		if !ok {
			return stream.Message{}, io.EOF
		}
		return msg, nil
	}
}

// Commit implements stream.Reader and records the committed messages.
func (s *Stream) Commit(ctx context.Context, msgs ...stream.Message) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.committed = append(s.committed, msgs...)
	return nil
}

// Close stops delivery. Fetch drains buffered messages and then
// returns io.EOF.
func (s *Stream) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.closed {
		s.closed = true
		close(s.fetchCh)
	}
	return nil
}

// All returns a copy of every message appended to the stream.
func (s *Stream) All() []stream.Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	msgs := make([]stream.Message, len(s.messages))
	copy(msgs, s.messages)
	return msgs
}

// Committed returns a copy of every committed message.
func (s *Stream) Committed() []stream.Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	msgs := make([]stream.Message, len(s.committed))
	copy(msgs, s.committed)
	return msgs
}
