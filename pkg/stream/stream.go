package stream

import "context"

// Header is a key value pair attached to a message.
type Header struct {
	Key   string
	Value []byte
}

// Message is a single record read from or written to a partitioned
// stream. Partition and Offset identify the position of a consumed
// message and are ignored on write.
type Message struct {
	Key       []byte
	Value     []byte
	Headers   []Header
	Partition int
	Offset    int64
}

// Reader consumes messages from a stream on behalf of a consumer
// group. Fetch does not advance the committed position, callers must
// call Commit once a message is fully processed. A message that is
// fetched but never committed is delivered again after a restart.
type Reader interface {
	Fetch(ctx context.Context) (Message, error)
	Commit(ctx context.Context, msgs ...Message) error
	Close() error
}

// Writer appends messages to a stream. Messages with the same key are
// appended to the same partition.
type Writer interface {
	Write(ctx context.Context, msgs ...Message) error
	Close() error
}
