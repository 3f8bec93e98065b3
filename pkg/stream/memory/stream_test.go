package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStream__Fetch_Returns_Appended_Messages(t *testing.T) {
	s := NewStream(4)
	defer s.Close()

	s.Append([]byte("bank-1"), []byte(`{"n":1}`))
	s.Append([]byte("bank-1"), []byte(`{"n":2}`))

	first, err := s.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"n":1}`), first.Value)

	second, err := s.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{"n":2}`), second.Value)
}

func TestStream__Same_Key_Same_Partition_Increasing_Offsets(t *testing.T) {
	s := NewStream(4)
	defer s.Close()

	s.Append([]byte("bank-1"), []byte("a"))
	s.Append([]byte("bank-1"), []byte("b"))

	msgs := s.All()
	assert.Len(t, msgs, 2)
	assert.Equal(t, msgs[0].Partition, msgs[1].Partition)
	assert.Equal(t, msgs[0].Offset+1, msgs[1].Offset)
}

func TestStream__Commit_Records_Messages(t *testing.T) {
	s := NewStream(1)
	defer s.Close()

	s.Append([]byte("bank-1"), []byte("a"))

	msg, err := s.Fetch(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, s.Committed())

	err = s.Commit(context.Background(), msg)
	assert.NoError(t, err)
	assert.Len(t, s.Committed(), 1)
}

func TestStream__Fetch_After_Close_Returns_EOF(t *testing.T) {
	s := NewStream(1)
	s.Close()

	_, err := s.Fetch(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestStream__Fetch_Honors_Context(t *testing.T) {
	s := NewStream(1)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx)
	assert.Equal(t, context.Canceled, err)
}
