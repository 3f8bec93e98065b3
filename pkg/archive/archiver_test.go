package archive

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomstream/anomalyd/pkg/model"
	streammem "github.com/anomstream/anomalyd/pkg/stream/memory"
)

type fakeInserter struct {
	mutex    sync.Mutex
	batches  [][]model.TransactionEvent
	failures int
	err      error
}

func (i *fakeInserter) Insert(ctx context.Context, events []model.TransactionEvent) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.failures > 0 {
		i.failures--
		return i.err
	}

	batch := make([]model.TransactionEvent, len(events))
	copy(batch, events)
	i.batches = append(i.batches, batch)
	return nil
}

func (i *fakeInserter) inserted() [][]model.TransactionEvent {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	out := make([][]model.TransactionEvent, len(i.batches))
	copy(out, i.batches)
	return out
}

func archivePayload(t *testing.T, transactionID string, amount int64) []byte {
	t.Helper()

	data, err := json.Marshal(&model.TransactionEvent{
		TransactionID: transactionID,
		Name:          "John Doe",
		Age:           30,
		Transaction:   amount,
		BankID:        "BOFAUS3N",
		CreatedAt:     "2023-11-07 10:00:00.000000",
	})
	require.NoError(t, err)
	return data
}

func testArchiveOptions() Options {
	return Options{
		BatchSize:     100,
		FlushInterval: time.Minute,
		MaxAttempts:   3,
		RetryDelay:    time.Millisecond,
	}
}

func TestArchiver__Flushes_Full_Batches(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{}

	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))
	ingest.Append([]byte("k"), archivePayload(t, "tx-2", 200))
	ingest.Append([]byte("k"), archivePayload(t, "tx-3", 300))
	ingest.Close()

	opts := testArchiveOptions()
	opts.BatchSize = 2

	a := New(ingest, inserter, opts)
	require.NoError(t, a.Run(context.Background()))

	batches := inserter.inserted()
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[1], 1)
	assert.Len(t, ingest.Committed(), 3)
}

func TestArchiver__Flushes_Partial_Batch_On_Stream_End(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{}

	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))
	ingest.Close()

	a := New(ingest, inserter, testArchiveOptions())
	require.NoError(t, a.Run(context.Background()))

	batches := inserter.inserted()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)

	// Events are archived unmodified, no filtering and no enrichment.
	assert.Equal(t, model.TransactionEvent{
		TransactionID: "tx-1",
		Name:          "John Doe",
		Age:           30,
		Transaction:   100,
		BankID:        "BOFAUS3N",
		CreatedAt:     "2023-11-07 10:00:00.000000",
	}, batches[0][0])
	assert.Len(t, ingest.Committed(), 1)
}

func TestArchiver__Flushes_On_Interval(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{}

	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))

	opts := testArchiveOptions()
	opts.FlushInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	a := New(ingest, inserter, opts)
	go func() {
		done <- a.Run(ctx)
	}()

	assert.Eventually(t, func() bool {
		return len(ingest.Committed()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Len(t, inserter.inserted(), 1)
}

func TestArchiver__Insert_Failure_Blocks_Commit(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{failures: 100, err: assert.AnError}

	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))
	ingest.Close()

	opts := testArchiveOptions()
	opts.MaxAttempts = 2

	a := New(ingest, inserter, opts)
	require.Error(t, a.Run(context.Background()))

	assert.Empty(t, ingest.Committed())
}

func TestArchiver__Recovers_From_Transient_Insert_Failure(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{failures: 1, err: assert.AnError}

	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))
	ingest.Close()

	a := New(ingest, inserter, testArchiveOptions())
	require.NoError(t, a.Run(context.Background()))

	require.Len(t, inserter.inserted(), 1)
	assert.Len(t, ingest.Committed(), 1)
}

func TestArchiver__Skips_Malformed_Events_But_Commits_Them(t *testing.T) {
	ingest := streammem.NewStream(1)
	inserter := &fakeInserter{}

	ingest.Append([]byte("k"), []byte("not json"))
	ingest.Append([]byte("k"), archivePayload(t, "tx-1", 100))
	ingest.Close()

	a := New(ingest, inserter, testArchiveOptions())
	require.NoError(t, a.Run(context.Background()))

	batches := inserter.inserted()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "tx-1", batches[0][0].TransactionID)

	assert.Len(t, ingest.Committed(), 2)
}
