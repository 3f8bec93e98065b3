package detector

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/storage"
	storagemem "github.com/anomstream/anomalyd/pkg/storage/memory"
	streammem "github.com/anomstream/anomalyd/pkg/stream/memory"
)

func testOptions() Options {
	return Options{
		Workers:     2,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
}

func eventPayload(t *testing.T, transactionID, createdAt string, amount int64) []byte {
	t.Helper()

	data, err := json.Marshal(&model.TransactionEvent{
		TransactionID: transactionID,
		Name:          "John Doe",
		Address:       "2901 Ocean Ave",
		City:          "Brooklyn",
		State:         "NY",
		Age:           30,
		Transaction:   amount,
		BankID:        "BOFAUS3N",
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
	return data
}

func TestDetector__Records_Only_Events_Above_Threshold(t *testing.T) {
	ingest := streammem.NewStream(4)
	dlq := streammem.NewStream(1)
	store := storagemem.NewStore()
	publisher := &fakePublisher{}

	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-below", "2023-11-07 10:00:00.000000", 8000))
	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-at", "2023-11-07 10:00:01.000000", 9000))
	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-above", "2023-11-07 10:00:02.000000", 9500))
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(store, publisher), testOptions())
	require.NoError(t, d.Run(context.Background()))

	records, err := store.Anomalies().FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tx-above", records[0].TransactionID)
	assert.Equal(t, int64(10000), records[0].CustomEnrichment)

	assert.Len(t, publisher.notifications(), 1)
	assert.Len(t, ingest.Committed(), 3)
	assert.Empty(t, dlq.All())
}

func TestDetector__Drops_Malformed_Events(t *testing.T) {
	ingest := streammem.NewStream(1)
	dlq := streammem.NewStream(1)
	store := storagemem.NewStore()

	ingest.Append([]byte("k"), []byte("not json at all"))
	ingest.Append([]byte("k"), []byte(`{"transaction": "high"}`))
	ingest.Append([]byte("k"), []byte(`{"transactionId": "tx-1"}`))
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(store, &fakePublisher{}), testOptions())
	require.NoError(t, d.Run(context.Background()))

	records, err := store.Anomalies().FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Malformed events are dropped, not diverted: the offsets advance
	// so they never block their partition.
	assert.Len(t, ingest.Committed(), 3)
	assert.Empty(t, dlq.All())
}

func TestDetector__Dead_Letters_Unprocessable_Anomalies(t *testing.T) {
	ingest := streammem.NewStream(1)
	dlq := streammem.NewStream(1)
	store := storagemem.NewStore()

	payload := eventPayload(t, "tx-1", "", 9500)
	ingest.Append([]byte("BOFAUS3N"), payload)
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(store, &fakePublisher{}), testOptions())
	require.NoError(t, d.Run(context.Background()))

	diverted := dlq.All()
	require.Len(t, diverted, 1)
	assert.Equal(t, payload, diverted[0].Value)

	headers := map[string]string{}
	for _, h := range diverted[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Contains(t, headers["anomalyd-error"], "createdAt")

	assert.Len(t, ingest.Committed(), 1)

	records, err := store.Anomalies().FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDetector__Retries_Transient_Failures(t *testing.T) {
	ingest := streammem.NewStream(1)
	dlq := streammem.NewStream(1)
	store := newFlakyStore(2, assert.AnError)

	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-1", "2023-11-07 10:00:00.000000", 9500))
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(store, &fakePublisher{}), testOptions())
	require.NoError(t, d.Run(context.Background()))

	record, err := store.Anomalies().FindByKey(context.Background(), "tx-1", "2023-11-07 10:00:00.000000")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), record.CustomEnrichment)

	assert.Len(t, ingest.Committed(), 1)
	assert.Empty(t, dlq.All())
}

func TestDetector__Exhausted_Retries_Go_To_Dead_Letter(t *testing.T) {
	ingest := streammem.NewStream(1)
	dlq := streammem.NewStream(1)
	store := newFlakyStore(100, assert.AnError)
	publisher := &fakePublisher{}

	payload := eventPayload(t, "tx-1", "2023-11-07 10:00:00.000000", 9500)
	ingest.Append([]byte("BOFAUS3N"), payload)
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(store, publisher), testOptions())
	require.NoError(t, d.Run(context.Background()))

	diverted := dlq.All()
	require.Len(t, diverted, 1)
	assert.Equal(t, payload, diverted[0].Value)
	assert.Len(t, ingest.Committed(), 1)
	assert.Empty(t, publisher.notifications())
}

func TestDetector__Failed_Dead_Letter_Write_Blocks_Commit(t *testing.T) {
	ingest := streammem.NewStream(1)
	dlq := streammem.NewStream(1)
	dlq.Close()

	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-1", "", 9500))
	ingest.Close()

	d := New(ingest, dlq, NewFilter(DefaultThreshold), NewHandler(storagemem.NewStore(), &fakePublisher{}), testOptions())
	require.NoError(t, d.Run(context.Background()))

	// The offset stays uncommitted so the event is redelivered after a
	// restart instead of being lost.
	assert.Empty(t, ingest.Committed())
}

func TestDetector__Missing_Dead_Letter_Topic_Blocks_Commit(t *testing.T) {
	ingest := streammem.NewStream(1)

	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-1", "", 9500))
	ingest.Close()

	d := New(ingest, nil, NewFilter(DefaultThreshold), NewHandler(storagemem.NewStore(), &fakePublisher{}), testOptions())
	require.NoError(t, d.Run(context.Background()))

	assert.Empty(t, ingest.Committed())
}

func TestDetector__Commits_Events_Below_Threshold_Without_Side_Effects(t *testing.T) {
	ingest := streammem.NewStream(1)
	store := storagemem.NewStore()
	publisher := &fakePublisher{}

	ingest.Append([]byte("BOFAUS3N"), eventPayload(t, "tx-1", "2023-11-07 10:00:00.000000", 100))
	ingest.Close()

	d := New(ingest, nil, NewFilter(DefaultThreshold), NewHandler(store, publisher), testOptions())
	require.NoError(t, d.Run(context.Background()))

	records, err := store.Anomalies().FetchRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, publisher.notifications())
	assert.Len(t, ingest.Committed(), 1)
}

var _ storage.Interface = (*flakyStore)(nil)
