package memory

import (
	"context"
	"testing"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(transactionID, createdAt string, amount int64) *model.AnomalyRecord {
	return &model.AnomalyRecord{
		TransactionEvent: model.TransactionEvent{
			TransactionID: transactionID,
			Name:          "Jane Roe",
			City:          "Springfield",
			Transaction:   amount,
			BankID:        "DEUTDEFF",
			CreatedAt:     createdAt,
		},
		CustomEnrichment: amount + 500,
		InspectedAt:      "2024-01-01T00:00:05Z",
	}
}

func TestAnomalyStore__Put_And_FindByKey(t *testing.T) {
	s := NewStore().Anomalies()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9500)))

	m, err := s.FindByKey(ctx, "t1", "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, int64(9500), m.Transaction)
	assert.Equal(t, int64(10000), m.CustomEnrichment)

	_, err = s.FindByKey(ctx, "t1", "2024-01-02T00:00:00Z")
	assert.Equal(t, storage.ErrNotFound, err)

	_, err = s.FindByKey(ctx, "t2", "2024-01-01T00:00:00Z")
	assert.Equal(t, storage.ErrNotFound, err)
}

func TestAnomalyStore__Put_Overwrites_Same_Key(t *testing.T) {
	s := NewStore().Anomalies()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9500)))
	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9500)))

	models, err := s.FindByTransactionID(ctx, "t1", storage.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, models, 1)
}

func TestAnomalyStore__FindByTransactionID_Sorts_Descending(t *testing.T) {
	s := NewStore().Anomalies()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9100)))
	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-03T00:00:00Z", 9300)))
	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-02T00:00:00Z", 9200)))
	require.NoError(t, s.Put(ctx, newRecord("t2", "2024-01-04T00:00:00Z", 9400)))

	models, err := s.FindByTransactionID(ctx, "t1", storage.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "2024-01-03T00:00:00Z", models[0].CreatedAt)
	assert.Equal(t, "2024-01-02T00:00:00Z", models[1].CreatedAt)
	assert.Equal(t, "2024-01-01T00:00:00Z", models[2].CreatedAt)
}

func TestAnomalyStore__FindByTransactionID_Range_And_Limit(t *testing.T) {
	s := NewStore().Anomalies()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9100)))
	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-02T00:00:00Z", 9200)))
	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-03T00:00:00Z", 9300)))

	models, err := s.FindByTransactionID(ctx, "t1", storage.QueryOptions{
		From: "2024-01-02T00:00:00Z",
		To:   "2024-01-03T00:00:00Z",
	})
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "2024-01-03T00:00:00Z", models[0].CreatedAt)
	assert.Equal(t, "2024-01-02T00:00:00Z", models[1].CreatedAt)

	models, err = s.FindByTransactionID(ctx, "t1", storage.QueryOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "2024-01-03T00:00:00Z", models[0].CreatedAt)
}

func TestAnomalyStore__FetchRecent(t *testing.T) {
	s := NewStore().Anomalies()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, newRecord("t1", "2024-01-01T00:00:00Z", 9100)))
	require.NoError(t, s.Put(ctx, newRecord("t2", "2024-01-03T00:00:00Z", 9300)))
	require.NoError(t, s.Put(ctx, newRecord("t3", "2024-01-02T00:00:00Z", 9200)))

	models, err := s.FetchRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "t2", models[0].TransactionID)
	assert.Equal(t, "t3", models[1].TransactionID)
}
