package storage

import (
	"context"

	"github.com/anomstream/anomalyd/pkg/model"
)

// Interface is implemented by the storage
type Interface interface {
	Anomalies() AnomalyStore
}

// QueryOptions narrows FindByTransactionID results. From and To bound the
// CreatedAt sort key (inclusive, lexicographic); empty means unbounded.
// Limit caps the number of returned records, zero means no cap. Results are
// always sorted by CreatedAt descending.
type QueryOptions struct {
	From  string
	To    string
	Limit int
}

// AnomalyStore is responsible for managing the AnomalyRecord model. Put is
// an idempotent overwrite on the composite (TransactionID, CreatedAt) key,
// so a re-delivered event never creates a duplicate row.
type AnomalyStore interface {
	Put(ctx context.Context, m *model.AnomalyRecord) error
	FindByKey(ctx context.Context, transactionID, createdAt string) (*model.AnomalyRecord, error)
	FindByTransactionID(ctx context.Context, transactionID string, opts QueryOptions) ([]model.AnomalyRecord, error)
	FetchRecent(ctx context.Context, limit int) ([]model.AnomalyRecord, error)
}
