package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/storage"
)

type anomalyKey struct {
	transactionID string
	createdAt     string
}

type anomalyStore struct {
	store map[anomalyKey]model.AnomalyRecord
	sync.RWMutex
}

func newAnomalyStore() *anomalyStore {
	return &anomalyStore{
		store: make(map[anomalyKey]model.AnomalyRecord),
	}
}

func (s *anomalyStore) Put(_ context.Context, m *model.AnomalyRecord) error {
	s.Lock()
	defer s.Unlock()

	k := anomalyKey{transactionID: m.TransactionID, createdAt: m.CreatedAt}
	s.store[k] = *m

	return nil
}

func (s *anomalyStore) FindByKey(_ context.Context, transactionID, createdAt string) (*model.AnomalyRecord, error) {
	s.RLock()
	defer s.RUnlock()

	k := anomalyKey{transactionID: transactionID, createdAt: createdAt}
	if m, ok := s.store[k]; ok {
		return &m, nil
	}

	return nil, storage.ErrNotFound
}

func (s *anomalyStore) FindByTransactionID(_ context.Context, transactionID string, opts storage.QueryOptions) ([]model.AnomalyRecord, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.AnomalyRecord, 0)
	for k, m := range s.store {
		if k.transactionID != transactionID {
			continue
		}
		if opts.From != "" && k.createdAt < opts.From {
			continue
		}
		if opts.To != "" && k.createdAt > opts.To {
			continue
		}
		models = append(models, m)
	}

	sortByCreatedAtDesc(models)

	if opts.Limit > 0 && len(models) > opts.Limit {
		models = models[:opts.Limit]
	}

	return models, nil
}

func (s *anomalyStore) FetchRecent(_ context.Context, limit int) ([]model.AnomalyRecord, error) {
	s.RLock()
	defer s.RUnlock()

	models := make([]model.AnomalyRecord, 0, len(s.store))
	for _, m := range s.store {
		models = append(models, m)
	}

	sortByCreatedAtDesc(models)

	if limit > 0 && len(models) > limit {
		models = models[:limit]
	}

	return models, nil
}

func sortByCreatedAtDesc(models []model.AnomalyRecord) {
	sort.Slice(models, func(i, j int) bool {
		if models[i].CreatedAt != models[j].CreatedAt {
			return models[i].CreatedAt > models[j].CreatedAt
		}
		return models[i].TransactionID > models[j].TransactionID
	})
}
