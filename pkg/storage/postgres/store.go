package postgres

import (
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/jmoiron/sqlx"
)

// store contains all PostgreSQL based sub-stores for managing the models
type store struct {
	anomalies *anomalyStore
}

// NewStore creates a new PostgreSQL based Storage interface
func NewStore(db *sqlx.DB) storage.Interface {
	return &store{
		anomalies: newAnomalyStore(db),
	}
}

// Anomalies returns a sub-store for managing the AnomalyRecord model
func (s *store) Anomalies() storage.AnomalyStore {
	return s.anomalies
}
