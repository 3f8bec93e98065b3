package memory

import "github.com/anomstream/anomalyd/pkg/storage"

// Store contains all memory-based sub-stores for managing the persistent models
type store struct {
	anomalies *anomalyStore
}

// NewStore creates a new memory-based Storage interface
func NewStore() storage.Interface {
	return &store{
		anomalies: newAnomalyStore(),
	}
}

// Anomalies returns a sub-store for managing the AnomalyRecord model
func (s *store) Anomalies() storage.AnomalyStore {
	return s.anomalies
}
