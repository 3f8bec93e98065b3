package redis

import (
	"github.com/anomstream/anomalyd/pkg/storage"
	goredis "github.com/redis/go-redis/v9"
)

// store contains all Redis based sub-stores for managing the models
type store struct {
	anomalies *anomalyStore
}

// NewStore creates a new Redis based Storage interface
func NewStore(client *goredis.Client) storage.Interface {
	return &store{
		anomalies: newAnomalyStore(client),
	}
}

// NewClient connects to Redis with the given address and database number
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Anomalies returns a sub-store for managing the AnomalyRecord model
func (s *store) Anomalies() storage.AnomalyStore {
	return s.anomalies
}
