package server

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/anomstream/anomalyd/config"
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/anomstream/anomalyd/pkg/storage/memory"
	"github.com/anomstream/anomalyd/pkg/storage/postgres"
	"github.com/anomstream/anomalyd/pkg/storage/redis"
)

// newStore builds the anomaly record store selected by STORE_BACKEND.
func newStore(c *config.Config) (storage.Interface, error) {
	switch c.StoreBackend {
	case "", "memory":
		return memory.NewStore(), nil

	case "postgres":
		db, err := sqlx.Open("postgres", c.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open database connection")
		}
		if err := db.Ping(); err != nil {
			return nil, errors.Wrap(err, "failed to ping database")
		}
		return postgres.NewStore(db), nil

	case "redis":
		client := redis.NewClient(c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, errors.Wrap(err, "failed to ping redis")
		}
		return redis.NewStore(client), nil
	}

	return nil, errors.Errorf("unknown store backend %q", c.StoreBackend)
}
