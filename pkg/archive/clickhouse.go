package archive

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"

	"github.com/anomstream/anomalyd/pkg/model"
)

// ClickHouseConfig holds the connection settings of the archive
// database.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseInserter writes raw transaction events into the
// transactions_raw table. The table uses a plain MergeTree engine,
// redelivered events produce duplicate rows and analytical queries
// have to deduplicate if they care.
type ClickHouseInserter struct {
	conn driver.Conn
}

// NewClickHouseInserter connects to ClickHouse and makes sure the
// archive table exists.
func NewClickHouseInserter(cfg ClickHouseConfig) (*ClickHouseInserter, error) {
	if cfg.Database == "" {
		cfg.Database = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open clickhouse connection")
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to ping clickhouse")
	}

	if err := createTableIfNotExists(conn); err != nil {
		return nil, errors.Wrap(err, "failed to create archive table")
	}

	return &ClickHouseInserter{conn: conn}, nil
}

func createTableIfNotExists(conn driver.Conn) error {
	return conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS transactions_raw (
			transaction_id String,
			name String,
			address String,
			city String,
			state String,
			age Int32,
			transaction Int64,
			bank_id String,
			created_at String,
			archived_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (bank_id, created_at)
	`)
}

// Insert writes one batch of events.
func (i *ClickHouseInserter) Insert(ctx context.Context, events []model.TransactionEvent) error {
	batch, err := i.conn.PrepareBatch(ctx, `
		INSERT INTO transactions_raw (
			transaction_id, name, address, city, state, age,
			transaction, bank_id, created_at
		)
	`)
	if err != nil {
		return err
	}

	for _, event := range events {
		err := batch.Append(
			event.TransactionID,
			event.Name,
			event.Address,
			event.City,
			event.State,
			int32(event.Age),
			event.Transaction,
			event.BankID,
			event.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Close closes the underlying connection.
func (i *ClickHouseInserter) Close() error {
	return i.conn.Close()
}
