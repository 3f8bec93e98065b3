package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

func newAnomalyStore(db *sqlx.DB) *anomalyStore {
	return &anomalyStore{
		db: db,
	}
}

type anomalyStore struct {
	db *sqlx.DB
}

type sqlDataAnomaly struct {
	TransactionID    string `db:"transaction_id"`
	Name             string `db:"name"`
	Address          string `db:"address"`
	City             string `db:"city"`
	State            string `db:"state"`
	Age              int    `db:"age"`
	Transaction      int64  `db:"transaction"`
	BankID           string `db:"bank_id"`
	CreatedAt        string `db:"created_at"`
	CustomEnrichment int64  `db:"custom_enrichment"`
	InspectedAt      string `db:"inspected_at"`
}

var sqlParamsAnomaly = []string{
	"transaction_id",
	"name",
	"address",
	"city",
	"state",
	"age",
	"transaction",
	"bank_id",
	"created_at",
	"custom_enrichment",
	"inspected_at",
}

func (d *sqlDataAnomaly) Scan(m *model.AnomalyRecord) error {
	d.TransactionID = m.TransactionID
	d.Name = m.Name
	d.Address = m.Address
	d.City = m.City
	d.State = m.State
	d.Age = m.Age
	d.Transaction = m.Transaction
	d.BankID = m.BankID
	d.CreatedAt = m.CreatedAt
	d.CustomEnrichment = m.CustomEnrichment
	d.InspectedAt = m.InspectedAt

	return nil
}

func (d *sqlDataAnomaly) Model() (*model.AnomalyRecord, error) {
	m := &model.AnomalyRecord{
		TransactionEvent: model.TransactionEvent{
			TransactionID: d.TransactionID,
			Name:          d.Name,
			Address:       d.Address,
			City:          d.City,
			State:         d.State,
			Age:           d.Age,
			Transaction:   d.Transaction,
			BankID:        d.BankID,
			CreatedAt:     d.CreatedAt,
		},
		CustomEnrichment: d.CustomEnrichment,
		InspectedAt:      d.InspectedAt,
	}

	return m, nil
}

func (s *anomalyStore) Put(ctx context.Context, m *model.AnomalyRecord) error {
	return putAnomaly(ctx, s.db, m)
}

func (s *anomalyStore) FindByKey(ctx context.Context, transactionID, createdAt string) (*model.AnomalyRecord, error) {
	return findAnomalyByKey(ctx, s.db, transactionID, createdAt)
}

func (s *anomalyStore) FindByTransactionID(
	ctx context.Context, transactionID string, opts storage.QueryOptions,
) ([]model.AnomalyRecord, error) {
	return findAnomaliesByTransactionID(ctx, s.db, transactionID, opts)
}

func (s *anomalyStore) FetchRecent(ctx context.Context, limit int) ([]model.AnomalyRecord, error) {
	return fetchRecentAnomalies(ctx, s.db, limit)
}

func putAnomaly(ctx context.Context, db *sqlx.DB, m *model.AnomalyRecord) error {
	d := sqlDataAnomaly{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert anomaly model to SQL data")
	}

	// Upsert on the composite key so a re-delivered event overwrites the
	// existing row instead of duplicating it.
	assignments := make([]string, 0)
	for _, p := range sqlParamsAnomaly {
		if p == "transaction_id" || p == "created_at" {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", p, p))
	}

	query := fmt.Sprintf(
		"INSERT INTO anomalies (%s) VALUES (%s) ON CONFLICT (transaction_id, created_at) DO UPDATE SET %s",
		strings.Join(sqlParamsAnomaly, ", "),
		":"+strings.Join(sqlParamsAnomaly, ", :"),
		strings.Join(assignments, ", "),
	)
	if _, err := db.NamedExecContext(ctx, query, d); err != nil {
		return errors.Wrap(err, "failed to put anomaly record")
	}

	return nil
}

func findAnomalyByKey(ctx context.Context, db *sqlx.DB, transactionID, createdAt string) (*model.AnomalyRecord, error) {
	d := sqlDataAnomaly{}
	query := "SELECT * FROM anomalies WHERE transaction_id=$1 AND created_at=$2"
	if err := db.GetContext(ctx, &d, query, transactionID, createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find anomaly record")
	}

	return d.Model()
}

func findAnomaliesByTransactionID(
	ctx context.Context, db *sqlx.DB, transactionID string, opts storage.QueryOptions,
) ([]model.AnomalyRecord, error) {
	query := "SELECT * FROM anomalies WHERE transaction_id=$1"
	args := []interface{}{transactionID}

	if opts.From != "" {
		args = append(args, opts.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if opts.To != "" {
		args = append(args, opts.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows := make([]sqlDataAnomaly, 0)
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to find anomaly records")
	}

	return anomalyModels(rows)
}

func fetchRecentAnomalies(ctx context.Context, db *sqlx.DB, limit int) ([]model.AnomalyRecord, error) {
	rows := make([]sqlDataAnomaly, 0)

	query := "SELECT * FROM anomalies ORDER BY created_at DESC LIMIT $1"
	if err := db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "failed to fetch recent anomaly records")
	}

	return anomalyModels(rows)
}

func anomalyModels(rows []sqlDataAnomaly) ([]model.AnomalyRecord, error) {
	models := make([]model.AnomalyRecord, 0, len(rows))
	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to anomaly model")
		}
		models = append(models, *m)
	}

	return models, nil
}
