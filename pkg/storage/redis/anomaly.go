package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/storage"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Key layout:
//
//	anomaly:<transactionId>:<createdAt>  JSON encoded record
//	anomaly:idx:<transactionId>          sorted set of createdAt values
//	anomaly:recent                       sorted set of <createdAt>|<transactionId>
//
// Both index sets use score 0 so that range queries run over the
// lexicographic order of the members, which matches the sort key order
// of the records.
const (
	recordKeyPrefix = "anomaly:"
	indexKeyPrefix  = "anomaly:idx:"
	recentIndexKey  = "anomaly:recent"
)

type anomalyStore struct {
	client *goredis.Client
}

func newAnomalyStore(client *goredis.Client) *anomalyStore {
	return &anomalyStore{client: client}
}

func recordKey(transactionID, createdAt string) string {
	return fmt.Sprintf("%s%s:%s", recordKeyPrefix, transactionID, createdAt)
}

func indexKey(transactionID string) string {
	return indexKeyPrefix + transactionID
}

// recentMember leads with createdAt so the global index sorts by time.
// The transaction ID disambiguates records sharing a timestamp.
func recentMember(transactionID, createdAt string) string {
	return createdAt + "|" + transactionID
}

func (s *anomalyStore) Put(ctx context.Context, record *model.AnomalyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to encode anomaly record")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, recordKey(record.TransactionID, record.CreatedAt), data, 0)
		pipe.ZAdd(ctx, indexKey(record.TransactionID), goredis.Z{
			Score:  0,
			Member: record.CreatedAt,
		})
		pipe.ZAdd(ctx, recentIndexKey, goredis.Z{
			Score:  0,
			Member: recentMember(record.TransactionID, record.CreatedAt),
		})
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to store anomaly record")
	}

	return nil
}

func (s *anomalyStore) FindByKey(ctx context.Context, transactionID, createdAt string) (*model.AnomalyRecord, error) {
	data, err := s.client.Get(ctx, recordKey(transactionID, createdAt)).Bytes()
	if err == goredis.Nil {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to fetch anomaly record")
	}

	var record model.AnomalyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "failed to decode anomaly record")
	}

	return &record, nil
}

func (s *anomalyStore) FindByTransactionID(ctx context.Context, transactionID string, opts storage.QueryOptions) ([]model.AnomalyRecord, error) {
	min, max := "-", "+"
	if opts.From != "" {
		min = "[" + opts.From
	}
	if opts.To != "" {
		max = "[" + opts.To
	}

	rangeBy := &goredis.ZRangeBy{Min: min, Max: max}
	if opts.Limit > 0 {
		rangeBy.Count = int64(opts.Limit)
	}

	createdAts, err := s.client.ZRevRangeByLex(ctx, indexKey(transactionID), rangeBy).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query anomaly index")
	}

	keys := make([]string, 0, len(createdAts))
	for _, createdAt := range createdAts {
		keys = append(keys, recordKey(transactionID, createdAt))
	}

	return s.fetchRecords(ctx, keys)
}

func (s *anomalyStore) FetchRecent(ctx context.Context, limit int) ([]model.AnomalyRecord, error) {
	rangeBy := &goredis.ZRangeBy{Min: "-", Max: "+"}
	if limit > 0 {
		rangeBy.Count = int64(limit)
	}

	members, err := s.client.ZRevRangeByLex(ctx, recentIndexKey, rangeBy).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query recent anomaly index")
	}

	keys := make([]string, 0, len(members))
	for _, member := range members {
		sep := strings.LastIndex(member, "|")
		if sep < 0 {
			continue
		}
		createdAt, transactionID := member[:sep], member[sep+1:]
		keys = append(keys, recordKey(transactionID, createdAt))
	}

	return s.fetchRecords(ctx, keys)
}

func (s *anomalyStore) fetchRecords(ctx context.Context, keys []string) ([]model.AnomalyRecord, error) {
	if len(keys) == 0 {
		return []model.AnomalyRecord{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch anomaly records")
	}

	records := make([]model.AnomalyRecord, 0, len(values))
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		var record model.AnomalyRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}
