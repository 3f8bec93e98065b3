package model

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNoTransactionAmount is returned when a stream payload carries no
// transaction field at all. Producers must always set it; payloads without
// it are treated as malformed and never reach the detection pipeline.
var ErrNoTransactionAmount = errors.New("model: transaction amount is missing")

// TimestampLayout is the format of the createdAt and inspectedAt
// timestamps. Timestamps in this layout sort lexicographically in
// chronological order.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// TransactionEvent is the wire model of a single record on the ingest
// stream. The nine fields and their JSON names are the producer contract;
// events are immutable once emitted.
type TransactionEvent struct {
	TransactionID string `json:"transactionId"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	State         string `json:"state"`
	Age           int    `json:"age"`
	Transaction   int64  `json:"transaction"`
	BankID        string `json:"bankId"`

	// CreatedAt is a producer-assigned ISO-8601-like timestamp string. It is
	// kept as a string on purpose: it is the sort key of the anomaly store
	// and compares lexicographically, so re-formatting it would change key
	// identity for re-delivered events.
	CreatedAt string `json:"createdAt"`
}

// UnmarshalTransactionEvent decodes a raw stream payload. A payload that is
// not a JSON object, carries a non-numeric transaction field, or misses the
// transaction field entirely yields an error; the caller decides whether to
// drop or divert such records.
func UnmarshalTransactionEvent(data []byte) (*TransactionEvent, error) {
	var probe struct {
		Transaction *int64 `json:"transaction"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(err, "model: decode transaction event")
	}
	if probe.Transaction == nil {
		return nil, ErrNoTransactionAmount
	}

	ev := &TransactionEvent{}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, errors.Wrap(err, "model: decode transaction event")
	}

	return ev, nil
}
