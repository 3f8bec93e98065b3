package model

// AnomalyRecord is a model of the persistency layer. It carries the full
// originating event plus the enrichment attached during detection, and is
// keyed by the composite (TransactionID, CreatedAt) pair: TransactionID is
// the partition key, CreatedAt the sort key. Records are written once and
// never mutated; a re-delivered event overwrites the same key.
type AnomalyRecord struct {
	TransactionEvent

	// CustomEnrichment is the transaction amount with the flat detection
	// bonus applied.
	CustomEnrichment int64 `json:"customEnrichment"`

	// InspectedAt is the timestamp of the detection run that produced
	// this record, in the same layout as CreatedAt. Unlike CreatedAt it
	// is assigned on our side.
	InspectedAt string `json:"inspectedAt"`
}
