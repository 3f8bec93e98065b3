package detector

import "github.com/anomstream/anomalyd/pkg/model"

// DefaultThreshold is the transaction amount a payment has to exceed
// before it is flagged as anomalous.
const DefaultThreshold int64 = 9000

// Filter is the stateless anomaly predicate. It inspects a single
// event at a time and carries no state between calls.
type Filter struct {
	threshold int64
}

// NewFilter creates a filter flagging transactions above the given
// threshold.
func NewFilter(threshold int64) *Filter {
	return &Filter{threshold: threshold}
}

// Anomalous reports whether the event's transaction amount exceeds the
// threshold. An amount exactly at the threshold is not anomalous.
func (f *Filter) Anomalous(event *model.TransactionEvent) bool {
	return event.Transaction > f.threshold
}
