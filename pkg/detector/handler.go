package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/anomstream/anomalyd/pkg/metrics"
	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/notify"
	"github.com/anomstream/anomalyd/pkg/storage"
)

// enrichmentBonus is added to the transaction amount to form the
// customEnrichment attribute of a stored anomaly.
const enrichmentBonus int64 = 500

// ValidationError reports an event that can never be handled
// successfully. Retrying such an event cannot help, it has to be
// diverted instead.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("detector: event field %s is missing or invalid", e.Field)
}

// IsValidation reports whether err is a ValidationError anywhere in
// its chain.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Handler turns a flagged transaction event into a stored anomaly
// record and a published notification. The store write happens before
// the publish, there is no transaction spanning both: a crash in
// between leaves the record stored but unannounced, and the retried
// event overwrites the record under the same key before publishing
// again.
type Handler struct {
	store     storage.Interface
	publisher notify.Publisher

	now func() time.Time
}

// NewHandler creates a handler writing to the given store and
// publishing through the given publisher.
func NewHandler(store storage.Interface, publisher notify.Publisher) *Handler {
	return &Handler{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Handle validates, enriches, stores and publishes a single anomalous
// event. It is safe to call repeatedly for the same event: the store
// write is an overwrite under the event's key and consumers of the
// notification channel tolerate duplicates.
func (h *Handler) Handle(ctx context.Context, event *model.TransactionEvent) (*model.AnomalyRecord, error) {
	if err := validate(event); err != nil {
		metrics.HandlerFailures.WithLabelValues("validate").Inc()
		return nil, err
	}

	record := h.enrich(event)

	if err := h.store.Anomalies().Put(ctx, record); err != nil {
		metrics.HandlerFailures.WithLabelValues("store").Inc()
		return nil, errors.Wrap(err, "failed to store anomaly record")
	}
	metrics.RecordsStored.Inc()

	data, err := json.Marshal(record)
	if err != nil {
		metrics.HandlerFailures.WithLabelValues("publish").Inc()
		return nil, errors.Wrap(err, "failed to encode anomaly notification")
	}

	if err := h.publisher.Publish(ctx, record.BankID, data); err != nil {
		metrics.HandlerFailures.WithLabelValues("publish").Inc()
		return nil, errors.Wrap(err, "failed to publish anomaly notification")
	}
	metrics.NotificationsPublished.Inc()

	return record, nil
}

// validate checks the fields the pipeline depends on. The transaction
// amount is known to be present at this point, decoding already
// rejected events without it.
func validate(event *model.TransactionEvent) error {
	if event.TransactionID == "" {
		return &ValidationError{Field: "transactionId"}
	}
	if event.CreatedAt == "" {
		return &ValidationError{Field: "createdAt"}
	}
	if event.Transaction <= 0 {
		return &ValidationError{Field: "transaction"}
	}
	return nil
}

func (h *Handler) enrich(event *model.TransactionEvent) *model.AnomalyRecord {
	return &model.AnomalyRecord{
		TransactionEvent: *event,
		CustomEnrichment: event.Transaction + enrichmentBonus,
		InspectedAt:      h.now().Format(model.TimestampLayout),
	}
}
