package detector

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/anomstream/anomalyd/pkg/metrics"
	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/stream"
)

// Options tune the detector worker loop.
type Options struct {
	// Workers is the number of handler goroutines. Messages are
	// assigned to workers by partition, so events of one partition are
	// always handled in order.
	Workers int

	// MaxAttempts is how often a failing event is handled before it is
	// moved to the dead letter topic.
	MaxAttempts int

	// RetryDelay is the pause between handling attempts.
	RetryDelay time.Duration
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		Workers:     4,
		MaxAttempts: 5,
		RetryDelay:  500 * time.Millisecond,
	}
}

// Detector consumes the ingest stream, applies the anomaly filter to
// every event and runs the handler for each flagged one. Offsets are
// only committed once an event is fully handled or safely diverted, so
// a crash at any point leads to redelivery instead of loss.
type Detector struct {
	reader      stream.Reader
	deadLetters stream.Writer
	filter      *Filter
	handler     *Handler
	opts        Options
}

// New creates a detector. The deadLetters writer receives events that
// failed terminally; if it is nil such events stay uncommitted and are
// redelivered on restart.
func New(reader stream.Reader, deadLetters stream.Writer, filter *Filter, handler *Handler, opts Options) *Detector {
	defaults := DefaultOptions()
	if opts.Workers < 1 {
		opts.Workers = defaults.Workers
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}

	return &Detector{
		reader:      reader,
		deadLetters: deadLetters,
		filter:      filter,
		handler:     handler,
		opts:        opts,
	}
}

// Run fetches messages until the context is canceled or the stream
// ends. It blocks until all workers finished their in-flight work.
func (d *Detector) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"workers":      d.opts.Workers,
		"max_attempts": d.opts.MaxAttempts,
	}).Info("starting detector")

	jobs := make([]chan stream.Message, d.opts.Workers)
	wg := sync.WaitGroup{}
	for i := range jobs {
		jobs[i] = make(chan stream.Message, 64)
		wg.Add(1)
		go func(ch <-chan stream.Message) {
			defer wg.Done()
			for msg := range ch {
				d.process(ctx, msg)
			}
		}(jobs[i])
	}

	var runErr error
fetch:
	for {
		msg, err := d.reader.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || err == io.EOF {
				break fetch
			}
			runErr = errors.Wrap(err, "failed to fetch from ingest stream")
			break fetch
		}
		metrics.EventsConsumed.Inc()

		select {
		case <-ctx.Done():
			break fetch
		case jobs[msg.Partition%d.opts.Workers] <- msg:
		}
	}

	for _, ch := range jobs {
		close(ch)
	}
	wg.Wait()

	log.Info("detector stopped")
	return runErr
}

// process handles a single message end to end. It commits the message
// offset only after the event was handled successfully, skipped by the
// filter, dropped as malformed or written to the dead letter topic.
func (d *Detector) process(ctx context.Context, msg stream.Message) {
	event, err := model.UnmarshalTransactionEvent(msg.Value)
	if err != nil {
		metrics.EventsMalformed.Inc()
		log.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warnf("dropping malformed event: %s", err.Error())
		d.commit(ctx, msg)
		return
	}

	if !d.filter.Anomalous(event) {
		d.commit(ctx, msg)
		return
	}
	metrics.AnomaliesDetected.Inc()

	var handleErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		start := time.Now()
		record, err := d.handler.Handle(ctx, event)
		if err == nil {
			metrics.HandleDuration.Observe(time.Since(start).Seconds())
			log.WithFields(log.Fields{
				"transaction_id": record.TransactionID,
				"created_at":     record.CreatedAt,
				"bank_id":        record.BankID,
				"transaction":    record.Transaction,
			}).Info("anomaly recorded")
			d.commit(ctx, msg)
			return
		}
		handleErr = err

		if IsValidation(err) {
			break
		}
		if ctx.Err() != nil {
			return
		}

		log.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
			"attempt":   attempt,
		}).Warnf("handling event failed: %s", err.Error())

		if attempt < d.opts.MaxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.opts.RetryDelay):
			}
		}
	}

	if d.deadLetter(ctx, msg, handleErr) {
		d.commit(ctx, msg)
	}
}

// deadLetter writes the failed message to the dead letter topic and
// reports whether it is safe to commit the original offset.
func (d *Detector) deadLetter(ctx context.Context, msg stream.Message, cause error) bool {
	logger := log.WithFields(log.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	if d.deadLetters == nil {
		logger.Errorf("event failed terminally and no dead letter topic is configured: %s", cause.Error())
		return false
	}

	headers := append([]stream.Header{}, msg.Headers...)
	headers = append(headers,
		stream.Header{Key: "anomalyd-error", Value: []byte(cause.Error())},
		stream.Header{Key: "anomalyd-partition", Value: []byte(strconv.Itoa(msg.Partition))},
		stream.Header{Key: "anomalyd-offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
	)

	err := d.deadLetters.Write(ctx, stream.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		logger.Errorf("failed to write event to dead letter topic: %s", err.Error())
		return false
	}

	metrics.EventsDeadLettered.Inc()
	logger.Errorf("moved event to dead letter topic: %s", cause.Error())
	return true
}

func (d *Detector) commit(ctx context.Context, msg stream.Message) {
	if err := d.reader.Commit(ctx, msg); err != nil {
		log.WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Errorf("failed to commit offset: %s", err.Error())
	}
}
