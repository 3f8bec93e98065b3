package archive

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/anomstream/anomalyd/pkg/metrics"
	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/stream"
)

// Inserter writes a batch of raw transaction events to the archive
// backend.
type Inserter interface {
	Insert(ctx context.Context, events []model.TransactionEvent) error
}

// Options tune the archiver batching behavior.
type Options struct {
	// BatchSize is the number of messages collected before a flush.
	BatchSize int

	// FlushInterval caps how long a partial batch may wait.
	FlushInterval time.Duration

	// MaxAttempts is how often a failing batch insert is tried before
	// the archiver gives up.
	MaxAttempts int

	// RetryDelay is the pause between insert attempts.
	RetryDelay time.Duration
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    time.Second,
	}
}

// Archiver copies every event of the ingest stream into the archive
// backend, whether anomalous or not. Offsets are committed only after
// the batch containing them was written, so a crash leads to
// re-archiving instead of gaps. The archive table tolerates the
// resulting duplicate rows.
type Archiver struct {
	reader   stream.Reader
	inserter Inserter
	opts     Options
}

// New creates an archiver reading from the given stream.
func New(reader stream.Reader, inserter Inserter, opts Options) *Archiver {
	defaults := DefaultOptions()
	if opts.BatchSize < 1 {
		opts.BatchSize = defaults.BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaults.FlushInterval
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}

	return &Archiver{
		reader:   reader,
		inserter: inserter,
		opts:     opts,
	}
}

// Run consumes and archives until the context is canceled or the
// stream ends. A pending partial batch is flushed before returning.
func (a *Archiver) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"batch_size":     a.opts.BatchSize,
		"flush_interval": a.opts.FlushInterval,
	}).Info("starting archiver")

	msgCh := make(chan stream.Message)
	fetchErrCh := make(chan error, 1)
	go func() {
		defer close(msgCh)
		for {
			msg, err := a.reader.Fetch(ctx)
			if err != nil {
				if ctx.Err() == nil && err != io.EOF {
					fetchErrCh <- err
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case msgCh <- msg:
			}
		}
	}()

	var (
		events  []model.TransactionEvent
		pending []stream.Message
	)

	flush := func(ctx context.Context) error {
		if len(pending) == 0 {
			return nil
		}

		if len(events) > 0 {
			if err := a.insert(ctx, events); err != nil {
				return err
			}
			metrics.EventsArchived.Add(float64(len(events)))
			metrics.ArchiveFlushes.Inc()
		}

		if err := a.reader.Commit(ctx, pending...); err != nil {
			return errors.Wrap(err, "failed to commit archived batch")
		}

		log.WithFields(log.Fields{
			"events":   len(events),
			"messages": len(pending),
		}).Debug("archived batch")

		events = events[:0]
		pending = pending[:0]
		return nil
	}

	ticker := time.NewTicker(a.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// The batch is flushed with a fresh context, the loop
			// context is already canceled.
			if err := flush(context.Background()); err != nil {
				return err
			}
			log.Info("archiver stopped")
			return nil

		case msg, ok := <-msgCh:
			if !ok {
				if err := flush(context.Background()); err != nil {
					return err
				}
				log.Info("archiver stopped")
				select {
				case err := <-fetchErrCh:
					return errors.Wrap(err, "failed to fetch from ingest stream")
				default:
					return nil
				}
			}

			pending = append(pending, msg)
			event, err := model.UnmarshalTransactionEvent(msg.Value)
			if err != nil {
				metrics.EventsMalformed.Inc()
				log.WithFields(log.Fields{
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Warnf("skipping malformed event: %s", err.Error())
			} else {
				events = append(events, *event)
			}

			if len(pending) >= a.opts.BatchSize {
				if err := flush(ctx); err != nil {
					return err
				}
			}

		case <-ticker.C:
			if err := flush(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *Archiver) insert(ctx context.Context, events []model.TransactionEvent) error {
	var insertErr error
	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if insertErr = a.inserter.Insert(ctx, events); insertErr == nil {
			return nil
		}

		log.WithFields(log.Fields{
			"events":  len(events),
			"attempt": attempt,
		}).Warnf("archive insert failed: %s", insertErr.Error())

		if attempt < a.opts.MaxAttempts {
			select {
			case <-ctx.Done():
				return errors.Wrap(insertErr, "failed to archive batch")
			case <-time.After(a.opts.RetryDelay):
			}
		}
	}

	return errors.Wrap(insertErr, "failed to archive batch")
}
