package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/anomstream/anomalyd/pkg/model"
	"github.com/anomstream/anomalyd/pkg/stream"
)

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer",
		"Michael", "Linda", "David", "Elizabeth", "William", "Barbara",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Wilson", "Anderson",
	}
	streets = []string{
		"Ocean Ave", "Spring Street", "Maple Drive", "Highland Ave",
		"Cedar Lane", "Sunset Blvd", "Park Place", "River Road",
	}
	cities = []string{
		"Brooklyn", "Herndon", "Austin", "Portland", "Madison",
		"Boulder", "Savannah", "Tacoma",
	}
	states = []string{
		"NY", "VA", "TX", "OR", "WI", "CO", "GA", "WA",
	}
	countryCodes = []string{"US", "GB", "DE", "FR", "CH"}
)

// Options tune the event generator.
type Options struct {
	// Rate is the pause between two events. Zero or negative means no
	// pause.
	Rate time.Duration

	// Count limits how many events are produced. Zero means unlimited.
	Count int

	// Banks is the number of distinct bank IDs to generate events for.
	Banks int

	// Seed makes the generated data reproducible. Zero seeds from the
	// clock.
	Seed int64
}

// Producer writes synthetic transaction events to the ingest stream.
// Amounts are drawn from 1000 to 10000, so a fraction of the events
// exceeds the default anomaly threshold.
type Producer struct {
	writer stream.Writer
	opts   Options
	rng    *rand.Rand
	banks  []string

	now func() time.Time
}

// New creates a producer writing to the given stream.
func New(writer stream.Writer, opts Options) *Producer {
	if opts.Banks < 1 {
		opts.Banks = 10
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	banks := make([]string, opts.Banks)
	for i := range banks {
		banks[i] = randomSwiftCode(rng)
	}

	return &Producer{
		writer: writer,
		opts:   opts,
		rng:    rng,
		banks:  banks,
		now:    time.Now,
	}
}

// Run produces events until the context is canceled or the configured
// count is reached.
func (p *Producer) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"banks": len(p.banks),
		"rate":  p.opts.Rate,
	}).Info("starting producer")

	produced := 0
	for {
		event := p.nextEvent()
		data, err := json.Marshal(event)
		if err != nil {
			return errors.Wrap(err, "failed to encode transaction event")
		}

		err = p.writer.Write(ctx, stream.Message{
			Key:   []byte(event.BankID),
			Value: data,
		})
		if err != nil {
			return errors.Wrap(err, "failed to write transaction event")
		}

		log.WithFields(log.Fields{
			"transaction_id": event.TransactionID,
			"bank_id":        event.BankID,
			"transaction":    event.Transaction,
		}).Info("produced transaction event")

		produced++
		if p.opts.Count > 0 && produced >= p.opts.Count {
			return nil
		}

		if p.opts.Rate > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.opts.Rate):
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
}

func (p *Producer) nextEvent() *model.TransactionEvent {
	name := fmt.Sprintf("%s %s",
		firstNames[p.rng.Intn(len(firstNames))],
		lastNames[p.rng.Intn(len(lastNames))])
	address := fmt.Sprintf("%d %s",
		100+p.rng.Intn(9900),
		streets[p.rng.Intn(len(streets))])

	return &model.TransactionEvent{
		TransactionID: uuid.New().String(),
		Name:          name,
		Address:       address,
		City:          cities[p.rng.Intn(len(cities))],
		State:         states[p.rng.Intn(len(states))],
		Age:           18 + p.rng.Intn(68),
		Transaction:   int64(1000 + p.rng.Intn(9001)),
		BankID:        p.banks[p.rng.Intn(len(p.banks))],
		CreatedAt:     p.now().Format(model.TimestampLayout),
	}
}

// randomSwiftCode builds a SWIFT-like bank identifier: four letters of
// bank code, a two letter country code and a two character location
// code.
func randomSwiftCode(rng *rand.Rand) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const alnum = letters + "0123456789"

	code := make([]byte, 0, 8)
	for i := 0; i < 4; i++ {
		code = append(code, letters[rng.Intn(len(letters))])
	}
	code = append(code, countryCodes[rng.Intn(len(countryCodes))]...)
	for i := 0; i < 2; i++ {
		code = append(code, alnum[rng.Intn(len(alnum))])
	}

	return string(code)
}
