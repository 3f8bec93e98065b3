package natsio

import (
	"context"
	"fmt"
	"strings"

	nats "github.com/nats-io/nats.go"

	"github.com/anomstream/anomalyd/pkg/notify"
)

// DefaultBaseSubject is the subject prefix anomaly notifications are
// published under. The bank ID of the anomaly is appended as the last
// subject token.
const DefaultBaseSubject = "anomalyd.v1.anomalies"

type publisher struct {
	nc          *nats.Conn
	baseSubject string
}

// NewPublisher creates a notify.Publisher on top of an established
// NATS connection. The connection is owned by the caller.
func NewPublisher(nc *nats.Conn, baseSubject string) notify.Publisher {
	if baseSubject == "" {
		baseSubject = DefaultBaseSubject
	}
	return &publisher{
		nc:          nc,
		baseSubject: baseSubject,
	}
}

func (p *publisher) Publish(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return p.nc.Publish(subjectForKey(p.baseSubject, key), data)
}

// subjectForKey appends the key as subject token, replacing characters
// that are reserved in NATS subjects.
func subjectForKey(baseSubject, key string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '-'
		}
		return r
	}, key)
	if token == "" {
		token = "unknown"
	}

	return fmt.Sprintf("%s.%s", baseSubject, token)
}
