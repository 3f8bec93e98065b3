package natsio

import (
	nats "github.com/nats-io/nats.go"

	"github.com/anomstream/anomalyd/pkg/notify"
)

type subscriber struct {
	nc      *nats.Conn
	subject string
}

// NewSubscriber creates a notify.Subscriber that listens on the given
// subject. The subject may contain NATS wildcards, e.g.
// "anomalyd.v1.anomalies.>" to receive anomalies of all banks.
func NewSubscriber(nc *nats.Conn, subject string) notify.Subscriber {
	if subject == "" {
		subject = DefaultBaseSubject + ".>"
	}
	return &subscriber{
		nc:      nc,
		subject: subject,
	}
}

func (s *subscriber) Subscribe(handler notify.Handler) (notify.Subscription, error) {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}
