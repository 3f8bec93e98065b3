package notify

import "context"

// Handler processes a single notification delivered on a subject.
type Handler func(subject string, data []byte)

// Subscription is a handle for an active subscription.
type Subscription interface {
	Unsubscribe() error
}

// Publisher delivers anomaly notifications to the notification
// channel. Publishing the same notification more than once is allowed,
// consumers have to tolerate duplicates.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte) error
}

// Subscriber attaches handlers to the notification channel.
type Subscriber interface {
	Subscribe(handler Handler) (Subscription, error)
}
