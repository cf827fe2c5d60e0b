// Package queue carries forecast jobs and results over a message broker.
// NATS JetStream, Redis Streams, Kafka and an in-process memory backend share
// the same Publisher/Subscriber contract.
package queue

import (
	"context"
	"errors"
)

var (
	// ErrAlreadySubscribed is returned when a subject already has a handler
	ErrAlreadySubscribed = errors.New("already subscribed")
	// ErrNotSubscribed is returned when unsubscribing from an unknown subject
	ErrNotSubscribed = errors.New("not subscribed")
)

// Message is one payload addressed to a subject
type Message struct {
	Subject string
	Data    []byte
}

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes several messages and reports how many were accepted
	PublishBatch(ctx context.Context, messages []Message) (int, error)

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe delivers every message on subject to handler. A handler error
	// leaves the message unacknowledged so the backend may redeliver it.
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. ctx is cancelled when the
// subscription ends.
type MessageHandler func(ctx context.Context, data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

// namePrefix prefixes streams, consumer groups and durable consumers
const namePrefix = "demandcast"

// sanitizeName maps a subject onto the [A-Za-z0-9_-] alphabet accepted for
// stream and consumer names
func sanitizeName(subject string) string {
	result := make([]byte, len(subject))
	for i := 0; i < len(subject); i++ {
		c := subject[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			result[i] = c
		default:
			result[i] = '_'
		}
	}
	return string(result)
}
