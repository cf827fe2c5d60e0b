package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig represents NATS connection options
type NATSConfig struct {
	URL      string
	Username string
	Password string
	AckWait  time.Duration // Redelivery delay for unacknowledged jobs (default: 2m)
	MaxAck   int           // Max in-flight jobs per consumer (default: 64)
}

// NATSQueue implements Queue with JetStream work-queue streams. Each subject
// gets its own stream and a durable consumer so jobs survive restarts.
type NATSQueue struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	config NATSConfig

	mu            sync.Mutex
	streams       map[string]struct{}
	subscriptions map[string]*natsSubscription
}

type natsSubscription struct {
	sub    *nats.Subscription
	cancel context.CancelFunc
}

func newNATSQueue(cfg NATSConfig) (*NATSQueue, error) {
	opts := []nats.Option{nats.Name(namePrefix)}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	q, err := newNATSQueueWithConn(conn, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func newNATSQueueWithConn(conn *nats.Conn, cfg NATSConfig) (*NATSQueue, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if cfg.AckWait <= 0 {
		cfg.AckWait = 2 * time.Minute
	}
	if cfg.MaxAck <= 0 {
		cfg.MaxAck = 64
	}

	return &NATSQueue{
		conn:          conn,
		js:            js,
		config:        cfg,
		streams:       make(map[string]struct{}),
		subscriptions: make(map[string]*natsSubscription),
	}, nil
}

// streamName returns the JetStream stream holding subject
func streamName(subject string) string {
	return namePrefix + "-" + sanitizeName(subject)
}

// ensureStream creates the subject's stream once per process
func (q *NATSQueue) ensureStream(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.streams[subject]; ok {
		return nil
	}

	name := streamName(subject)
	if _, err := q.js.StreamInfo(name); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return fmt.Errorf("failed to look up stream %s: %w", name, err)
		}
		if _, err := q.js.AddStream(&nats.StreamConfig{
			Name:      name,
			Subjects:  []string{subject},
			Storage:   nats.FileStorage,
			Retention: nats.WorkQueuePolicy,
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}
	}

	q.streams[subject] = struct{}{}
	return nil
}

// Publish publishes a message and waits for the JetStream ack
func (q *NATSQueue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}
	if _, err := q.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}
	return nil
}

// PublishBatch publishes all messages asynchronously and waits for their acks
func (q *NATSQueue) PublishBatch(ctx context.Context, messages []Message) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}

	futures := make([]nats.PubAckFuture, 0, len(messages))
	for _, msg := range messages {
		if err := q.ensureStream(msg.Subject); err != nil {
			return 0, err
		}
		future, err := q.js.PublishAsync(msg.Subject, msg.Data)
		if err != nil {
			return 0, fmt.Errorf("failed to queue message for %s: %w", msg.Subject, err)
		}
		futures = append(futures, future)
	}

	select {
	case <-q.js.PublishAsyncComplete():
	case <-ctx.Done():
		return 0, fmt.Errorf("timeout waiting for batch publish: %w", ctx.Err())
	}

	acked := 0
	var firstErr error
	for _, f := range futures {
		select {
		case <-f.Ok():
			acked++
		case err := <-f.Err():
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return acked, fmt.Errorf("batch publish partially failed: %w", firstErr)
	}
	return acked, nil
}

// Subscribe binds a durable consumer to subject. Handler errors NAK the
// message for redelivery, up to three attempts.
func (q *NATSQueue) Subscribe(subject string, handler MessageHandler) error {
	if err := q.ensureStream(subject); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.subscriptions[subject]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadySubscribed, subject)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := q.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(namePrefix+"-consumer-"+sanitizeName(subject)),
		nats.ManualAck(),
		nats.MaxAckPending(q.config.MaxAck),
		nats.AckWait(q.config.AckWait),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	q.subscriptions[subject] = &natsSubscription{sub: sub, cancel: cancel}
	return nil
}

// Unsubscribe unsubscribes from a subject
func (q *NATSQueue) Unsubscribe(subject string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, ok := q.subscriptions[subject]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, subject)
	}
	delete(q.subscriptions, subject)

	s.cancel()
	if err := s.sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from subject %s: %w", subject, err)
	}
	return nil
}

// Close drains subscriptions and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for subject, s := range q.subscriptions {
		s.cancel()
		_ = s.sub.Unsubscribe()
		delete(q.subscriptions, subject)
	}
	q.conn.Close()
	return nil
}
