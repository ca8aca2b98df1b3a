package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"adgen/internal/domain"
)

// Queue is a JetStream-backed work queue. Delivery is at-least-once: a
// message is redelivered after the ack wait unless the handler acked it, and
// messages past the max-deliver count are dropped to the stream's advisory
// channel.
type Queue struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	stream  string
	subject string
}

// Options configures the queue connection.
type Options struct {
	URL     string
	Stream  string
	Subject string
}

// Connect dials the broker and ensures the work stream exists.
func Connect(opts Options) (*Queue, error) {
	nc, err := nats.Connect(opts.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:      opts.Stream,
		Subjects:  []string{opts.Subject},
		Retention: nats.WorkQueuePolicy,
	}); err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", opts.Stream, err)
	}
	return &Queue{nc: nc, js: js, stream: opts.Stream, subject: opts.Subject}, nil
}

// Close drains the connection, letting in-flight acks complete.
func (q *Queue) Close() {
	if q.nc != nil {
		_ = q.nc.Drain()
	}
}

// Enqueue publishes a work item. It returns only after the broker persists
// the message, so a nil error means the item is durable.
func (q *Queue) Enqueue(ctx context.Context, item domain.WorkItem) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if _, err := q.js.Publish(q.subject, b, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish work item: %w", err)
	}
	return nil
}

// ConsumeOptions configures a durable pull consumer.
type ConsumeOptions struct {
	Durable    string
	AckWait    time.Duration
	MaxDeliver int
}

// Consume delivers work items to handler until ctx is cancelled. A message is
// acked only when the handler returns nil; otherwise it stays in flight and
// redelivers after the ack wait. Payloads that cannot be decoded are
// terminated immediately since no retry can fix them.
func (q *Queue) Consume(ctx context.Context, opts ConsumeOptions, handler func(ctx context.Context, item domain.WorkItem) error) error {
	sub, err := q.js.PullSubscribe(q.subject, opts.Durable,
		nats.AckWait(opts.AckWait),
		nats.MaxDeliver(opts.MaxDeliver),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", q.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msgs, err := sub.Fetch(1, nats.MaxWait(2*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("fetch work item: %w", err)
		}
		for _, msg := range msgs {
			var item domain.WorkItem
			if err := json.Unmarshal(msg.Data, &item); err != nil {
				_ = msg.Term()
				continue
			}
			if err := handler(ctx, item); err != nil {
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}
	}
}
