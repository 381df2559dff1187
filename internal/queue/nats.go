package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	RegistrationsStream  = "REGISTRATIONS"
	RegistrationsSubject = "registrations.jobs"
)

// NATSQueue is a JetStream work queue. Messages are acked once handed to
// the consumer channel.
type NATSQueue struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer string
}

// NewNATSQueue connects to NATS and ensures the work-queue stream exists.
func NewNATSQueue(ctx context.Context, natsURL, consumer string) (*NATSQueue, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        RegistrationsStream,
		Subjects:    []string{RegistrationsSubject},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Face registration jobs",
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", RegistrationsStream, err)
	}
	if consumer == "" {
		consumer = "registration-worker"
	}
	return &NATSQueue{nc: nc, js: js, consumer: consumer}, nil
}

// Publish enqueues a message.
func (q *NATSQueue) Publish(ctx context.Context, msg Message) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	if _, err := q.js.Publish(ctx, RegistrationsSubject, data); err != nil {
		return fmt.Errorf("publish registration: %w", err)
	}
	return nil
}

// Consume fetches from a durable consumer until ctx ends.
func (q *NATSQueue) Consume(ctx context.Context) (<-chan Message, error) {
	stream, err := q.js.Stream(ctx, RegistrationsStream)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", RegistrationsStream, err)
	}
	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:       q.consumer,
		Durable:    q.consumer,
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    30 * time.Second,
		MaxDeliver: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", q.consumer, err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			batch, err := cons.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch registrations", "error", err)
				time.Sleep(time.Second)
				continue
			}
			for m := range batch.Messages() {
				msg, err := decode(m.Data())
				if err != nil {
					slog.Warn("dropping malformed registration", "error", err)
					_ = m.Term()
					continue
				}
				select {
				case out <- msg:
					_ = m.Ack()
				case <-ctx.Done():
					_ = m.Nak()
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping reports whether the connection is up.
func (q *NATSQueue) Ping() error {
	if !q.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

// Close drops the connection.
func (q *NATSQueue) Close() {
	q.nc.Close()
}
