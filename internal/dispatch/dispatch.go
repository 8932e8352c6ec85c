// Package dispatch queues outbound email jobs for asynchronous delivery by
// the email worker. It is broker-agnostic: RabbitMQ and Google Cloud
// Pub/Sub backends are provided.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/scoutline/apiserver/config"
)

// EmailQueue is the queue the API server publishes code emails to and the
// email worker consumes from.
const EmailQueue = "outbound-email"

// Job represents a broker-agnostic payload delivered to subscribers.
type Job struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a job. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, job Job) error

// Broker defines the broker-agnostic operations used by the app.
type Broker interface {
	Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, queue string, handler Handler) error
	Close() error
}

// NewBrokerFromConfig constructs the configured broker backend.
func NewBrokerFromConfig(ctx context.Context, cfg config.BrokerConfig) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "rabbitmq":
		return NewRabbitMQBroker(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubBroker(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported broker backend: %s", cfg.Backend)
	}
}

// Queue wraps a broker with a stable API.
type Queue struct {
	broker Broker
}

// New constructs a Queue wrapper for the provided broker.
func New(broker Broker) *Queue {
	return &Queue{broker: broker}
}

// Publish sends a job to the named queue.
func (q *Queue) Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error) {
	return q.broker.Publish(ctx, queue, data, attrs)
}

// Subscribe consumes jobs from the named queue.
func (q *Queue) Subscribe(ctx context.Context, queue string, handler Handler) error {
	return q.broker.Subscribe(ctx, queue, handler)
}

// Close closes the underlying broker.
func (q *Queue) Close() error {
	return q.broker.Close()
}
