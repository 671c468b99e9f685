// Package bus implements the durable transaction bus (spec §4.1, C1):
// a main exchange/queue, a TTL-gated retry queue, and a terminal
// dead-letter queue, fronted by a publisher with confirms and a
// consumer with prefetch and per-message attempt tracking.
//
// The topology mirrors spec §4.1 exactly:
//   - mainExchange (topic) -> mainQueue, routing key "message"
//   - DLX (topic), used for both retry and terminal dead-lettering
//   - retryQueue bound to DLX under "retry.message", with a
//     per-message TTL equal to the configured retry delay and its own
//     dead-letter target pointing back at mainExchange/"message" so
//     expired retries re-enter the main queue
//   - dlqQueue bound to DLX under "dlq.message", terminal
//   - mainQueue's own DLX points at DLX with routing key
//     "dlq.message", so a bare nack(requeue=false) lands in the DLQ
package bus

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/model"
)

const (
	mainRoutingKey  = "message"
	retryRoutingKey = "retry.message"
	dlqRoutingKey   = "dlq.message"
)

// Bus owns the AMQP connection and the declared topology for one
// logical stream (queueName).
type Bus struct {
	log zerolog.Logger

	conn *amqp.Connection

	mainExchange string
	dlExchange   string
	mainQueue    string
	retryQueue   string
	dlqQueue     string

	retryDelay time.Duration
	maxRetries int
}

// New dials the broker and declares the full topology.
func New(cfg *config.Config, log zerolog.Logger) (*Bus, error) {
	conn, err := amqp.Dial(cfg.BusURL)
	if err != nil {
		return nil, fmt.Errorf("bus: dial: %w", err)
	}

	b := &Bus{
		log:          log.With().Str("component", "bus").Logger(),
		conn:         conn,
		mainExchange: cfg.BusQueueName + ".main",
		dlExchange:   cfg.BusQueueName + ".dlx",
		mainQueue:    cfg.BusQueueName,
		retryQueue:   cfg.BusQueueName + ".retry",
		dlqQueue:     cfg.BusQueueName + ".dlq",
		retryDelay:   cfg.BusRetryDelay,
		maxRetries:   cfg.BusMaxRetries,
	}

	if err := b.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bus) declareTopology() error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("bus: channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(b.mainExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: declare main exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(b.dlExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: declare dlx: %w", err)
	}

	mainArgs := amqp.Table{
		"x-dead-letter-exchange":    b.dlExchange,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(b.mainQueue, true, false, false, false, mainArgs); err != nil {
		return fmt.Errorf("bus: declare main queue: %w", err)
	}
	if err := ch.QueueBind(b.mainQueue, mainRoutingKey, b.mainExchange, false, nil); err != nil {
		return fmt.Errorf("bus: bind main queue: %w", err)
	}

	retryArgs := amqp.Table{
		"x-message-ttl":             int64(b.retryDelay / time.Millisecond),
		"x-dead-letter-exchange":    b.mainExchange,
		"x-dead-letter-routing-key": mainRoutingKey,
	}
	if _, err := ch.QueueDeclare(b.retryQueue, true, false, false, false, retryArgs); err != nil {
		return fmt.Errorf("bus: declare retry queue: %w", err)
	}
	if err := ch.QueueBind(b.retryQueue, retryRoutingKey, b.dlExchange, false, nil); err != nil {
		return fmt.Errorf("bus: bind retry queue: %w", err)
	}

	if _, err := ch.QueueDeclare(b.dlqQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("bus: declare dlq: %w", err)
	}
	if err := ch.QueueBind(b.dlqQueue, dlqRoutingKey, b.dlExchange, false, nil); err != nil {
		return fmt.Errorf("bus: bind dlq: %w", err)
	}

	return nil
}

// Close tears down the connection.
func (b *Bus) Close() error { return b.conn.Close() }

// Ping reports broker connectivity for the health/admin surface (C10).
func (b *Bus) Ping() error {
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("bus: connection closed")
	}
	return nil
}

// DeliveryMeta carries per-delivery bookkeeping handed to the consumer
// handler (spec §4.1 "consumer contract").
type DeliveryMeta struct {
	Attempt int
}
