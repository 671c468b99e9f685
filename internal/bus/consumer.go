package bus

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dln-labs/dln-ingest/internal/model"
)

// Handler processes one ingest message. Its return value selects the
// outcome (spec §4.1 "consumer contract"):
//   - true  -> ack
//   - false -> retry path: republish to the retry queue with an
//     incremented attempt, then ack the original delivery
//   - error -> treated identically to returning false
type Handler func(ctx context.Context, msg *model.IngestMessage, meta DeliveryMeta) (bool, error)

// Consumer delivers messages from the main queue to a Handler,
// honoring a prefetch limit and the attempt/maxRetries/DLQ contract.
type Consumer struct {
	bus *Bus
	ch  *amqp.Channel
	pub *Publisher
}

// NewConsumer opens a dedicated channel with the given prefetch limit
// and a companion publisher for the retry republish path.
func (b *Bus) NewConsumer(prefetch int) (*Consumer, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("bus: consumer channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bus: qos: %w", err)
	}
	pub, err := b.NewPublisher()
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Consumer{bus: b, ch: ch, pub: pub}, nil
}

// Close tears down the consumer's channel and its retry publisher.
func (c *Consumer) Close() error {
	_ = c.pub.Close()
	return c.ch.Close()
}

// Consume installs handler and blocks, delivering messages one at a
// time per spec §4.1, until ctx is cancelled or the delivery channel
// closes.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.bus.mainQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("bus: consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("bus: delivery channel closed")
			}
			c.handle(ctx, d, handler)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler Handler) {
	msg, err := model.UnmarshalIngestMessage(d.Body)
	if err != nil {
		// Unparseable body: permanent, ack without retry (spec §7).
		c.bus.log.Error().Err(err).Msg("discarding unparseable delivery")
		_ = d.Ack(false)
		return
	}

	attempt := msg.Attempt
	if hdr, ok := d.Headers["x-retry-count"]; ok {
		if n, ok := toInt(hdr); ok && n > attempt {
			attempt = n
		}
	}
	meta := DeliveryMeta{Attempt: attempt}

	if attempt >= c.bus.maxRetries {
		// Max retries already exhausted on entry: route straight to the
		// DLQ via the main queue's own dead-letter-exchange (spec §4.1).
		_ = d.Nack(false, false)
		return
	}

	ok, handlerErr := handler(ctx, msg, meta)
	if handlerErr != nil {
		c.bus.log.Warn().Err(handlerErr).Str("signature", msg.Signature).Msg("handler error, retrying")
		ok = false
	}

	if ok {
		_ = d.Ack(false)
		return
	}

	c.retry(ctx, msg, attempt, d)
}

// retry republishes msg to the dead-letter exchange under the retry
// routing key with an incremented attempt, then acks the original
// delivery so it is removed from the main queue (spec §4.1).
func (c *Consumer) retry(ctx context.Context, msg *model.IngestMessage, attempt int, d amqp.Delivery) {
	next := *msg
	next.Attempt = attempt + 1

	if err := c.pub.publishToRetry(ctx, &next); err != nil {
		c.bus.log.Error().Err(err).Str("signature", msg.Signature).Msg("failed to republish to retry queue, nacking for requeue")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	case int16:
		return int(n), true
	}
	return 0, false
}
