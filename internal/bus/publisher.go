package bus

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dln-labs/dln-ingest/internal/model"
)

// Publisher wraps a confirm-mode channel dedicated to publishing. A
// confirm channel lets Publish wait for waitForConfirms before
// reporting durability (spec §4.1 "publisher contract").
type Publisher struct {
	bus *Bus
	ch  *amqp.Channel
}

// NewPublisher opens a confirm-mode channel against the given bus.
func (b *Bus) NewPublisher() (*Publisher, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("bus: publisher channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bus: enable confirms: %w", err)
	}
	return &Publisher{bus: b, ch: ch}, nil
}

// Close closes the publisher's channel.
func (p *Publisher) Close() error { return p.ch.Close() }

// Publish validates, serializes, and publishes msg to the main
// exchange, waiting for the broker's confirm before returning true. It
// returns false on back-pressure (publish accepted by the channel but
// not confirmed), and an error only on validation failure or a channel-
// level fault.
func (p *Publisher) Publish(ctx context.Context, msg *model.IngestMessage) (bool, error) {
	if err := msg.Validate(); err != nil {
		return false, model.NewPermanentError("bus publish validation", err)
	}

	body, err := msg.Marshal()
	if err != nil {
		return false, fmt.Errorf("bus: marshal: %w", err)
	}

	headers := amqp.Table{
		"x-retry-count": int32(msg.Attempt),
		"source":        string(msg.Source),
		"priority":      string(msg.Priority),
	}

	confirmation, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.bus.mainExchange, mainRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Signature,
		Headers:      headers,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("bus: publish: %w", err)
	}
	if confirmation == nil {
		// Confirms disabled on this channel; broker-buffered accept only.
		return true, nil
	}

	ok, err := confirmation.WaitContext(ctx)
	if err != nil {
		return false, fmt.Errorf("bus: wait for confirm: %w", err)
	}
	return ok, nil
}

// publishToRetry republishes msg to the dead-letter exchange under the
// retry routing key, landing it in the TTL-gated retry queue (spec
// §4.1). Used by the consumer's retry path; not part of the public
// producer API.
func (p *Publisher) publishToRetry(ctx context.Context, msg *model.IngestMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("bus: marshal: %w", err)
	}

	headers := amqp.Table{
		"x-retry-count": int32(msg.Attempt),
		"source":        string(msg.Source),
		"priority":      string(msg.Priority),
	}

	confirmation, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.bus.dlExchange, retryRoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Signature,
		Headers:      headers,
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("bus: publish to retry: %w", err)
	}
	if confirmation == nil {
		return nil
	}
	if _, err := confirmation.WaitContext(ctx); err != nil {
		return fmt.Errorf("bus: wait for retry confirm: %w", err)
	}
	return nil
}

// BatchResult reports per-message outcomes of PublishBatch.
type BatchResult struct {
	Success int
	Failed  int
}

// PublishBatch publishes every message, never raising for a per-message
// broker rejection (spec §4.1): a rejected or failed message is counted
// under Failed instead of Success.
func (p *Publisher) PublishBatch(ctx context.Context, msgs []*model.IngestMessage) (BatchResult, error) {
	var result BatchResult
	for _, m := range msgs {
		ok, err := p.Publish(ctx, m)
		if err != nil || !ok {
			result.Failed++
			continue
		}
		result.Success++
	}
	return result, nil
}
