package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrConsumerClosed is returned by Consume once the underlying consumer has shut down.
var ErrConsumerClosed = errors.New("event consumer closed")

// EventHandler processes one decoded directory event. A returned error
// causes the message to be redelivered.
type EventHandler func(ctx context.Context, event DirectoryEvent) error

// messageSource is the part of pulsar.Consumer the audit consumer needs.
type messageSource interface {
	Receive(ctx context.Context) (pulsar.Message, error)
	Ack(msg pulsar.Message) error
	Nack(msg pulsar.Message)
	Close()
}

// EventConsumer reads directory events from a Pulsar subscription.
type EventConsumer struct {
	client pulsar.Client
	source messageSource
	retry  backoff.BackOff
}

// NewEventConsumer subscribes to topic. Messages that keep failing are moved
// to "<topic>-dlq" after three deliveries.
func NewEventConsumer(pulsarURL, topic, subscription string) (*EventConsumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{URL: pulsarURL})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
		DLQ: &pulsar.DLQPolicy{
			MaxDeliveries:   3,
			DeadLetterTopic: topic + "-dlq",
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar consumer: %w", err)
	}

	return &EventConsumer{client: client, source: consumer, retry: receiveBackOff()}, nil
}

// receiveBackOff spaces out retries after a failed receive, without giving up.
func receiveBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Consume receives events until ctx is cancelled or the consumer closes.
// Payloads that do not decode are acknowledged and dropped since they can
// never succeed; handler failures are nacked for redelivery.
func (c *EventConsumer) Consume(ctx context.Context, handle EventHandler) error {
	logger := zerolog.Ctx(ctx)
	if c.retry == nil {
		c.retry = receiveBackOff()
	}

	for {
		msg, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isConsumerClosed(err) {
				return ErrConsumerClosed
			}

			wait := c.retry.NextBackOff()
			if wait == backoff.Stop {
				return fmt.Errorf("failed to receive message: %w", err)
			}
			logger.Error().Err(err).Dur("retry_in", wait).Msg("Error receiving message")

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		c.retry.Reset()

		event, err := DecodeEvent(msg.Payload())
		if err != nil {
			logger.Error().Err(err).Str("message_id", msg.ID().String()).Msg("Discarding malformed directory event")
			c.ack(logger, msg)
			continue
		}

		if err := handle(ctx, event); err != nil {
			logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("Directory event handler failed, requesting redelivery")
			c.source.Nack(msg)
			continue
		}
		c.ack(logger, msg)
	}
}

func (c *EventConsumer) ack(logger *zerolog.Logger, msg pulsar.Message) {
	if err := c.source.Ack(msg); err != nil {
		logger.Error().Err(err).Str("message_id", msg.ID().String()).Msg("Failed to acknowledge message")
	}
}

func isConsumerClosed(err error) bool {
	var pulsarErr *pulsar.Error
	return errors.As(err, &pulsarErr) && pulsarErr.Result() == pulsar.ConsumerClosed
}

// Close cleans up the Pulsar consumer and client.
func (c *EventConsumer) Close() {
	c.source.Close()
	if c.client != nil {
		c.client.Close()
	}
}

// DecodeEvent parses a message payload published by EventPublisher.
func DecodeEvent(payload []byte) (DirectoryEvent, error) {
	var event DirectoryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return DirectoryEvent{}, fmt.Errorf("error unmarshaling event: %w", err)
	}
	if event.Type == "" || event.Subject == "" {
		return DirectoryEvent{}, fmt.Errorf("event %s is missing type or subject", event.ID)
	}
	return event, nil
}
