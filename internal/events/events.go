package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event types published after a successful directory mutation.
const (
	UserCreated  = "user.created"
	UserUpdated  = "user.updated"
	UserDeleted  = "user.deleted"
	GroupCreated = "group.created"
	GroupUpdated = "group.updated"
	GroupDeleted = "group.deleted"
)

// DirectoryEvent describes one committed change. Memberships lists the groups
// of a user event or the members of a group event after the change.
type DirectoryEvent struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Subject     string    `json:"subject"`
	Memberships []string  `json:"memberships"`
	Timestamp   int64     `json:"timestamp"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType, subject string, memberships []string) DirectoryEvent {
	if memberships == nil {
		memberships = []string{}
	}
	return DirectoryEvent{
		ID:          uuid.New(),
		Type:        eventType,
		Subject:     subject,
		Memberships: memberships,
		Timestamp:   time.Now().UTC().Unix(),
	}
}

// Notifier publishes directory events.
type Notifier interface {
	Notify(ctx context.Context, event DirectoryEvent) error
	Close()
}

// NopNotifier drops every event. It is used when no Pulsar URL is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, DirectoryEvent) error { return nil }

func (NopNotifier) Close() {}

type EventPublisher struct {
	client   pulsar.Client
	producer pulsar.Producer
}

var _ Notifier = (*EventPublisher)(nil)

// NewEventPublisher initializes the Pulsar client and producer.
func NewEventPublisher(pulsarURL, topic string) (*EventPublisher, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: pulsarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("could not create Pulsar producer: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Pulsar client and producer initialized successfully")
	return &EventPublisher{client: client, producer: producer}, nil
}

// Notify publishes an event keyed by its subject, so events for one user or
// group stay ordered on a partitioned topic.
func (p *EventPublisher) Notify(ctx context.Context, event DirectoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not serialize event payload: %w", err)
	}

	_, err = p.producer.Send(ctx, &pulsar.ProducerMessage{
		Payload: payload,
		Key:     event.Subject,
		Properties: map[string]string{
			"type": event.Type,
		},
	})
	if err != nil {
		return fmt.Errorf("could not send event to Pulsar: %w", err)
	}

	log.Debug().Str("event_id", event.ID.String()).Str("type", event.Type).Msg("Event sent to Pulsar")
	return nil
}

// Close closes the Pulsar client and producer.
func (p *EventPublisher) Close() {
	p.producer.Close()
	p.client.Close()
	log.Info().Msg("Pulsar client and producer closed successfully")
}
