package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every envelope this package builds.
const SchemaVersion = 1

// TopicPrefix namespaces every storefront topic and is the default source.
const TopicPrefix = "storefront"

// Event is the envelope every storefront event is published in. Key picks the
// partition, so events sharing a key are delivered in order.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Key           string            `json:"key"`
	Subject       string            `json:"subject"`
	SchemaVersion int               `json:"schema_version"`
	OccurredAt    time.Time         `json:"occurred_at"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Data          json.RawMessage   `json:"data"`
}

// Option customizes an Event built by NewEvent.
type Option func(*Event)

// WithCorrelationID ties the event to the request that caused it. Empty IDs
// are ignored.
func WithCorrelationID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// WithAttribute adds a string attribute. Empty values are ignored.
func WithAttribute(key, value string) Option {
	return func(e *Event) {
		if value == "" {
			return
		}
		if e.Attributes == nil {
			e.Attributes = make(map[string]string)
		}
		e.Attributes[key] = value
	}
}

// WithSource overrides the emitting service name.
func WithSource(source string) Option {
	return func(e *Event) { e.Source = source }
}

// NewEvent builds an envelope of the given type for the entity identified by
// key. subject names the kind of entity, e.g. "cart" or "order".
func NewEvent(eventType, key, subject string, data any, opts ...Option) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	e := &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Key:           key,
		Subject:       subject,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Source:        TopicPrefix,
		Data:          payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Marshal serializes the envelope.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Topic builds "storefront.<domain>.<action>".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
