package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, destination topic,
// and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor. Loan
// lifecycle events ride the loans topic; everything else goes to the
// shared domain topic.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError tells the dispatcher a row can never publish and must
// be dead lettered instead of retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.LoansTopic == "" {
		return nil, fmt.Errorf("loans topic is required")
	}
	if cfg.DomainTopic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}

	loanEvents := map[enums.OutboxEventType]func() interface{}{
		enums.EventLoanRequested: func() interface{} { return &payloads.LoanRequestedEvent{} },
		enums.EventLoanApproved:  func() interface{} { return &payloads.LoanDecisionEvent{} },
		enums.EventLoanRejected:  func() interface{} { return &payloads.LoanDecisionEvent{} },
		enums.EventLoanReturned:  func() interface{} { return &payloads.LoanReturnedEvent{} },
		enums.EventLoanPurged:    func() interface{} { return &payloads.LoanPurgedEvent{} },
		enums.EventLoanOverdue:   func() interface{} { return &payloads.LoanOverdueEvent{} },
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for eventType, factory := range loanEvents {
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateLoan,
			Topic:          cfg.LoansTopic,
			PayloadFactory: factory,
		}
	}
	reg.entries[enums.EventInventoryAdjusted] = EventDescriptor{
		EventType:      enums.EventInventoryAdjusted,
		AggregateType:  enums.AggregateInventory,
		Topic:          cfg.DomainTopic,
		PayloadFactory: func() interface{} { return &payloads.InventoryAdjustedEvent{} },
	}
	reg.entries[enums.EventUserRegistered] = EventDescriptor{
		EventType:      enums.EventUserRegistered,
		AggregateType:  enums.AggregateUser,
		Topic:          cfg.DomainTopic,
		PayloadFactory: func() interface{} { return &payloads.UserRegisteredEvent{} },
	}
	return reg, nil
}

// Resolve validates the row against its descriptor and decodes the typed
// payload out of the envelope. Every failure here is permanent, so all
// errors are non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
