package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLoan      OutboxAggregateType = "loan"
	AggregateBook      OutboxAggregateType = "book"
	AggregateInventory OutboxAggregateType = "inventory"
	AggregateUser      OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLoan,
	AggregateBook,
	AggregateInventory,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventLoanRequested       OutboxEventType = "loan_requested"
	EventLoanApproved        OutboxEventType = "loan_approved"
	EventLoanRejected        OutboxEventType = "loan_rejected"
	EventLoanReturned        OutboxEventType = "loan_returned"
	EventLoanPurged          OutboxEventType = "loan_purged"
	EventLoanOverdue         OutboxEventType = "loan_overdue"
	EventBookCreated         OutboxEventType = "book_created"
	EventBookUpdated         OutboxEventType = "book_updated"
	EventBookDeleted         OutboxEventType = "book_deleted"
	EventInventoryAdjusted   OutboxEventType = "inventory_adjusted"
	EventReservationReleased OutboxEventType = "reservation_released"
	EventUserRegistered      OutboxEventType = "user_registered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventLoanRequested,
	EventLoanApproved,
	EventLoanRejected,
	EventLoanReturned,
	EventLoanPurged,
	EventLoanOverdue,
	EventBookCreated,
	EventBookUpdated,
	EventBookDeleted,
	EventInventoryAdjusted,
	EventReservationReleased,
	EventUserRegistered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
