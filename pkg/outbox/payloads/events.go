package payloads

import (
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoanRequestedEvent signals a new borrowing request with copies reserved.
type LoanRequestedEvent struct {
	LoanID       uuid.UUID `json:"loan_id"`
	UserID       uuid.UUID `json:"user_id"`
	BookID       uuid.UUID `json:"book_id"`
	RequestedQty int       `json:"requested_qty"`
	DueDate      time.Time `json:"due_date"`
}

// LoanDecisionEvent is emitted when an administrator decides a pending loan.
type LoanDecisionEvent struct {
	LoanID    uuid.UUID          `json:"loan_id"`
	UserID    uuid.UUID          `json:"user_id"`
	BookID    uuid.UUID          `json:"book_id"`
	Decision  enums.LoanDecision `json:"decision"`
	Status    enums.LoanStatus   `json:"status"`
	DecidedBy uuid.UUID          `json:"decided_by"`
}

// LoanReturnedEvent is emitted when a borrower returns an approved loan.
type LoanReturnedEvent struct {
	LoanID       uuid.UUID `json:"loan_id"`
	UserID       uuid.UUID `json:"user_id"`
	BookID       uuid.UUID `json:"book_id"`
	ReturnedQty  int       `json:"returned_qty"`
	ReturnedAt   time.Time `json:"returned_at"`
	ReturnedLate bool      `json:"returned_late"`
}

// LoanPurgedEvent reports that a rejected loan record was deleted.
type LoanPurgedEvent struct {
	LoanID   uuid.UUID `json:"loan_id"`
	UserID   uuid.UUID `json:"user_id"`
	BookID   uuid.UUID `json:"book_id"`
	PurgedAt time.Time `json:"purged_at"`
}

// LoanOverdueEvent describes the payload for the overdue sweep.
type LoanOverdueEvent struct {
	LoanID      uuid.UUID `json:"loanId"`
	UserID      uuid.UUID `json:"userId"`
	BookID      uuid.UUID `json:"bookId"`
	DueDate     time.Time `json:"dueDate"`
	DaysOverdue int       `json:"daysOverdue"`
}

// InventoryAdjustedEvent is emitted when an administrator changes stock directly.
type InventoryAdjustedEvent struct {
	BookID       uuid.UUID `json:"book_id"`
	Delta        int       `json:"delta"`
	AvailableQty int       `json:"available_qty"`
}

// UserRegisteredEvent signals a new member account.
type UserRegisteredEvent struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
}
