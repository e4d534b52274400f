package loans

import (
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/diegocastellanos/booklend-backend/pkg/types"
	"github.com/google/uuid"
)

// LoanFilters describe the inputs supported by the loan lists.
type LoanFilters struct {
	Status   *enums.LoanStatus
	BookID   *uuid.UUID
	DateFrom *time.Time
	DateTo   *time.Time
}

// LoanSummary exposes the fields returned in loan lists. Requester and book
// come from the snapshot taken at request time.
type LoanSummary struct {
	ID           uuid.UUID               `json:"id"`
	UserID       uuid.UUID               `json:"user_id"`
	BookID       uuid.UUID               `json:"book_id"`
	RequestedQty int                     `json:"requested_qty"`
	Status       enums.LoanStatus        `json:"status"`
	RequestDate  time.Time               `json:"request_date"`
	DueDate      time.Time               `json:"due_date"`
	Requester    types.RequesterSnapshot `json:"requester"`
	Book         types.BookSnapshot      `json:"book"`
	DecidedAt    *time.Time              `json:"decided_at,omitempty"`
	ReturnedAt   *time.Time              `json:"returned_at,omitempty"`
}

// LoanList wraps the paginated loans plus the next page cursor.
type LoanList struct {
	Loans      []LoanSummary `json:"loans"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
