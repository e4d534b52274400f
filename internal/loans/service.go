package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/metrics"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox/payloads"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/diegocastellanos/booklend-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// InventoryLedger reserves and releases the copies a loan holds. Both calls
// run inside the workflow transaction.
type InventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error
}

// Service defines loan lifecycle operations beyond repository reads.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.Loan, error)
	Decision(ctx context.Context, input DecisionInput) error
	Return(ctx context.Context, input ReturnInput) error
	Purge(ctx context.Context, input PurgeInput) error
	ListForRequester(ctx context.Context, userID uuid.UUID, params pagination.Params, filters LoanFilters) (*LoanList, error)
	ListAdmin(ctx context.Context, params pagination.Params, filters LoanFilters) (*LoanList, error)
	FindByID(ctx context.Context, input FindInput) (*models.Loan, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	ledger     InventoryLedger
	metrics    *metrics.LoanMetrics
	loanPeriod time.Duration
}

// RequestInput captures a member's borrowing request.
type RequestInput struct {
	RequesterID uuid.UUID
	BookID      uuid.UUID
	Qty         int
}

// DecisionInput captures an administrator's ruling on a pending loan.
type DecisionInput struct {
	LoanID      uuid.UUID
	Decision    enums.LoanDecision
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// ReturnInput records that the borrower brought the copies back.
type ReturnInput struct {
	LoanID      uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// PurgeInput asks to delete a rejected loan record.
type PurgeInput struct {
	LoanID      uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// FindInput scopes a single-loan read to the caller.
type FindInput struct {
	LoanID      uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// NewService builds a loan service with the required dependencies. The
// metrics collector may be nil; transitions are then not counted.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, ledger InventoryLedger, loanMetrics *metrics.LoanMetrics, cfg config.LoansConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("loans repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     outboxSvc,
		ledger:     ledger,
		metrics:    loanMetrics,
		loanPeriod: cfg.LoanPeriod(),
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Loan, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.BookID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var created *models.Loan
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUser(ctx, input.RequesterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requester")
		}
		if !CanBorrow(user.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "role is not allowed to borrow")
		}
		if !user.Contact.HasPhone() {
			return pkgerrors.New(pkgerrors.CodeValidation, "phone number required before borrowing")
		}

		activeCount, err := repo.CountActiveLoans(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
		}
		if !CanRequestLoan(user.Role, activeCount) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "active loan limit reached")
		}

		book, err := repo.FindBookWithInventory(ctx, input.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}
		if !book.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}

		available := 0
		if book.Inventory != nil {
			available = book.Inventory.AvailableQty
		}
		if input.Qty > available {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available copies")
		}

		// The read above can go stale under concurrency. The ledger's
		// conditional update is what actually settles the race.
		if err := s.ledger.Reserve(ctx, tx, book.ID, input.Qty); err != nil {
			return err
		}

		authors, err := repo.FindAuthorNames(ctx, book.AuthorIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load author names")
		}

		now := time.Now().UTC()
		loan := &models.Loan{
			ID:           uuid.New(),
			UserID:       user.ID,
			BookID:       book.ID,
			RequestedQty: input.Qty,
			Status:       enums.LoanStatusPending,
			RequestDate:  now,
			DueDate:      now.Add(s.loanPeriod),
			Requester:    buildRequesterSnapshot(user),
			Book:         buildBookSnapshot(book, authors, available),
		}
		loan, err = repo.CreateLoan(ctx, loan)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loan")
		}
		created = loan

		event := outbox.DomainEvent{
			EventType:     enums.EventLoanRequested,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Actor:         buildActor(user.ID, user.Role),
			Data: payloads.LoanRequestedEvent{
				LoanID:       loan.ID,
				UserID:       loan.UserID,
				BookID:       loan.BookID,
				RequestedQty: loan.RequestedQty,
				DueDate:      loan.DueDate,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition("requested")
	return created, nil
}

func (s *service) Decision(ctx context.Context, input DecisionInput) error {
	if input.LoanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "loan decisions require an administrator")
	}

	targetStatus, eventType, err := mapDecision(input.Decision)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := repo.FindLoan(ctx, input.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if loan.Status != enums.LoanStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "decision not allowed in current state")
		}

		// The read above can be stale under concurrency; the conditional
		// write decides which transaction owns the transition, and the
		// ledger is touched only after winning it.
		now := time.Now().UTC()
		updates := map[string]any{
			"status":     targetStatus,
			"decided_at": now,
			"decided_by": input.ActorUserID,
		}
		if err := repo.TransitionLoan(ctx, loan.ID, enums.LoanStatusPending, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "decision not allowed in current state")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loan status")
		}

		if targetStatus == enums.LoanStatusRejected {
			if err := s.ledger.Release(ctx, tx, loan.BookID, loan.RequestedQty); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.LoanDecisionEvent{
				LoanID:    loan.ID,
				UserID:    loan.UserID,
				BookID:    loan.BookID,
				Decision:  input.Decision,
				Status:    targetStatus,
				DecidedBy: input.ActorUserID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition(string(targetStatus))
	return nil
}

func (s *service) Return(ctx context.Context, input ReturnInput) error {
	if input.LoanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := repo.FindLoan(ctx, input.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if loan.UserID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "loan does not belong to caller")
		}
		if loan.Status != enums.LoanStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return not allowed in current state")
		}

		// Same discipline as Decision: win the conditional write before
		// restoring stock, so concurrent returns release exactly once.
		now := time.Now().UTC()
		updates := map[string]any{
			"status":      enums.LoanStatusCompleted,
			"returned_at": now,
		}
		if err := repo.TransitionLoan(ctx, loan.ID, enums.LoanStatusApproved, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "return not allowed in current state")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update loan status")
		}

		if err := s.ledger.Release(ctx, tx, loan.BookID, loan.RequestedQty); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventLoanReturned,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.LoanReturnedEvent{
				LoanID:       loan.ID,
				UserID:       loan.UserID,
				BookID:       loan.BookID,
				ReturnedQty:  loan.RequestedQty,
				ReturnedAt:   now,
				ReturnedLate: now.After(loan.DueDate),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition(string(enums.LoanStatusCompleted))
	return nil
}

func (s *service) Purge(ctx context.Context, input PurgeInput) error {
	if input.LoanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "purging loans requires an administrator")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loan, err := repo.FindLoan(ctx, input.LoanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
		}
		if loan.Status != enums.LoanStatusRejected {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only rejected loans can be purged")
		}

		// Rejected loans already released their copies; no ledger call here.
		if err := repo.DeleteLoan(ctx, loan.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete loan")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventLoanPurged,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.LoanPurgedEvent{
				LoanID:   loan.ID,
				UserID:   loan.UserID,
				BookID:   loan.BookID,
				PurgedAt: time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	s.metrics.IncTransition("purged")
	return nil
}

func (s *service) ListForRequester(ctx context.Context, userID uuid.UUID, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListLoansByUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}
	return list, nil
}

func (s *service) ListAdmin(ctx context.Context, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	list, err := s.repo.ListLoans(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list loans")
	}
	return list, nil
}

func (s *service) FindByID(ctx context.Context, input FindInput) (*models.Loan, error) {
	if input.LoanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan id required")
	}
	loan, err := s.repo.FindLoan(ctx, input.LoanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "loan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loan")
	}
	if loan.UserID != input.ActorUserID && input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "loan does not belong to caller")
	}
	return loan, nil
}

func mapDecision(decision enums.LoanDecision) (enums.LoanStatus, enums.OutboxEventType, error) {
	switch decision {
	case enums.LoanDecisionApprove:
		return enums.LoanStatusApproved, enums.EventLoanApproved, nil
	case enums.LoanDecisionReject:
		return enums.LoanStatusRejected, enums.EventLoanRejected, nil
	default:
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject")
	}
}

func buildRequesterSnapshot(user *models.User) types.RequesterSnapshot {
	return types.RequesterSnapshot{
		Name:  user.FullName(),
		Email: user.Email,
		Phone: user.Contact.Phone,
	}
}

func buildBookSnapshot(book *models.Book, authors []string, availableQty int) types.BookSnapshot {
	snapshot := types.BookSnapshot{
		Title:        book.Title,
		Authors:      authors,
		AvailableQty: availableQty,
	}
	if book.Publisher != nil {
		snapshot.Publisher = &book.Publisher.Name
	}
	return snapshot
}

func buildActor(userID uuid.UUID, role enums.UserRole) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(role),
	}
}
