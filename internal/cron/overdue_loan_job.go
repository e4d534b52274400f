package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/internal/loans"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox/payloads"
)

const defaultOverdueBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type outboxExistenceChecker interface {
	Exists(ctx context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error)
}

type overdueLoanReader interface {
	FindOverdueLoans(ctx context.Context, cutoff time.Time, limit int) ([]models.Loan, error)
}

type overdueLoanMarker interface {
	UpdateLoan(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type overdueRepoFactory func(tx *gorm.DB) overdueLoanMarker

func defaultOverdueRepo(tx *gorm.DB) overdueLoanMarker {
	return loans.NewRepository(tx)
}

// OverdueLoanJobParams configure the overdue loan sweep.
type OverdueLoanJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	OverdueReader overdueLoanReader
	Outbox        outboxEmitter
	OutboxRepo    outboxExistenceChecker
	RepoFactory   overdueRepoFactory
	BatchSize     int
}

// NewOverdueLoanJob builds the cron job that flags approved loans past their due date.
func NewOverdueLoanJob(params OverdueLoanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.OverdueReader == nil {
		return nil, fmt.Errorf("overdue loans reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultOverdueRepo
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultOverdueBatchSize
	}
	return &overdueLoanJob{
		logg:        params.Logger,
		db:          params.DB,
		reader:      params.OverdueReader,
		outbox:      params.Outbox,
		outboxRepo:  params.OutboxRepo,
		repoFactory: repoFactory,
		batchSize:   batchSize,
		now:         time.Now,
	}, nil
}

type overdueLoanJob struct {
	logg        *logger.Logger
	db          txRunner
	reader      overdueLoanReader
	outbox      outboxEmitter
	outboxRepo  outboxExistenceChecker
	repoFactory overdueRepoFactory
	batchSize   int
	now         func() time.Time
}

func (j *overdueLoanJob) Name() string { return "overdue-loans" }

func (j *overdueLoanJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	overdue, err := j.reader.FindOverdueLoans(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("query overdue loans: %w", err)
	}

	var errs []error
	flagged := 0
	for _, loan := range overdue {
		if err := j.flagLoan(ctx, loan, now); err != nil {
			errs = append(errs, fmt.Errorf("loan %s: %w", loan.ID, err))
			continue
		}
		flagged++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(overdue),
		"flagged":    flagged,
	})
	j.logg.Info(logCtx, "overdue loan sweep complete")
	return multierr.Combine(errs...)
}

func (j *overdueLoanJob) flagLoan(ctx context.Context, loan models.Loan, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		if err := repo.UpdateLoan(ctx, loan.ID, map[string]any{
			"overdue_notified_at": now,
		}); err != nil {
			return fmt.Errorf("mark overdue: %w", err)
		}

		exists, err := j.outboxRepo.Exists(ctx, enums.EventLoanOverdue, enums.AggregateLoan, loan.ID)
		if err != nil {
			return fmt.Errorf("check overdue event existence: %w", err)
		}
		if exists {
			return nil
		}

		daysOverdue := int(now.Sub(loan.DueDate).Hours() / 24)
		if daysOverdue < 1 {
			daysOverdue = 1
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventLoanOverdue,
			AggregateType: enums.AggregateLoan,
			AggregateID:   loan.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.LoanOverdueEvent{
				LoanID:      loan.ID,
				UserID:      loan.UserID,
				BookID:      loan.BookID,
				DueDate:     loan.DueDate,
				DaysOverdue: daysOverdue,
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
}
