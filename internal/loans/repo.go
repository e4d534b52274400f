package loans

import (
	"context"
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a loans repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error) {
	if err := r.db.WithContext(ctx).Create(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

func (r *repository) FindLoan(ctx context.Context, loanID uuid.UUID) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Where("id = ?", loanID).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *repository) CountActiveLoans(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND status IN ?", userID, activeStatuses()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) CountActiveLoansForBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("book_id = ? AND status IN ?", bookID, activeStatuses()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *repository) UpdateLoan(ctx context.Context, loanID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ?", loanID).
		Updates(updates).Error
}

// TransitionLoan applies updates only while the loan still sits in the from
// status. Zero affected rows comes back as gorm.ErrRecordNotFound: the row
// moved on between the caller's read and this write.
func (r *repository) TransitionLoan(ctx context.Context, loanID uuid.UUID, from enums.LoanStatus, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("id = ? AND status = ?", loanID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteLoan(ctx context.Context, loanID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", loanID).
		Delete(&models.Loan{}).Error
}

func (r *repository) ListLoansByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ?", userID)
	return r.listLoans(ctx, query, params, filters)
}

func (r *repository) ListLoans(ctx context.Context, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	query := r.db.WithContext(ctx).Model(&models.Loan{})
	return r.listLoans(ctx, query, params, filters)
}

func (r *repository) listLoans(ctx context.Context, query *gorm.DB, params pagination.Params, filters LoanFilters) (*LoanList, error) {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.BookID != nil {
		query = query.Where("book_id = ?", *filters.BookID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Loan
	err = query.
		Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &LoanList{Loans: make([]LoanSummary, 0, len(rows))}
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	for _, loan := range rows {
		list.Loans = append(list.Loans, summarize(loan))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return list, nil
}

func summarize(loan models.Loan) LoanSummary {
	return LoanSummary{
		ID:           loan.ID,
		UserID:       loan.UserID,
		BookID:       loan.BookID,
		RequestedQty: loan.RequestedQty,
		Status:       loan.Status,
		RequestDate:  loan.RequestDate,
		DueDate:      loan.DueDate,
		Requester:    loan.Requester,
		Book:         loan.Book,
		DecidedAt:    loan.DecidedAt,
		ReturnedAt:   loan.ReturnedAt,
	}
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindBookWithInventory(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Preload("Publisher").
		Where("id = ?", bookID).
		First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) FindAuthorNames(ctx context.Context, authorIDs []uuid.UUID) ([]string, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Author{}).
		Where("id IN ?", authorIDs).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// FindOverdueLoans returns approved loans past due that have not yet been
// flagged, oldest first so repeated sweeps make progress.
func (r *repository) FindOverdueLoans(ctx context.Context, cutoff time.Time, limit int) ([]models.Loan, error) {
	var rows []models.Loan
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.LoanStatusApproved).
		Where("due_date < ?", cutoff).
		Where("overdue_notified_at IS NULL").
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func activeStatuses() []enums.LoanStatus {
	return []enums.LoanStatus{enums.LoanStatusPending, enums.LoanStatusApproved}
}
