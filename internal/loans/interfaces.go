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

// Repository defines persistence operations for the loan tables plus the
// reads the workflow needs from users and the catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLoan(ctx context.Context, loan *models.Loan) (*models.Loan, error)
	FindLoan(ctx context.Context, loanID uuid.UUID) (*models.Loan, error)
	CountActiveLoans(ctx context.Context, userID uuid.UUID) (int, error)
	CountActiveLoansForBook(ctx context.Context, bookID uuid.UUID) (int, error)
	UpdateLoan(ctx context.Context, loanID uuid.UUID, updates map[string]any) error
	TransitionLoan(ctx context.Context, loanID uuid.UUID, from enums.LoanStatus, updates map[string]any) error
	DeleteLoan(ctx context.Context, loanID uuid.UUID) error
	ListLoansByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters LoanFilters) (*LoanList, error)
	ListLoans(ctx context.Context, params pagination.Params, filters LoanFilters) (*LoanList, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	FindBookWithInventory(ctx context.Context, bookID uuid.UUID) (*models.Book, error)
	FindAuthorNames(ctx context.Context, authorIDs []uuid.UUID) ([]string, error)
	FindOverdueLoans(ctx context.Context, cutoff time.Time, limit int) ([]models.Loan, error)
}
