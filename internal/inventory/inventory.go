package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
)

// Ledger mutates the per-book copy counts. All writes happen inside the
// caller's transaction so loan state and stock stay consistent.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error
}

type ledger struct{}

// NewLedger exposes the default inventory ledger implementation.
func NewLedger() Ledger {
	return ledger{}
}

// Reserve takes qty copies off the shelf. The guard on available_qty makes
// the decrement conditional: two requests racing for the last copy resolve
// at the database, and the loser sees zero rows updated.
func (ledger) Reserve(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory reserve")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE book_inventory
		SET available_qty = available_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE book_id = ? AND available_qty >= ?
	`, qty, bookID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficient, "not enough copies available")
	}
	return nil
}

// Release puts qty copies back on the shelf. Releases are unconditional so
// a reject or return never strands a loan in a half-released state.
func (ledger) Release(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE book_inventory
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE book_id = ?
	`, qty, bookID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory row missing")
	}
	return nil
}

// FindAvailableQty reads the current shelf count. Callers use it for
// pre-checks and snapshots; reservation correctness never depends on it.
func FindAvailableQty(ctx context.Context, db *gorm.DB, bookID uuid.UUID) (int, error) {
	var row models.BookInventory
	err := db.WithContext(ctx).Where("book_id = ?", bookID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory row missing")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return row.AvailableQty, nil
}

// SetAvailableQty overwrites the shelf count, used by catalog administration.
func SetAvailableQty(ctx context.Context, tx *gorm.DB, bookID uuid.UUID, qty int) error {
	if qty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for inventory update")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE book_inventory
		SET available_qty = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE book_id = ?
	`, qty, bookID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "set inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory row missing")
	}
	return nil
}
