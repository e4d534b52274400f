package models

import (
	"time"

	"github.com/google/uuid"
)

// BookInventory tracks the lendable copy count per book. available_qty is
// the number of copies on the shelf; copies held by active loans are not
// represented here, they are implied by the loans table.
type BookInventory struct {
	BookID       uuid.UUID `gorm:"column:book_id;type:uuid;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (BookInventory) TableName() string {
	return "book_inventory"
}
