package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	"github.com/diegocastellanos/booklend-backend/pkg/types"
)

// Loan represents a borrowing request and its lifecycle. Requester and book
// details are denormalized at request time so the record stays readable even
// if the source rows change or disappear.
type Loan struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	BookID         uuid.UUID               `gorm:"column:book_id;type:uuid;not null;index"`
	RequestedQty   int                     `gorm:"column:requested_qty;not null"`
	Status         enums.LoanStatus        `gorm:"column:status;type:loan_status;not null;default:'pending'"`
	RequestDate    time.Time               `gorm:"column:request_date;not null"`
	DueDate        time.Time               `gorm:"column:due_date;not null"`
	Requester      types.RequesterSnapshot `gorm:"column:requester;type:jsonb;serializer:json"`
	Book           types.BookSnapshot      `gorm:"column:book;type:jsonb;serializer:json"`
	DecidedAt      *time.Time              `gorm:"column:decided_at"`
	DecidedBy      *uuid.UUID              `gorm:"column:decided_by;type:uuid"`
	ReturnedAt     *time.Time              `gorm:"column:returned_at"`
	OverdueNotifAt *time.Time              `gorm:"column:overdue_notified_at"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
