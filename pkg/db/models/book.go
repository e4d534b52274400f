package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/diegocastellanos/booklend-backend/pkg/db/types"
)

// Book represents a catalog title.
type Book struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string            `gorm:"column:title;not null"`
	Subtitle    *string           `gorm:"column:subtitle"`
	Description *string           `gorm:"column:description"`
	ISBN        *string           `gorm:"column:isbn;uniqueIndex"`
	// Array defaults live in the migration only. A gorm-level default
	// would be substituted for zero values and round-trip as the literal
	// text "ARRAY[]::uuid[]"; the Valuer already writes "{}" for nil.
	AuthorIDs   dbtypes.UUIDArray `gorm:"type:uuid[];column:author_ids;not null"`
	GenreIDs    dbtypes.UUIDArray `gorm:"type:uuid[];column:genre_ids;not null"`
	PublisherID *uuid.UUID        `gorm:"column:publisher_id;type:uuid"`
	Publisher   *Publisher        `gorm:"foreignKey:PublisherID"`
	PageCount   *int              `gorm:"column:page_count"`
	PublishedAt *time.Time        `gorm:"column:published_at;type:date"`
	CoverURL    *string           `gorm:"column:cover_url"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	Inventory   *BookInventory    `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
