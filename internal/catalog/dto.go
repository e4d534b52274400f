package catalog

import (
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/google/uuid"
)

// CreateBookInput holds the validated payload to create a book.
type CreateBookInput struct {
	Title       string
	Subtitle    *string
	Description *string
	ISBN        *string
	AuthorIDs   []uuid.UUID
	GenreIDs    []uuid.UUID
	PublisherID *uuid.UUID
	PageCount   *int
	PublishedAt *time.Time
	CoverURL    *string
	IsActive    bool
	StockedQty  int
}

// UpdateBookInput holds optional mutation values for a book. Stock is not
// here; it moves only through AdjustStock.
type UpdateBookInput struct {
	Title       *string
	Subtitle    *string
	Description *string
	ISBN        *string
	AuthorIDs   *[]uuid.UUID
	GenreIDs    *[]uuid.UUID
	PublisherID *uuid.UUID
	PageCount   *int
	PublishedAt *time.Time
	CoverURL    *string
	IsActive    *bool
}

// AdjustStockInput sets a book's shelf count to an absolute value.
type AdjustStockInput struct {
	BookID      uuid.UUID
	NewQty      int
	ActorUserID uuid.UUID
	ActorRole   string
}

// BookListFilters describe the inputs supported by the public book list.
type BookListFilters struct {
	Query       string
	AuthorID    *uuid.UUID
	GenreID     *uuid.UUID
	PublisherID *uuid.UUID
	OnlyActive  bool
}

// ListBooksInput bundles pagination and filters for the book list.
type ListBooksInput struct {
	Pagination pagination.Params
	Filters    BookListFilters
}

// BookSummary exposes the fields returned in the book list.
type BookSummary struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Subtitle     *string    `json:"subtitle,omitempty"`
	ISBN         *string    `json:"isbn,omitempty"`
	CoverURL     *string    `json:"cover_url,omitempty"`
	AvailableQty int        `json:"available_qty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	PublisherID  *uuid.UUID `json:"publisher_id,omitempty"`
}

// BookListResult wraps the paginated books plus the next page cursor.
type BookListResult struct {
	Books      []BookSummary `json:"books"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// BookDTO is the detail representation with resolved names.
type BookDTO struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	Subtitle     *string     `json:"subtitle,omitempty"`
	Description  *string     `json:"description,omitempty"`
	ISBN         *string     `json:"isbn,omitempty"`
	AuthorIDs    []uuid.UUID `json:"author_ids"`
	Authors      []string    `json:"authors"`
	GenreIDs     []uuid.UUID `json:"genre_ids"`
	Genres       []string    `json:"genres"`
	PublisherID  *uuid.UUID  `json:"publisher_id,omitempty"`
	Publisher    *string     `json:"publisher,omitempty"`
	PageCount    *int        `json:"page_count,omitempty"`
	PublishedAt  *time.Time  `json:"published_at,omitempty"`
	CoverURL     *string     `json:"cover_url,omitempty"`
	IsActive     bool        `json:"is_active"`
	AvailableQty int         `json:"available_qty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewBookDTO assembles the detail DTO from the model and resolved names.
func NewBookDTO(book *models.Book, authors, genres []string, publisherName *string) *BookDTO {
	dto := &BookDTO{
		ID:          book.ID,
		Title:       book.Title,
		Subtitle:    book.Subtitle,
		Description: book.Description,
		ISBN:        book.ISBN,
		AuthorIDs:   book.AuthorIDs,
		Authors:     authors,
		GenreIDs:    book.GenreIDs,
		Genres:      genres,
		PublisherID: book.PublisherID,
		Publisher:   publisherName,
		PageCount:   book.PageCount,
		PublishedAt: book.PublishedAt,
		CoverURL:    book.CoverURL,
		IsActive:    book.IsActive,
		CreatedAt:   book.CreatedAt,
		UpdatedAt:   book.UpdatedAt,
	}
	if book.Inventory != nil {
		dto.AvailableQty = book.Inventory.AvailableQty
	}
	if dto.Authors == nil {
		dto.Authors = []string{}
	}
	if dto.Genres == nil {
		dto.Genres = []string{}
	}
	return dto
}
