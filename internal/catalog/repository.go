package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindBookByID loads the book with its inventory row.
func (r *Repository) FindBookByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Inventory").
		Preload("Publisher").
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook inserts a new book row.
func (r *Repository) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// UpdateBook saves an existing book row.
func (r *Repository) UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// DeleteBook removes a book; the inventory row goes with it via cascade.
func (r *Repository) DeleteBook(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Book{}).Error
}

// CreateBookInventory inserts the inventory row for a new book.
func (r *Repository) CreateBookInventory(ctx context.Context, row *models.BookInventory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

type bookSummaryRecord struct {
	ID           uuid.UUID
	Title        string
	Subtitle     *string
	ISBN         *string
	CoverURL     *string
	AvailableQty int
	IsActive     bool
	PublisherID  *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ListBookSummaries returns a cursor-paginated page of books joined with
// their shelf counts.
func (r *Repository) ListBookSummaries(ctx context.Context, input ListBooksInput) (*BookListResult, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("books b").
		Select(strings.Join([]string{
			"b.id",
			"b.title",
			"b.subtitle",
			"b.isbn",
			"b.cover_url",
			"b.is_active",
			"b.publisher_id",
			"b.created_at",
			"b.updated_at",
			"COALESCE(i.available_qty, 0) AS available_qty",
		}, ", ")).
		Joins("LEFT JOIN book_inventory i ON i.book_id = b.id")

	filters := input.Filters
	if filters.OnlyActive {
		qb = qb.Where("b.is_active = ?", true)
	}
	if filters.PublisherID != nil {
		qb = qb.Where("b.publisher_id = ?", *filters.PublisherID)
	}
	if filters.AuthorID != nil {
		qb = qb.Where("b.author_ids LIKE ?", "%"+filters.AuthorID.String()+"%")
	}
	if filters.GenreID != nil {
		qb = qb.Where("b.genre_ids LIKE ?", "%"+filters.GenreID.String()+"%")
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(b.title) LIKE ? OR LOWER(COALESCE(b.isbn, '')) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(b.created_at < ?) OR (b.created_at = ? AND b.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("b.created_at DESC").Order("b.id DESC").Limit(pageSize + 1)

	var records []bookSummaryRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]BookSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, BookSummary{
			ID:           rec.ID,
			Title:        rec.Title,
			Subtitle:     rec.Subtitle,
			ISBN:         rec.ISBN,
			CoverURL:     rec.CoverURL,
			AvailableQty: rec.AvailableQty,
			IsActive:     rec.IsActive,
			PublisherID:  rec.PublisherID,
			CreatedAt:    rec.CreatedAt,
			UpdatedAt:    rec.UpdatedAt,
		})
	}

	return &BookListResult{Books: summaries, NextCursor: nextCursor}, nil
}

// CountAuthors returns how many of the given IDs exist.
func (r *Repository) CountAuthors(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Author{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return int(count), err
}

// CountGenres returns how many of the given IDs exist.
func (r *Repository) CountGenres(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Genre{}).
		Where("id IN ?", ids).
		Count(&count).Error
	return int(count), err
}

// FindAuthorNames resolves author names, sorted alphabetically.
func (r *Repository) FindAuthorNames(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Author{}).
		Where("id IN ?", ids).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

// FindGenreNames resolves genre names, sorted alphabetically.
func (r *Repository) FindGenreNames(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.Genre{}).
		Where("id IN ?", ids).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

// FindPublisher loads a publisher by ID.
func (r *Repository) FindPublisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	var publisher models.Publisher
	if err := r.db.WithContext(ctx).First(&publisher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

// CreateAuthor inserts an author.
func (r *Repository) CreateAuthor(ctx context.Context, author *models.Author) (*models.Author, error) {
	if err := r.db.WithContext(ctx).Create(author).Error; err != nil {
		return nil, err
	}
	return author, nil
}

// ListAuthors returns all authors ordered by name.
func (r *Repository) ListAuthors(ctx context.Context) ([]models.Author, error) {
	var rows []models.Author
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// DeleteAuthor removes an author by ID.
func (r *Repository) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Author{}).Error
}

// CreateGenre inserts a genre.
func (r *Repository) CreateGenre(ctx context.Context, genre *models.Genre) (*models.Genre, error) {
	if err := r.db.WithContext(ctx).Create(genre).Error; err != nil {
		return nil, err
	}
	return genre, nil
}

// ListGenres returns all genres ordered by name.
func (r *Repository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var rows []models.Genre
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// DeleteGenre removes a genre by ID.
func (r *Repository) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Genre{}).Error
}

// CreatePublisher inserts a publisher.
func (r *Repository) CreatePublisher(ctx context.Context, publisher *models.Publisher) (*models.Publisher, error) {
	if err := r.db.WithContext(ctx).Create(publisher).Error; err != nil {
		return nil, err
	}
	return publisher, nil
}

// ListPublishers returns all publishers ordered by name.
func (r *Repository) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	var rows []models.Publisher
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// DeletePublisher removes a publisher by ID.
func (r *Repository) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Publisher{}).Error
}
