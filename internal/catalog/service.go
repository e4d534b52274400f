package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diegocastellanos/booklend-backend/internal/inventory"
	dbpkg "github.com/diegocastellanos/booklend-backend/pkg/db"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	dbtypes "github.com/diegocastellanos/booklend-backend/pkg/db/types"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type activeLoanCounter interface {
	CountActiveLoansForBook(ctx context.Context, bookID uuid.UUID) (int, error)
}

// Service exposes catalog management and read operations.
type Service interface {
	CreateBook(ctx context.Context, input CreateBookInput) (*BookDTO, error)
	UpdateBook(ctx context.Context, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error)
	DeleteBook(ctx context.Context, bookID uuid.UUID) error
	GetBook(ctx context.Context, bookID uuid.UUID) (*BookDTO, error)
	ListBooks(ctx context.Context, input ListBooksInput) (*BookListResult, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) (*BookDTO, error)
	CreateAuthor(ctx context.Context, name string, bio *string) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error
	CreateGenre(ctx context.Context, name string) (*models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)
	DeleteGenre(ctx context.Context, id uuid.UUID) error
	CreatePublisher(ctx context.Context, name string, website *string) (*models.Publisher, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)
	DeletePublisher(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo        *Repository
	tx          txRunner
	outbox      outboxPublisher
	loanCounter activeLoanCounter
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner, outboxSvc outboxPublisher, loanCounter activeLoanCounter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if loanCounter == nil {
		return nil, fmt.Errorf("loan counter required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		outbox:      outboxSvc,
		loanCounter: loanCounter,
	}, nil
}

// CreateBook creates the book together with its inventory row.
func (s *service) CreateBook(ctx context.Context, input CreateBookInput) (*BookDTO, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.StockedQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stocked quantity cannot be negative")
	}
	if err := s.validateRefs(ctx, input.AuthorIDs, input.GenreIDs, input.PublisherID); err != nil {
		return nil, err
	}

	var createdID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		book := &models.Book{
			ID:          uuid.New(),
			Title:       strings.TrimSpace(input.Title),
			Subtitle:    input.Subtitle,
			Description: input.Description,
			ISBN:        input.ISBN,
			AuthorIDs:   dbtypes.UUIDArray(input.AuthorIDs),
			GenreIDs:    dbtypes.UUIDArray(input.GenreIDs),
			PublisherID: input.PublisherID,
			PageCount:   input.PageCount,
			PublishedAt: input.PublishedAt,
			CoverURL:    input.CoverURL,
			IsActive:    input.IsActive,
		}
		created, err := txRepo.CreateBook(ctx, book)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "isbn already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert book")
		}
		createdID = created.ID

		if err := txRepo.CreateBookInventory(ctx, &models.BookInventory{
			BookID:       created.ID,
			AvailableQty: input.StockedQty,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}

	return s.GetBook(ctx, createdID)
}

// UpdateBook updates descriptive fields; stock is untouched here.
func (s *service) UpdateBook(ctx context.Context, bookID uuid.UUID, input UpdateBookInput) (*BookDTO, error) {
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	authorIDs := []uuid.UUID(book.AuthorIDs)
	if input.AuthorIDs != nil {
		authorIDs = *input.AuthorIDs
	}
	genreIDs := []uuid.UUID(book.GenreIDs)
	if input.GenreIDs != nil {
		genreIDs = *input.GenreIDs
	}
	publisherID := book.PublisherID
	if input.PublisherID != nil {
		publisherID = input.PublisherID
	}
	if err := s.validateRefs(ctx, authorIDs, genreIDs, publisherID); err != nil {
		return nil, err
	}

	applyUpdateToBook(book, input)
	if _, err := s.repo.UpdateBook(ctx, book); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "isbn already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
	}
	return s.GetBook(ctx, book.ID)
}

// DeleteBook removes a book that no active loan still references.
func (s *service) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	if _, err := s.loadBook(ctx, bookID); err != nil {
		return err
	}

	active, err := s.loanCounter.CountActiveLoansForBook(ctx, bookID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
	}
	if active > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "book has active loans")
	}

	if err := s.repo.DeleteBook(ctx, bookID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}
	return nil
}

func (s *service) GetBook(ctx context.Context, bookID uuid.UUID) (*BookDTO, error) {
	book, err := s.loadBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	authors, err := s.repo.FindAuthorNames(ctx, book.AuthorIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load author names")
	}
	genres, err := s.repo.FindGenreNames(ctx, book.GenreIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load genre names")
	}
	var publisherName *string
	if book.Publisher != nil {
		publisherName = &book.Publisher.Name
	}
	return NewBookDTO(book, authors, genres, publisherName), nil
}

func (s *service) ListBooks(ctx context.Context, input ListBooksInput) (*BookListResult, error) {
	result, err := s.repo.ListBookSummaries(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return result, nil
}

// AdjustStock sets the shelf count to an absolute value and records the
// delta as a domain event.
func (s *service) AdjustStock(ctx context.Context, input AdjustStockInput) (*BookDTO, error) {
	if input.NewQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	book, err := s.loadBook(ctx, input.BookID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := inventory.FindAvailableQty(ctx, tx, book.ID)
		if err != nil {
			return err
		}
		if current == input.NewQty {
			return nil
		}
		if err := inventory.SetAvailableQty(ctx, tx, book.ID, input.NewQty); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateInventory,
			AggregateID:   book.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID: input.ActorUserID,
				Role:   input.ActorRole,
			},
			Data: payloads.InventoryAdjustedEvent{
				BookID:       book.ID,
				Delta:        input.NewQty - current,
				AvailableQty: input.NewQty,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	return s.GetBook(ctx, book.ID)
}

func (s *service) CreateAuthor(ctx context.Context, name string, bio *string) (*models.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	author, err := s.repo.CreateAuthor(ctx, &models.Author{ID: uuid.New(), Name: name, Bio: bio})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "author already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create author")
	}
	return author, nil
}

func (s *service) ListAuthors(ctx context.Context) ([]models.Author, error) {
	rows, err := s.repo.ListAuthors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list authors")
	}
	return rows, nil
}

func (s *service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAuthor(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete author")
	}
	return nil
}

func (s *service) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	genre, err := s.repo.CreateGenre(ctx, &models.Genre{ID: uuid.New(), Name: name})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "genre already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create genre")
	}
	return genre, nil
}

func (s *service) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := s.repo.ListGenres(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list genres")
	}
	return rows, nil
}

func (s *service) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteGenre(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete genre")
	}
	return nil
}

func (s *service) CreatePublisher(ctx context.Context, name string, website *string) (*models.Publisher, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	publisher, err := s.repo.CreatePublisher(ctx, &models.Publisher{ID: uuid.New(), Name: name, Website: website})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "publisher already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create publisher")
	}
	return publisher, nil
}

func (s *service) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	rows, err := s.repo.ListPublishers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list publishers")
	}
	return rows, nil
}

func (s *service) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeletePublisher(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete publisher")
	}
	return nil
}

func (s *service) loadBook(ctx context.Context, bookID uuid.UUID) (*models.Book, error) {
	book, err := s.repo.FindBookByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

func (s *service) validateRefs(ctx context.Context, authorIDs, genreIDs []uuid.UUID, publisherID *uuid.UUID) error {
	if len(authorIDs) > 0 {
		count, err := s.repo.CountAuthors(ctx, dedupe(authorIDs))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check authors")
		}
		if count != len(dedupe(authorIDs)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown author id")
		}
	}
	if len(genreIDs) > 0 {
		count, err := s.repo.CountGenres(ctx, dedupe(genreIDs))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check genres")
		}
		if count != len(dedupe(genreIDs)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "unknown genre id")
		}
	}
	if publisherID != nil {
		if _, err := s.repo.FindPublisher(ctx, *publisherID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "unknown publisher id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check publisher")
		}
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func applyUpdateToBook(book *models.Book, input UpdateBookInput) {
	if input.Title != nil {
		book.Title = strings.TrimSpace(*input.Title)
	}
	if input.Subtitle != nil {
		book.Subtitle = input.Subtitle
	}
	if input.Description != nil {
		book.Description = input.Description
	}
	if input.ISBN != nil {
		book.ISBN = input.ISBN
	}
	if input.AuthorIDs != nil {
		book.AuthorIDs = dbtypes.UUIDArray(append([]uuid.UUID(nil), *input.AuthorIDs...))
	}
	if input.GenreIDs != nil {
		book.GenreIDs = dbtypes.UUIDArray(append([]uuid.UUID(nil), *input.GenreIDs...))
	}
	if input.PublisherID != nil {
		book.PublisherID = input.PublisherID
	}
	if input.PageCount != nil {
		book.PageCount = input.PageCount
	}
	if input.PublishedAt != nil {
		book.PublishedAt = input.PublishedAt
	}
	if input.CoverURL != nil {
		book.CoverURL = input.CoverURL
	}
	if input.IsActive != nil {
		book.IsActive = *input.IsActive
	}
}
