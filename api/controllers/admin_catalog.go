package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/diegocastellanos/booklend-backend/api/middleware"
	"github.com/diegocastellanos/booklend-backend/api/responses"
	"github.com/diegocastellanos/booklend-backend/api/validators"
	catalogsvc "github.com/diegocastellanos/booklend-backend/internal/catalog"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

type bookPayloadRequest struct {
	Title       string     `json:"title" validate:"required"`
	Subtitle    *string    `json:"subtitle,omitempty"`
	Description *string    `json:"description,omitempty"`
	ISBN        *string    `json:"isbn,omitempty"`
	AuthorIDs   []string   `json:"author_ids" validate:"required,min=1,dive,uuid4"`
	GenreIDs    []string   `json:"genre_ids,omitempty" validate:"omitempty,dive,uuid4"`
	PublisherID *string    `json:"publisher_id,omitempty" validate:"omitempty,uuid4"`
	PageCount   *int       `json:"page_count,omitempty" validate:"omitempty,min=1"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CoverURL    *string    `json:"cover_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool      `json:"is_active,omitempty"`
	StockedQty  int        `json:"stocked_qty" validate:"min=0"`
}

// AdminCreateBook registers a new title in the catalog.
func AdminCreateBook(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body bookPayloadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.CreateBook(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

type updateBookRequest struct {
	Title       *string    `json:"title,omitempty"`
	Subtitle    *string    `json:"subtitle,omitempty"`
	Description *string    `json:"description,omitempty"`
	ISBN        *string    `json:"isbn,omitempty"`
	AuthorIDs   *[]string  `json:"author_ids,omitempty" validate:"omitempty,min=1,dive,uuid4"`
	GenreIDs    *[]string  `json:"genre_ids,omitempty" validate:"omitempty,dive,uuid4"`
	PublisherID *string    `json:"publisher_id,omitempty" validate:"omitempty,uuid4"`
	PageCount   *int       `json:"page_count,omitempty" validate:"omitempty,min=1"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CoverURL    *string    `json:"cover_url,omitempty" validate:"omitempty,url"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// AdminUpdateBook mutates a book's descriptive fields. Stock moves only
// through the stock endpoint.
func AdminUpdateBook(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		bookID, err := bookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateBookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.UpdateBook(r.Context(), bookID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// AdminDeleteBook retires a title. The service refuses while active loans
// reference it.
func AdminDeleteBook(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		bookID, err := bookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBook(r.Context(), bookID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type adjustStockRequest struct {
	Qty int `json:"qty" validate:"min=0"`
}

// AdminAdjustStock sets a book's shelf count to an absolute quantity.
func AdminAdjustStock(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bookID, err := bookIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		book, err := svc.AdjustStock(r.Context(), catalogsvc.AdjustStockInput{
			BookID:      bookID,
			NewQty:      body.Qty,
			ActorUserID: uid,
			ActorRole:   middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

type authorRequest struct {
	Name string  `json:"name" validate:"required"`
	Bio  *string `json:"bio,omitempty"`
}

// AdminCreateAuthor adds an author record.
func AdminCreateAuthor(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body authorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		author, err := svc.CreateAuthor(r.Context(), strings.TrimSpace(body.Name), body.Bio)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, author)
	}
}

// AdminDeleteAuthor removes an author that no book references.
func AdminDeleteAuthor(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := refIDParam(r, "authorId", "author id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteAuthor(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type genreRequest struct {
	Name string `json:"name" validate:"required"`
}

// AdminCreateGenre adds a genre record.
func AdminCreateGenre(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body genreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		genre, err := svc.CreateGenre(r.Context(), strings.TrimSpace(body.Name))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, genre)
	}
}

// AdminDeleteGenre removes a genre that no book references.
func AdminDeleteGenre(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := refIDParam(r, "genreId", "genre id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteGenre(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type publisherRequest struct {
	Name    string  `json:"name" validate:"required"`
	Website *string `json:"website,omitempty" validate:"omitempty,url"`
}

// AdminCreatePublisher adds a publisher record.
func AdminCreatePublisher(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body publisherRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publisher, err := svc.CreatePublisher(r.Context(), strings.TrimSpace(body.Name), body.Website)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, publisher)
	}
}

// AdminDeletePublisher removes a publisher that no book references.
func AdminDeletePublisher(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := refIDParam(r, "publisherId", "publisher id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePublisher(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func (b bookPayloadRequest) toCreateInput() (catalogsvc.CreateBookInput, error) {
	authorIDs, err := parseUUIDList(b.AuthorIDs, "author id")
	if err != nil {
		return catalogsvc.CreateBookInput{}, err
	}
	genreIDs, err := parseUUIDList(b.GenreIDs, "genre id")
	if err != nil {
		return catalogsvc.CreateBookInput{}, err
	}
	publisherID, err := parseOptionalUUID(b.PublisherID, "publisher id")
	if err != nil {
		return catalogsvc.CreateBookInput{}, err
	}

	isActive := true
	if b.IsActive != nil {
		isActive = *b.IsActive
	}

	return catalogsvc.CreateBookInput{
		Title:       strings.TrimSpace(b.Title),
		Subtitle:    b.Subtitle,
		Description: b.Description,
		ISBN:        b.ISBN,
		AuthorIDs:   authorIDs,
		GenreIDs:    genreIDs,
		PublisherID: publisherID,
		PageCount:   b.PageCount,
		PublishedAt: b.PublishedAt,
		CoverURL:    b.CoverURL,
		IsActive:    isActive,
		StockedQty:  b.StockedQty,
	}, nil
}

func (b updateBookRequest) toUpdateInput() (catalogsvc.UpdateBookInput, error) {
	input := catalogsvc.UpdateBookInput{
		Subtitle:    b.Subtitle,
		Description: b.Description,
		ISBN:        b.ISBN,
		PageCount:   b.PageCount,
		PublishedAt: b.PublishedAt,
		CoverURL:    b.CoverURL,
		IsActive:    b.IsActive,
	}
	if b.Title != nil {
		title := strings.TrimSpace(*b.Title)
		if title == "" {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		input.Title = &title
	}
	if b.AuthorIDs != nil {
		ids, err := parseUUIDList(*b.AuthorIDs, "author id")
		if err != nil {
			return input, err
		}
		input.AuthorIDs = &ids
	}
	if b.GenreIDs != nil {
		ids, err := parseUUIDList(*b.GenreIDs, "genre id")
		if err != nil {
			return input, err
		}
		input.GenreIDs = &ids
	}
	publisherID, err := parseOptionalUUID(b.PublisherID, "publisher id")
	if err != nil {
		return input, err
	}
	input.PublisherID = publisherID
	return input, nil
}

func parseUUIDList(values []string, label string) ([]uuid.UUID, error) {
	result := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		parsed, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
		}
		result = append(result, parsed)
	}
	return result, nil
}

func parseOptionalUUID(value *string, label string) (*uuid.UUID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := uuid.Parse(strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return &parsed, nil
}

func refIDParam(r *http.Request, param, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
