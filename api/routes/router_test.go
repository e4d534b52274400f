package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/diegocastellanos/booklend-backend/internal/auth"
	catalogsvc "github.com/diegocastellanos/booklend-backend/internal/catalog"
	loansvc "github.com/diegocastellanos/booklend-backend/internal/loans"
	userssvc "github.com/diegocastellanos/booklend-backend/internal/users"
	pkgAuth "github.com/diegocastellanos/booklend-backend/pkg/auth"
	"github.com/diegocastellanos/booklend-backend/pkg/auth/session"
	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/diegocastellanos/booklend-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*userssvc.UserDTO, error) {
	return &userssvc.UserDTO{ID: uuid.New(), Email: req.Email}, nil
}

type stubAdminRegisterService struct{}

func (stubAdminRegisterService) Register(ctx context.Context, req auth.AdminRegisterRequest) (*userssvc.UserDTO, error) {
	return &userssvc.UserDTO{ID: uuid.New(), Email: req.Email, Role: enums.UserRoleAdmin}, nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) Profile(ctx context.Context, userID uuid.UUID) (*userssvc.UserDTO, error) {
	return &userssvc.UserDTO{ID: userID}, nil
}

func (stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, input userssvc.UpdateProfileInput) (*userssvc.UserDTO, error) {
	return &userssvc.UserDTO{ID: userID}, nil
}

func (stubUsersService) List(ctx context.Context, input userssvc.ListUsersInput) (*userssvc.UserList, error) {
	return &userssvc.UserList{Users: []userssvc.UserDTO{}}, nil
}

func (stubUsersService) ChangeRole(ctx context.Context, input userssvc.ChangeRoleInput) (*userssvc.UserDTO, error) {
	return &userssvc.UserDTO{ID: input.UserID, Role: input.Role}, nil
}

type stubCatalogService struct{}

func (stubCatalogService) CreateBook(ctx context.Context, input catalogsvc.CreateBookInput) (*catalogsvc.BookDTO, error) {
	return &catalogsvc.BookDTO{ID: uuid.New(), Title: input.Title}, nil
}

func (stubCatalogService) UpdateBook(ctx context.Context, bookID uuid.UUID, input catalogsvc.UpdateBookInput) (*catalogsvc.BookDTO, error) {
	return &catalogsvc.BookDTO{ID: bookID}, nil
}

func (stubCatalogService) DeleteBook(ctx context.Context, bookID uuid.UUID) error {
	return nil
}

func (stubCatalogService) GetBook(ctx context.Context, bookID uuid.UUID) (*catalogsvc.BookDTO, error) {
	return &catalogsvc.BookDTO{ID: bookID, IsActive: true}, nil
}

func (stubCatalogService) ListBooks(ctx context.Context, input catalogsvc.ListBooksInput) (*catalogsvc.BookListResult, error) {
	return &catalogsvc.BookListResult{Books: []catalogsvc.BookSummary{}}, nil
}

func (stubCatalogService) AdjustStock(ctx context.Context, input catalogsvc.AdjustStockInput) (*catalogsvc.BookDTO, error) {
	return &catalogsvc.BookDTO{ID: input.BookID}, nil
}

func (stubCatalogService) CreateAuthor(ctx context.Context, name string, bio *string) (*models.Author, error) {
	return &models.Author{ID: uuid.New(), Name: name}, nil
}

func (stubCatalogService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return []models.Author{}, nil
}

func (stubCatalogService) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubCatalogService) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	return &models.Genre{ID: uuid.New(), Name: name}, nil
}

func (stubCatalogService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return []models.Genre{}, nil
}

func (stubCatalogService) DeleteGenre(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (stubCatalogService) CreatePublisher(ctx context.Context, name string, website *string) (*models.Publisher, error) {
	return &models.Publisher{ID: uuid.New(), Name: name}, nil
}

func (stubCatalogService) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	return []models.Publisher{}, nil
}

func (stubCatalogService) DeletePublisher(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubLoansService struct{}

func (stubLoansService) Request(ctx context.Context, input loansvc.RequestInput) (*models.Loan, error) {
	return &models.Loan{ID: uuid.New(), UserID: input.RequesterID, BookID: input.BookID}, nil
}

func (stubLoansService) Decision(ctx context.Context, input loansvc.DecisionInput) error {
	return nil
}

func (stubLoansService) Return(ctx context.Context, input loansvc.ReturnInput) error {
	return nil
}

func (stubLoansService) Purge(ctx context.Context, input loansvc.PurgeInput) error {
	return nil
}

func (stubLoansService) ListForRequester(ctx context.Context, userID uuid.UUID, params pagination.Params, filters loansvc.LoanFilters) (*loansvc.LoanList, error) {
	return &loansvc.LoanList{Loans: []loansvc.LoanSummary{}}, nil
}

func (stubLoansService) ListAdmin(ctx context.Context, params pagination.Params, filters loansvc.LoanFilters) (*loansvc.LoanList, error) {
	return &loansvc.LoanList{Loans: []loansvc.LoanSummary{}}, nil
}

func (stubLoansService) FindByID(ctx context.Context, input loansvc.FindInput) (*models.Loan, error) {
	return &models.Loan{ID: input.LoanID, UserID: input.ActorUserID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSessionManager{},
		Services{
			Auth:          stubAuthService{},
			Register:      stubRegisterService{},
			AdminRegister: stubAdminRegisterService{},
			Users:         stubUsersService{},
			Catalog:       stubCatalogService{},
			Loans:         stubLoansService{},
		},
	)
}

// get drives a GET through the full middleware chain, attaching a bearer
// token for the given role when one is supplied.
func get(t *testing.T, router http.Handler, cfg *config.Config, path string, role enums.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, role))
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRouteGuards(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	tests := []struct {
		name string
		path string
		role enums.UserRole
		want int
	}{
		{"private ping without token", "/api/v1/ping", "", http.StatusUnauthorized},
		{"private ping with token", "/api/v1/ping", enums.UserRoleStudent, http.StatusOK},
		{"admin ping as student", "/api/admin/v1/ping", enums.UserRoleStudent, http.StatusForbidden},
		{"admin ping as administrator", "/api/admin/v1/ping", enums.UserRoleAdmin, http.StatusOK},
		{"admin loans as teacher", "/api/admin/v1/loans", enums.UserRoleTeacher, http.StatusForbidden},
		{"admin loans as administrator", "/api/admin/v1/loans", enums.UserRoleAdmin, http.StatusOK},
		{"loan list without token", "/api/v1/loans", "", http.StatusUnauthorized},
		{"loan list with token", "/api/v1/loans", enums.UserRoleStudent, http.StatusOK},
		{"profile without token", "/api/v1/me", "", http.StatusUnauthorized},
		{"profile with token", "/api/v1/me", enums.UserRoleStaff, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := get(t, router, cfg, tt.path, tt.role); resp.Code != tt.want {
				t.Fatalf("GET %s as %q: status %d, want %d", tt.path, tt.role, resp.Code, tt.want)
			}
		})
	}
}

func TestCatalogRoutesArePublic(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	for _, path := range []string{
		"/api/v1/catalog/books",
		"/api/v1/catalog/books/" + uuid.NewString(),
		"/api/v1/catalog/authors",
		"/api/v1/catalog/genres",
		"/api/v1/catalog/publishers",
	} {
		if resp := get(t, router, cfg, path, ""); resp.Code != http.StatusOK {
			t.Fatalf("GET %s without token: status %d, want 200", path, resp.Code)
		}
	}
}

func TestAdminBootstrapHiddenInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = "prod"
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code == http.StatusCreated {
		t.Fatalf("expected bootstrap route to be unmounted in prod, got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestHealthLiveReportsEnv(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	resp := get(t, router, cfg, "/health/live", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("liveness status %d, want 200", resp.Code)
	}
	if got := resp.Header().Get("X-Booklend-Env"); got != "test" {
		t.Fatalf("env header %q, want test", got)
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "member@example.com",
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
