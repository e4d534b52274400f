package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diegocastellanos/booklend-backend/api/controllers"
	"github.com/diegocastellanos/booklend-backend/api/middleware"
	"github.com/diegocastellanos/booklend-backend/internal/auth"
	catalogsvc "github.com/diegocastellanos/booklend-backend/internal/catalog"
	loansvc "github.com/diegocastellanos/booklend-backend/internal/loans"
	userssvc "github.com/diegocastellanos/booklend-backend/internal/users"
	"github.com/diegocastellanos/booklend-backend/pkg/auth/session"
	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/db"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
	"github.com/diegocastellanos/booklend-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles everything the router hands to controllers.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	AdminRegister auth.AdminRegisterService
	Users         userssvc.Service
	Catalog       catalogsvc.Service
	Loans         loansvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
	})

	if !cfg.App.IsProd() {
		r.Route("/api/admin/v1/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AdminAuthRegister(svcs.AdminRegister, logg))
		})
	}

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/books", controllers.CatalogListBooks(svcs.Catalog, logg))
		r.Get("/books/{bookId}", controllers.CatalogGetBook(svcs.Catalog, logg))
		r.Get("/authors", controllers.CatalogListAuthors(svcs.Catalog, logg))
		r.Get("/genres", controllers.CatalogListGenres(svcs.Catalog, logg))
		r.Get("/publishers", controllers.CatalogListPublishers(svcs.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/me", func(r chi.Router) {
			r.Get("/", controllers.GetMe(svcs.Users, logg))
			r.Put("/", controllers.UpdateMe(svcs.Users, logg))
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", controllers.CreateLoan(svcs.Loans, logg))
			r.Get("/", controllers.ListMyLoans(svcs.Loans, logg))
			r.Get("/{loanId}", controllers.GetLoan(svcs.Loans, logg))
			r.Post("/{loanId}/return", controllers.ReturnLoan(svcs.Loans, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.RequireRole("administrator", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/books", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateBook(svcs.Catalog, logg))
			r.Patch("/{bookId}", controllers.AdminUpdateBook(svcs.Catalog, logg))
			r.Delete("/{bookId}", controllers.AdminDeleteBook(svcs.Catalog, logg))
			r.Put("/{bookId}/stock", controllers.AdminAdjustStock(svcs.Catalog, logg))
		})
		r.Route("/authors", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateAuthor(svcs.Catalog, logg))
			r.Delete("/{authorId}", controllers.AdminDeleteAuthor(svcs.Catalog, logg))
		})
		r.Route("/genres", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateGenre(svcs.Catalog, logg))
			r.Delete("/{genreId}", controllers.AdminDeleteGenre(svcs.Catalog, logg))
		})
		r.Route("/publishers", func(r chi.Router) {
			r.Post("/", controllers.AdminCreatePublisher(svcs.Catalog, logg))
			r.Delete("/{publisherId}", controllers.AdminDeletePublisher(svcs.Catalog, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(svcs.Users, logg))
			r.Patch("/{userId}/role", controllers.AdminChangeUserRole(svcs.Users, logg))
		})

		r.Route("/loans", func(r chi.Router) {
			r.Get("/", controllers.AdminListLoans(svcs.Loans, logg))
			r.Post("/{loanId}/decision", controllers.AdminLoanDecision(svcs.Loans, logg))
			r.Delete("/{loanId}", controllers.AdminPurgeLoan(svcs.Loans, logg))
		})
	})

	return r
}
