package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/internal/users"
	"github.com/diegocastellanos/booklend-backend/pkg/config"
	pkgmodels "github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/outbox"
	"github.com/diegocastellanos/booklend-backend/pkg/types"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := &pkgmodels.User{
		ID:           uuid.New(),
		Email:        dto.Email,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PasswordHash: dto.PasswordHash,
		Role:         dto.Role,
		Contact:      types.ContactInfo{Phone: dto.Phone},
		BirthDate:    dto.BirthDate,
		IsActive:     true,
	}
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

type stubRegisterOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubRegisterOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type registerTestSetup struct {
	service  RegisterService
	userRepo *stubUserRepository
	outbox   *stubRegisterOutbox
}

func newRegisterTestSetup(t *testing.T) *registerTestSetup {
	t.Helper()
	userRepo := newStubUserRepository()
	emitter := &stubRegisterOutbox{}
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		Outbox:         emitter,
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return &registerTestSetup{
		service:  svc,
		userRepo: userRepo,
		outbox:   emitter,
	}
}

func sampleRegisterRequest(email string) RegisterRequest {
	phone := "555-0133"
	return RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Email:     email,
		Password:  "Secret123!",
		Phone:     &phone,
	}
}

func TestRegisterCreatesStudentAccount(t *testing.T) {
	setup := newRegisterTestSetup(t)

	dto, err := setup.service.Register(context.Background(), sampleRegisterRequest("new@example.edu"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if setup.userRepo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if setup.userRepo.created.Role != enums.UserRoleStudent {
		t.Fatalf("expected student role, got %s", setup.userRepo.created.Role)
	}
	if dto.Phone == nil || *dto.Phone != "555-0133" {
		t.Fatalf("expected phone on created user")
	}
	if len(setup.outbox.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(setup.outbox.events))
	}
	if setup.outbox.events[0].EventType != enums.EventUserRegistered {
		t.Fatalf("unexpected event type %s", setup.outbox.events[0].EventType)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	setup := newRegisterTestSetup(t)

	req := sampleRegisterRequest("  Mixed.Case@Example.EDU ")
	if _, err := setup.service.Register(context.Background(), req); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if setup.userRepo.created.Email != "mixed.case@example.edu" {
		t.Fatalf("expected lowercased email, got %s", setup.userRepo.created.Email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setup := newRegisterTestSetup(t)
	setup.userRepo.data["taken@example.edu"] = &pkgmodels.User{ID: uuid.New(), Email: "taken@example.edu"}

	_, err := setup.service.Register(context.Background(), sampleRegisterRequest("taken@example.edu"))
	if err == nil {
		t.Fatalf("expected conflict for duplicate email")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(setup.outbox.events) != 0 {
		t.Fatalf("expected no events on conflict")
	}
}

func TestRegisterRequiresNames(t *testing.T) {
	setup := newRegisterTestSetup(t)

	req := sampleRegisterRequest("new@example.edu")
	req.FirstName = "   "
	_, err := setup.service.Register(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminRegisterCreatesAdministrator(t *testing.T) {
	userRepo := newStubUserRepository()
	svc, err := NewAdminRegisterService(AdminRegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new admin register service: %v", err)
	}

	dto, err := svc.Register(context.Background(), AdminRegisterRequest{
		FirstName: "Root",
		LastName:  "Admin",
		Email:     "admin@example.edu",
		Password:  "Secret123!",
	})
	if err != nil {
		t.Fatalf("admin register failed: %v", err)
	}
	if dto.Role != enums.UserRoleAdmin {
		t.Fatalf("expected administrator role, got %s", dto.Role)
	}
}
