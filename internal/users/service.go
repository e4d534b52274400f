package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diegocastellanos/booklend-backend/pkg/db/models"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
	"github.com/diegocastellanos/booklend-backend/pkg/types"
)

type userRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string, contact types.ContactInfo, birthDate *time.Time) error
	UpdateRole(ctx context.Context, id uuid.UUID, role string) error
	ListUsers(ctx context.Context, filters UserListFilters, page pagination.Params) ([]models.User, string, error)
}

// Service exposes profile and administration operations over users.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	List(ctx context.Context, input ListUsersInput) (*UserList, error)
	ChangeRole(ctx context.Context, input ChangeRoleInput) (*UserDTO, error)
}

type service struct {
	repo userRepo
}

// ListUsersInput carries admin listing parameters.
type ListUsersInput struct {
	ActorRole  enums.UserRole
	Filters    UserListFilters
	Pagination pagination.Params
}

// ChangeRoleInput carries an administrator's role assignment.
type ChangeRoleInput struct {
	UserID      uuid.UUID
	Role        enums.UserRole
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// NewService builds a users service on top of the repository.
func NewService(repo userRepo) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	firstName := user.FirstName
	if input.FirstName != nil {
		firstName = *input.FirstName
	}
	lastName := user.LastName
	if input.LastName != nil {
		lastName = *input.LastName
	}
	if firstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name cannot be empty")
	}

	contact := user.Contact
	if input.Phone != nil {
		contact.Phone = input.Phone
	}
	if input.Address != nil {
		contact.Address = input.Address
	}
	if input.City != nil {
		contact.City = input.City
	}

	birthDate := user.BirthDate
	if input.BirthDate != nil {
		birthDate = input.BirthDate
	}

	if err := s.repo.UpdateProfile(ctx, userID, firstName, lastName, contact, birthDate); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.Contact = contact
	user.BirthDate = birthDate
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, input ListUsersInput) (*UserList, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}

	rows, nextCursor, err := s.repo.ListUsers(ctx, input.Filters, input.Pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	dtos := make([]UserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &UserList{Users: dtos, NextCursor: nextCursor}, nil
}

func (s *service) ChangeRole(ctx context.Context, input ChangeRoleInput) (*UserDTO, error) {
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown role")
	}
	if input.UserID == input.ActorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "administrators cannot change their own role")
	}

	if err := s.repo.UpdateRole(ctx, input.UserID, input.Role.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}

	user, err := s.repo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload user")
	}
	return FromModel(user), nil
}
