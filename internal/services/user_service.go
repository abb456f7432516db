// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type UserService struct {
	store     repository.Store
	validator *utils.ObjectValidator
}

type CreateUserRequest struct {
	Username  string          `json:"username" validate:"required,username"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,strong_password"`
	Role      models.UserRole `json:"role"`
	FirstName string          `json:"first_name" validate:"max=100"`
	LastName  string          `json:"last_name" validate:"max=100"`
	Phone     string          `json:"phone" validate:"omitempty,e164"`
}

func (r *CreateUserRequest) Constraints() []utils.Violation {
	if r.Role != "" && !validRole(r.Role) {
		return []utils.Violation{{Field: "role", Tag: "oneof", Message: "role must be one of: APPLICANT AGENT ADMIN"}}
	}
	return nil
}

// UpdateUserRequest is a partial update: nil fields are left unchanged.
type UpdateUserRequest struct {
	Username  *string          `json:"username,omitempty" validate:"omitempty,username"`
	Email     *string          `json:"email,omitempty" validate:"omitempty,email"`
	Password  *string          `json:"password,omitempty" validate:"omitempty,strong_password"`
	Role      *models.UserRole `json:"role,omitempty"`
	FirstName *string          `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string          `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone     *string          `json:"phone,omitempty" validate:"omitempty,e164"`
}

func (r *UpdateUserRequest) Constraints() []utils.Violation {
	if r.Role != nil && !validRole(*r.Role) {
		return []utils.Violation{{Field: "role", Tag: "oneof", Message: "role must be one of: APPLICANT AGENT ADMIN"}}
	}
	return nil
}

func validRole(role models.UserRole) bool {
	switch role {
	case models.UserRoleApplicant, models.UserRoleAgent, models.UserRoleAdmin:
		return true
	}
	return false
}

func NewUserService(store repository.Store, validator *utils.ObjectValidator) *UserService {
	return &UserService{
		store:     store,
		validator: validator,
	}
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.ensureAvailable(ctx, s.store, username, email); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Role:      req.Role,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
	}
	if user.Role == "" {
		user.Role = models.UserRoleApplicant
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *UserService) ensureAvailable(ctx context.Context, store repository.Store, username, email string) error {
	if username != "" {
		taken, err := store.Users().ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if taken {
			return ErrUserExists
		}
	}
	if email != "" {
		taken, err := store.Users().ExistsByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if taken {
			return ErrUserExists
		}
	}
	return nil
}

// FindByID reports found=false when no user has the id.
func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, bool, error) {
	return optionalUser(s.store.Users().FindByID(ctx, id))
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	return optionalUser(s.store.Users().FindByUsername(ctx, username))
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	return optionalUser(s.store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email))))
}

func optionalUser(user *models.User, err error) (*models.User, bool, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("database error: %w", err)
	}
	return user, true, nil
}

func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) DeleteUserByID(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return fmt.Errorf("user %s: %w", id, err)
	}
	return nil
}

// UpdateUser applies a partial update in one transaction, re-checking
// username and email uniqueness when they change.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, req *UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.Users().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}

		var newUsername, newEmail string
		if req.Username != nil {
			if username := strings.TrimSpace(*req.Username); username != user.Username {
				newUsername = username
			}
		}
		if req.Email != nil {
			if email := strings.ToLower(strings.TrimSpace(*req.Email)); email != user.Email {
				newEmail = email
			}
		}
		if err := s.ensureAvailable(ctx, tx, newUsername, newEmail); err != nil {
			return err
		}

		if newUsername != "" {
			user.Username = newUsername
		}
		if newEmail != "" {
			user.Email = newEmail
		}
		if req.Password != nil {
			if err := user.SetPassword(*req.Password); err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
		}

		if err := tx.Users().Save(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.store.Users().ExistsByUsername(ctx, strings.TrimSpace(username))
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.store.Users().ExistsByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) Save(ctx context.Context, user *models.User) error {
	if err := s.store.Users().Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
