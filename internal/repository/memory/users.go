package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) index(match func(models.User) bool) int {
	for i := range r.s.data.users {
		if match(r.s.data.users[i]) {
			return i
		}
	}
	return -1
}

// clashes reports whether another user already holds the username or email.
func (r *userRepo) clashes(user *models.User) bool {
	return r.index(func(u models.User) bool {
		return u.ID != user.ID &&
			(u.Username == user.Username || strings.EqualFold(u.Email, user.Email))
	}) >= 0
}

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.lock()
	defer r.s.unlock()

	if r.clashes(user) {
		return repository.ErrDuplicate
	}
	if user.Role == "" {
		user.Role = models.UserRoleApplicant
	}
	r.s.stamp(&user.BaseModel)
	r.s.data.users = append(r.s.data.users, cloneUser(*user))
	return nil
}

func (r *userRepo) Save(_ context.Context, user *models.User) error {
	r.s.lock()
	defer r.s.unlock()

	if r.clashes(user) {
		return repository.ErrDuplicate
	}

	i := r.index(func(u models.User) bool { return u.ID == user.ID })
	if i < 0 {
		r.s.stamp(&user.BaseModel)
		r.s.data.users = append(r.s.data.users, cloneUser(*user))
		return nil
	}

	user.CreatedAt = r.s.data.users[i].CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.data.users[i] = cloneUser(*user)
	return nil
}

func (r *userRepo) find(match func(models.User) bool) (*models.User, error) {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(match)
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	user := cloneUser(r.s.data.users[i])
	return &user, nil
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) List(_ context.Context) ([]models.User, error) {
	r.s.lock()
	defer r.s.unlock()

	users := make([]models.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

func (r *userRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()

	i := r.index(func(u models.User) bool { return u.ID == id })
	if i < 0 {
		return repository.ErrNotFound
	}
	r.s.data.users = append(r.s.data.users[:i:i], r.s.data.users[i+1:]...)
	return nil
}

func (r *userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}
