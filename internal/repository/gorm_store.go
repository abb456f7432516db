package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/javajoker/registration-backend/internal/database"
)

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Applications() ApplicationRepository {
	return &gormApplicationRepository{db: s.db}
}

func (s *GormStore) Documents() DocumentRepository {
	return &gormDocumentRepository{db: s.db}
}

func (s *GormStore) Notifications() NotificationRepository {
	return &gormNotificationRepository{db: s.db}
}

func (s *GormStore) Users() UserRepository {
	return &gormUserRepository{db: s.db}
}

func (s *GormStore) Reviews() ReviewRepository {
	return &gormReviewRepository{db: s.db}
}

func (s *GormStore) Audit() AuditRepository {
	return &gormAuditRepository{db: s.db}
}

// WithTx joins the surrounding transaction when called on a transactional store.
func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
