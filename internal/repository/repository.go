// Package repository defines the persistence ports used by the services and
// their gorm implementation.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/utils"
)

// Sentinel errors. Implementations return these (optionally wrapped) so
// services can translate them.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrConflict  = errors.New("record was modified concurrently")
)

// ApplicationFilter narrows application listings. Zero values mean no filter.
type ApplicationFilter struct {
	ApplicantID *uuid.UUID
	Status      models.ApplicationStatus
	Program     string
	Pagination  utils.PaginationParams
}

type ApplicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	// FindByID loads the application with its documents.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error)
	// Update persists every column except status.
	Update(ctx context.Context, application *models.Application) error
	// UpdateStatus moves the application from one status to another and
	// returns ErrConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus) error
	CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error)
	// FindStale returns applications in status not updated since before.
	FindStale(ctx context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error)
	List(ctx context.Context, params utils.PaginationParams) ([]models.Document, int64, error)
	Update(ctx context.Context, document *models.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindByContentHash returns documents with the given hash that belong to
	// other applications than excludeApplicationID.
	FindByContentHash(ctx context.Context, hash string, excludeApplicationID uuid.UUID) ([]models.Document, error)
	CountByValidationStatus(ctx context.Context, status models.DocumentValidationStatus) (int64, error)
	CountCopies(ctx context.Context) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, readAt time.Time) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, assignment *models.ReviewAssignment) error
	FindOpenByApplication(ctx context.Context, applicationID uuid.UUID) (*models.ReviewAssignment, error)
	Update(ctx context.Context, assignment *models.ReviewAssignment) error
}

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error)
}

// Store groups the repositories and opens transaction boundaries. The Store
// passed to fn is bound to the transaction; returning an error rolls back.
type Store interface {
	Applications() ApplicationRepository
	Documents() DocumentRepository
	Notifications() NotificationRepository
	Users() UserRepository
	Reviews() ReviewRepository
	Audit() AuditRepository
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
