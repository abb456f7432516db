package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
)

type reviewRepo struct {
	s *Store
}

func (r *reviewRepo) Create(_ context.Context, assignment *models.ReviewAssignment) error {
	r.s.lock()
	defer r.s.unlock()

	r.s.stamp(&assignment.BaseModel)
	r.s.data.reviews = append(r.s.data.reviews, *assignment)
	return nil
}

func (r *reviewRepo) FindOpenByApplication(_ context.Context, applicationID uuid.UUID) (*models.ReviewAssignment, error) {
	r.s.lock()
	defer r.s.unlock()

	for i := len(r.s.data.reviews) - 1; i >= 0; i-- {
		a := r.s.data.reviews[i]
		if a.ApplicationID == applicationID && a.Status == models.ReviewAssignmentOpen {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *reviewRepo) Update(_ context.Context, assignment *models.ReviewAssignment) error {
	r.s.lock()
	defer r.s.unlock()

	for i := range r.s.data.reviews {
		if r.s.data.reviews[i].ID == assignment.ID {
			assignment.CreatedAt = r.s.data.reviews[i].CreatedAt
			assignment.UpdatedAt = r.s.now()
			r.s.data.reviews[i] = *assignment
			return nil
		}
	}
	return repository.ErrNotFound
}

type auditRepo struct {
	s *Store
}

func (r *auditRepo) Create(_ context.Context, log *models.AuditLog) error {
	r.s.lock()
	defer r.s.unlock()

	r.s.stamp(&log.BaseModel)
	r.s.data.audit = append(r.s.data.audit, cloneAudit(*log))
	return nil
}

func (r *auditRepo) ListByResource(_ context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	r.s.lock()
	defer r.s.unlock()

	logs := []models.AuditLog{}
	for _, l := range r.s.data.audit {
		if l.ResourceType == resourceType && l.ResourceID != nil && *l.ResourceID == resourceID {
			logs = append(logs, cloneAudit(l))
		}
	}
	return logs, nil
}
