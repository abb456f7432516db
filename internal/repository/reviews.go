package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/registration-backend/internal/models"
)

type gormReviewRepository struct {
	db *gorm.DB
}

func (r *gormReviewRepository) Create(ctx context.Context, assignment *models.ReviewAssignment) error {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return fmt.Errorf("create review assignment: %w", translateError(err))
	}
	return nil
}

func (r *gormReviewRepository) FindOpenByApplication(ctx context.Context, applicationID uuid.UUID) (*models.ReviewAssignment, error) {
	var assignment models.ReviewAssignment
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND status = ?", applicationID, models.ReviewAssignmentOpen).
		Order("created_at DESC").
		First(&assignment).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &assignment, nil
}

func (r *gormReviewRepository) Update(ctx context.Context, assignment *models.ReviewAssignment) error {
	if err := r.db.WithContext(ctx).Omit("created_at").Save(assignment).Error; err != nil {
		return fmt.Errorf("update review assignment: %w", translateError(err))
	}
	return nil
}

type gormAuditRepository struct {
	db *gorm.DB
}

func (r *gormAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *gormAuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
