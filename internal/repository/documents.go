package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/utils"
)

var documentSortFields = []string{"created_at", "type", "validation_status", "size"}

type gormDocumentRepository struct {
	db *gorm.DB
}

func (r *gormDocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if err := r.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("create document: %w", translateError(err))
	}
	return nil
}

func (r *gormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var document models.Document
	if err := r.db.WithContext(ctx).First(&document, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &document, nil
}

func (r *gormDocumentRepository) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error) {
	var documents []models.Document
	err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("list application documents: %w", err)
	}
	return documents, nil
}

func (r *gormDocumentRepository) List(ctx context.Context, params utils.PaginationParams) ([]models.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Document{})
	if params.Search != "" {
		query = query.Where("file_name ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	var documents []models.Document
	query = utils.ApplySort(query, params, documentSortFields)
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&documents).Error; err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return documents, total, nil
}

func (r *gormDocumentRepository) Update(ctx context.Context, document *models.Document) error {
	if err := r.db.WithContext(ctx).Omit("created_at").Save(document).Error; err != nil {
		return fmt.Errorf("update document: %w", translateError(err))
	}
	return nil
}

func (r *gormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormDocumentRepository) FindByContentHash(ctx context.Context, hash string, excludeApplicationID uuid.UUID) ([]models.Document, error) {
	var documents []models.Document
	err := r.db.WithContext(ctx).
		Where("content_hash = ? AND application_id <> ?", hash, excludeApplicationID).
		Order("created_at ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("find documents by hash: %w", err)
	}
	return documents, nil
}

func (r *gormDocumentRepository) CountByValidationStatus(ctx context.Context, status models.DocumentValidationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("validation_status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count documents by validation status: %w", err)
	}
	return count, nil
}

func (r *gormDocumentRepository) CountCopies(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("copy_detected = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count copied documents: %w", err)
	}
	return count, nil
}
