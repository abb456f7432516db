package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/utils"
)

var applicationSortFields = []string{"created_at", "updated_at", "status", "reference_number", "last_name"}

type gormApplicationRepository struct {
	db *gorm.DB
}

func (r *gormApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(application).Error; err != nil {
		return fmt.Errorf("create application: %w", translateError(err))
	}
	return nil
}

func (r *gormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var application models.Application
	err := r.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&application, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &application, nil
}

func (r *gormApplicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Application{})

	if filter.ApplicantID != nil {
		query = query.Where("applicant_id = ?", *filter.ApplicantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Program != "" {
		query = query.Where("program = ?", filter.Program)
	}
	if search := filter.Pagination.Search; search != "" {
		like := "%" + search + "%"
		query = query.Where("reference_number ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	var applications []models.Application
	query = utils.ApplySort(query, filter.Pagination, applicationSortFields)
	query = utils.ApplyPagination(query, filter.Pagination)
	if err := query.Find(&applications).Error; err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	return applications, total, nil
}

func (r *gormApplicationRepository) Update(ctx context.Context, application *models.Application) error {
	result := r.db.WithContext(ctx).
		Omit("status", "created_at", clause.Associations).
		Save(application)
	if result.Error != nil {
		return fmt.Errorf("update application: %w", translateError(result.Error))
	}
	return nil
}

func (r *gormApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.ApplicationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("update application status: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *gormApplicationRepository) CountByStatus(ctx context.Context) (map[models.ApplicationStatus]int64, error) {
	var rows []struct {
		Status models.ApplicationStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count applications by status: %w", err)
	}

	counts := make(map[models.ApplicationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *gormApplicationRepository) FindStale(ctx context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error) {
	var applications []models.Application
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, before).
		Order("updated_at ASC").
		Find(&applications).Error
	if err != nil {
		return nil, fmt.Errorf("find stale applications: %w", err)
	}
	return applications, nil
}
