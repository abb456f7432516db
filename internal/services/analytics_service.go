package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/metrics"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
)

const statsCacheKey = "analytics:realtime"

type AnalyticsService struct {
	store  repository.Store
	cache  *redis.Client
	config *config.Config
	now    func() time.Time
}

type RealTimeStatistics struct {
	StatusCounts                map[models.ApplicationStatus]int64 `json:"status_counts"`
	TotalApplications           int64                              `json:"total_applications"`
	DocumentsAwaitingValidation int64                              `json:"documents_awaiting_validation"`
	CopiesDetected              int64                              `json:"copies_detected"`
	GeneratedAt                 time.Time                          `json:"generated_at"`
}

// ApplicationStatusResponse describes an application that has stayed in one
// status for longer than its alert threshold.
type ApplicationStatusResponse struct {
	ApplicationID   uuid.UUID                `json:"application_id"`
	ReferenceNumber string                   `json:"reference_number"`
	ApplicantID     uuid.UUID                `json:"applicant_id"`
	ApplicantName   string                   `json:"applicant_name"`
	Phone           string                   `json:"-"`
	Status          models.ApplicationStatus `json:"status"`
	Since           time.Time                `json:"since"`
	Age             time.Duration            `json:"-"`
	AgeHours        int64                    `json:"age_hours"`
	Reason          string                   `json:"reason"`
}

// NewAnalyticsService accepts a nil cache; statistics are then computed on
// every call.
func NewAnalyticsService(store repository.Store, cache *redis.Client, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		cache:  cache,
		config: cfg,
		now:    time.Now,
	}
}

func (s *AnalyticsService) GetRealTimeStatistics(ctx context.Context) (*RealTimeStatistics, error) {
	if stats, ok := s.cached(ctx); ok {
		metrics.StatsCacheTotal.WithLabelValues("hit").Inc()
		return stats, nil
	}
	metrics.StatsCacheTotal.WithLabelValues("miss").Inc()

	counts, err := s.store.Applications().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}

	stats := &RealTimeStatistics{
		StatusCounts: make(map[models.ApplicationStatus]int64, len(models.AllApplicationStatuses)),
		GeneratedAt:  s.now().UTC(),
	}
	for _, status := range models.AllApplicationStatuses {
		stats.StatusCounts[status] = counts[status]
		stats.TotalApplications += counts[status]
	}

	stats.DocumentsAwaitingValidation, err = s.store.Documents().CountByValidationStatus(ctx, models.DocumentValidationPending)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending documents: %w", err)
	}

	stats.CopiesDetected, err = s.store.Documents().CountCopies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count copied documents: %w", err)
	}

	s.storeCache(ctx, stats)
	return stats, nil
}

func (s *AnalyticsService) cached(ctx context.Context) (*RealTimeStatistics, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("Statistics cache read failed")
		}
		return nil, false
	}

	var stats RealTimeStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		logrus.WithError(err).Warn("Discarding unreadable statistics cache entry")
		return nil, false
	}
	return &stats, true
}

func (s *AnalyticsService) storeCache(ctx context.Context, stats *RealTimeStatistics) {
	if s.cache == nil || s.config.Workflow.StatsCacheTTL <= 0 {
		return
	}

	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, raw, s.config.Workflow.StatsCacheTTL).Err(); err != nil {
		logrus.WithError(err).Warn("Statistics cache write failed")
	}
}

// Invalidate drops the cached statistics after a workflow change.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		logrus.WithError(err).Warn("Statistics cache invalidation failed")
	}
}

// GetAlerts lists applications stuck beyond their status threshold, oldest first.
func (s *AnalyticsService) GetAlerts(ctx context.Context) ([]ApplicationStatusResponse, error) {
	thresholds := []struct {
		status models.ApplicationStatus
		after  time.Duration
	}{
		{models.ApplicationStatusPending, s.config.Workflow.PendingAlertAfter},
		{models.ApplicationStatusChangesRequested, s.config.Workflow.ChangesAlertAfter},
		{models.ApplicationStatusManualReview, s.config.Workflow.ReviewAlertAfter},
		{models.ApplicationStatusUnderReview, s.config.Workflow.UnderReviewAlertAfter},
	}

	now := s.now()
	lang := s.config.I18n.DefaultLocale
	alerts := []ApplicationStatusResponse{}

	for _, threshold := range thresholds {
		if threshold.after <= 0 {
			continue
		}

		stale, err := s.store.Applications().FindStale(ctx, threshold.status, now.Add(-threshold.after))
		if err != nil {
			return nil, fmt.Errorf("failed to find stale %s applications: %w", threshold.status, err)
		}

		for _, application := range stale {
			age := now.Sub(application.UpdatedAt)
			alerts = append(alerts, ApplicationStatusResponse{
				ApplicationID:   application.ID,
				ReferenceNumber: application.ReferenceNumber,
				ApplicantID:     application.ApplicantID,
				ApplicantName:   applicantName(application),
				Phone:           application.Phone,
				Status:          application.Status,
				Since:           application.UpdatedAt,
				Age:             age,
				AgeHours:        int64(age / time.Hour),
				Reason:          i18n.T(lang, i18n.KeyAlertStale, humanizeStatus(threshold.status), formatThreshold(threshold.after)),
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Since.Before(alerts[j].Since)
	})
	return alerts, nil
}

func applicantName(application models.Application) string {
	switch {
	case application.FirstName == "":
		return application.LastName
	case application.LastName == "":
		return application.FirstName
	default:
		return application.FirstName + " " + application.LastName
	}
}

func formatThreshold(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	return d.String()
}
