// internal/services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/metrics"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type NotificationService struct {
	store     repository.Store
	mailer    Mailer
	sms       SMSSender
	templates *TemplateService
	validator *utils.ObjectValidator
	config    *config.Config
	now       func() time.Time
}

type NotificationRequest struct {
	UserID        uuid.UUID               `json:"user_id"`
	ApplicationID *uuid.UUID              `json:"application_id,omitempty"`
	Type          models.NotificationType `json:"type"`
	Title         string                  `json:"title" validate:"required,max=255"`
	Message       string                  `json:"message" validate:"required"`
}

func (r *NotificationRequest) Constraints() []utils.Violation {
	var violations []utils.Violation
	if r.UserID == uuid.Nil {
		violations = append(violations, utils.Violation{Field: "user_id", Tag: "required", Message: "user_id is required"})
	}
	switch r.Type {
	case "", models.NotificationTypeApplicationSubmitted, models.NotificationTypeStatusChanged,
		models.NotificationTypeChangesRequested, models.NotificationTypeDocumentValidated,
		models.NotificationTypeReminder, models.NotificationTypeSystem:
	default:
		violations = append(violations, utils.Violation{Field: "type", Tag: "oneof", Message: "type is not a known notification type"})
	}
	return violations
}

func NewNotificationService(store repository.Store, mailer Mailer, sms SMSSender, templates *TemplateService, validator *utils.ObjectValidator, cfg *config.Config) *NotificationService {
	return &NotificationService{
		store:     store,
		mailer:    mailer,
		sms:       sms,
		templates: templates,
		validator: validator,
		config:    cfg,
		now:       time.Now,
	}
}

// withStore returns a copy bound to tx so in-app notifications share the
// caller's transaction.
func (s *NotificationService) withStore(tx repository.Store) *NotificationService {
	bound := *s
	bound.store = tx
	return &bound
}

func (s *NotificationService) locale() string {
	if s.config.I18n.DefaultLocale == "" {
		return "en"
	}
	return s.config.I18n.DefaultLocale
}

// SendEmailNotification renders templateName with data and delivers it to "to".
func (s *NotificationService) SendEmailNotification(ctx context.Context, to, templateName string, data map[string]interface{}) error {
	subject, body, err := s.templates.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if err := s.mailer.Send(ctx, Email{To: to, Subject: subject, HTML: body}); err != nil {
		metrics.MessagesSentTotal.WithLabelValues("email", "failed").Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"to":       to,
			"template": templateName,
		}).Error("Email delivery failed")
		return utils.NewMessagingError("email", to, err)
	}

	metrics.MessagesSentTotal.WithLabelValues("email", "sent").Inc()
	return nil
}

func (s *NotificationService) SendSmsReminder(ctx context.Context, phone, message string) error {
	if err := s.sms.Send(ctx, phone, message); err != nil {
		metrics.MessagesSentTotal.WithLabelValues("sms", "failed").Inc()
		return utils.NewMessagingError("sms", maskPhone(phone), err)
	}

	metrics.MessagesSentTotal.WithLabelValues("sms", "sent").Inc()
	return nil
}

func (s *NotificationService) SendInAppNotification(ctx context.Context, userID uuid.UUID, notificationType models.NotificationType, title, message string, applicationID *uuid.UUID) (*models.Notification, error) {
	return s.CreateNotification(ctx, &NotificationRequest{
		UserID:        userID,
		ApplicationID: applicationID,
		Type:          notificationType,
		Title:         title,
		Message:       message,
	})
}

func (s *NotificationService) CreateNotification(ctx context.Context, req *NotificationRequest) (*models.Notification, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	notification := &models.Notification{
		UserID:        req.UserID,
		ApplicationID: req.ApplicationID,
		Type:          req.Type,
		Title:         req.Title,
		Message:       req.Message,
	}
	if notification.Type == "" {
		notification.Type = models.NotificationTypeSystem
	}

	if err := s.store.Notifications().Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return notification, nil
}

func (s *NotificationService) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	notifications, err := s.store.Notifications().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// GetNotificationByID reports found=false when the notification does not exist.
func (s *NotificationService) GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, bool, error) {
	notification, err := s.store.Notifications().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get notification: %w", err)
	}
	return notification, true, nil
}

// MarkAsRead marks a notification owned by userID as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	notification, err := s.store.Notifications().FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("notification %s: %w", id, err)
	}
	if notification.UserID != userID {
		return ErrForbidden
	}
	if notification.IsRead {
		return nil
	}

	if err := s.store.Notifications().MarkAsRead(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.store.Notifications().MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return updated, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// NotifyApplicationSubmitted records the in-app confirmation and emails the applicant.
func (s *NotificationService) NotifyApplicationSubmitted(ctx context.Context, application *models.Application) error {
	lang := s.locale()
	_, err := s.SendInAppNotification(ctx, application.ApplicantID,
		models.NotificationTypeApplicationSubmitted,
		i18n.T(lang, i18n.KeyNotifySubmittedTitle),
		i18n.T(lang, i18n.KeyNotifySubmittedMessage, application.ReferenceNumber),
		&application.ID,
	)
	if err != nil {
		return err
	}

	return s.SendEmailNotification(ctx, application.Email, TemplateApplicationSubmitted, s.applicationData(application))
}

// NotifyStatusChange informs the applicant of the application's current
// status. The email is required; the CHANGES_REQUESTED SMS is best effort.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, application *models.Application) error {
	lang := s.locale()
	label := humanizeStatus(application.Status)

	notificationType := models.NotificationTypeStatusChanged
	title := i18n.T(lang, i18n.KeyNotifyStatusChangedTitle)
	template := TemplateStatusChanged

	switch application.Status {
	case models.ApplicationStatusChangesRequested:
		notificationType = models.NotificationTypeChangesRequested
		title = i18n.T(lang, i18n.KeyNotifyChangesRequestedTitle)
		template = TemplateChangesRequested
	case models.ApplicationStatusApproved, models.ApplicationStatusRejected:
		template = TemplateApplicationDecided
	}

	_, err := s.SendInAppNotification(ctx, application.ApplicantID, notificationType, title,
		i18n.T(lang, i18n.KeyNotifyStatusChangedMessage, application.ReferenceNumber, label),
		&application.ID,
	)
	if err != nil {
		return err
	}

	if err := s.SendEmailNotification(ctx, application.Email, template, s.applicationData(application)); err != nil {
		return err
	}

	if application.Status == models.ApplicationStatusChangesRequested && application.Phone != "" {
		message := i18n.T(lang, i18n.KeyNotifyChangesRequestedSMS, application.ReferenceNumber)
		if err := s.SendSmsReminder(ctx, application.Phone, message); err != nil {
			logrus.WithError(err).WithField("application_id", application.ID).Warn("Changes-requested SMS not delivered")
		}
	}

	return nil
}

// NotifyDocumentValidated tells the applicant a document passed manual validation.
func (s *NotificationService) NotifyDocumentValidated(ctx context.Context, application *models.Application, document *models.Document) error {
	lang := s.locale()
	_, err := s.SendInAppNotification(ctx, application.ApplicantID,
		models.NotificationTypeDocumentValidated,
		i18n.T(lang, i18n.KeyNotifyDocumentValidated),
		i18n.T(lang, i18n.KeyNotifyDocumentValidatedBody, document.FileName),
		&application.ID,
	)
	return err
}

// SendReminders texts every alerted applicant with a known phone number and
// returns how many reminders were delivered.
func (s *NotificationService) SendReminders(ctx context.Context, alerts []ApplicationStatusResponse) (int, error) {
	lang := s.locale()
	sent := 0

	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if alert.Phone == "" {
			continue
		}

		message := i18n.T(lang, i18n.KeyNotifyReminderSMS, alert.ReferenceNumber, humanizeStatus(alert.Status))
		if err := s.SendSmsReminder(ctx, alert.Phone, message); err != nil {
			logrus.WithError(err).WithField("application_id", alert.ApplicationID).Warn("Reminder not delivered")
			continue
		}

		applicationID := alert.ApplicationID
		if _, err := s.SendInAppNotification(ctx, alert.ApplicantID, models.NotificationTypeReminder,
			message, alert.Reason, &applicationID); err != nil {
			logrus.WithError(err).WithField("application_id", alert.ApplicationID).Warn("Reminder notification not stored")
		}
		sent++
	}

	return sent, nil
}

func (s *NotificationService) applicationData(application *models.Application) map[string]interface{} {
	missing := make([]string, len(application.MissingFields))
	copy(missing, application.MissingFields)

	return map[string]interface{}{
		"reference":       application.ReferenceNumber,
		"first_name":      application.FirstName,
		"last_name":       application.LastName,
		"program":         application.Program,
		"academic_year":   application.AcademicYear,
		"status":          string(application.Status),
		"status_label":    humanizeStatus(application.Status),
		"comment":         application.DecisionComment,
		"missing":         missing,
		"document_count":  len(application.Documents),
		"application_url": fmt.Sprintf("%s/applications/%s", s.config.Frontend.BaseURL, application.ID),
	}
}

func humanizeStatus(status models.ApplicationStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(status), "_", " "))
}
