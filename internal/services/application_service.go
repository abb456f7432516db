package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/metrics"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type ApplicationService struct {
	store         repository.Store
	objects       ObjectStore
	documents     *DocumentService
	notifications *NotificationService
	analytics     *AnalyticsService
	locks         ReviewLock
	schema        *DossierSchema
	validator     *utils.ObjectValidator
	config        *config.Config
	now           func() time.Time
}

// ApplicationForm is the applicant's submission.
type ApplicationForm struct {
	ApplicantID  uuid.UUID              `json:"-"`
	Program      string                 `json:"program" validate:"required,max=100"`
	AcademicYear string                 `json:"academic_year" validate:"required,max=20"`
	FirstName    string                 `json:"first_name" validate:"required,max=100"`
	LastName     string                 `json:"last_name" validate:"required,max=100"`
	Email        string                 `json:"email" validate:"required,email"`
	Phone        string                 `json:"phone" validate:"omitempty,e164"`
	FormData     map[string]interface{} `json:"form_data"`
}

var academicYearPattern = regexp.MustCompile(`^\d{4}(-\d{4})?$`)

func (f *ApplicationForm) Constraints() []utils.Violation {
	var violations []utils.Violation
	if f.ApplicantID == uuid.Nil {
		violations = append(violations, utils.Violation{Field: "applicant_id", Tag: "required", Message: "applicant_id is required"})
	}
	if f.AcademicYear != "" && !academicYearPattern.MatchString(f.AcademicYear) {
		violations = append(violations, utils.Violation{Field: "academic_year", Tag: "format", Message: "academic_year must look like 2025 or 2025-2026"})
	}
	return violations
}

// ResubmissionForm carries the corrections made after CHANGES_REQUESTED.
type ResubmissionForm struct {
	Phone    string                 `json:"phone" validate:"omitempty,e164"`
	FormData map[string]interface{} `json:"form_data"`
}

func (f *ResubmissionForm) Constraints() []utils.Violation {
	if len(f.FormData) == 0 && f.Phone == "" {
		return []utils.Violation{{Field: "form_data", Tag: "required", Message: "form_data must contain at least one change"}}
	}
	return nil
}

// DocumentCheck is the automatic validation outcome of one document.
type DocumentCheck struct {
	DocumentID   uuid.UUID           `json:"document_id"`
	Type         models.DocumentType `json:"type"`
	Valid        bool                `json:"valid"`
	Problems     []string            `json:"problems,omitempty"`
	CopyDetected bool                `json:"copy_detected"`
}

type PreValidationResult struct {
	ApplicationID uuid.UUID                `json:"application_id"`
	Status        models.ApplicationStatus `json:"status"`
	MissingFields []string                 `json:"missing_fields,omitempty"`
	Documents     []DocumentCheck          `json:"documents"`
}

func NewApplicationService(
	store repository.Store,
	objects ObjectStore,
	documents *DocumentService,
	notifications *NotificationService,
	analytics *AnalyticsService,
	locks ReviewLock,
	validator *utils.ObjectValidator,
	cfg *config.Config,
) (*ApplicationService, error) {
	schema, err := NewDossierSchema(cfg.Workflow.RequiredFormFields)
	if err != nil {
		return nil, err
	}

	return &ApplicationService{
		store:         store,
		objects:       objects,
		documents:     documents,
		notifications: notifications,
		analytics:     analytics,
		locks:         locks,
		schema:        schema,
		validator:     validator,
		config:        cfg,
		now:           time.Now,
	}, nil
}

// CreateApplication validates the submission, stores the uploaded contents,
// and persists the application with its documents, submission notification
// and audit row in one transaction. Uploaded objects are removed when the
// transaction fails.
func (s *ApplicationService) CreateApplication(ctx context.Context, form *ApplicationForm, uploads []*DocumentUpload) (*models.Application, error) {
	if err := s.validateSubmission(form, uploads); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().FindByID(ctx, form.ApplicantID); err != nil {
		return nil, fmt.Errorf("applicant %s: %w", form.ApplicantID, err)
	}

	reference, err := s.newReferenceNumber()
	if err != nil {
		return nil, err
	}

	application := &models.Application{
		ReferenceNumber: reference,
		ApplicantID:     form.ApplicantID,
		Status:          models.ApplicationStatusPreValidation,
		Program:         strings.TrimSpace(form.Program),
		AcademicYear:    strings.TrimSpace(form.AcademicYear),
		FirstName:       strings.TrimSpace(form.FirstName),
		LastName:        strings.TrimSpace(form.LastName),
		Email:           strings.ToLower(strings.TrimSpace(form.Email)),
		Phone:           form.Phone,
		FormData:        models.JSONB(form.FormData),
	}
	application.ID = uuid.New()

	documents := make([]*models.Document, 0, len(uploads))
	keys := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		doc := newDocument(application.ID, upload)
		stored, err := s.objects.Put(ctx, doc.StorageKey, doc.ContentType, upload.Content)
		if err != nil {
			deleteObjects(ctx, s.objects, keys)
			return nil, fmt.Errorf("failed to store document %s: %w", doc.FileName, err)
		}
		doc.URL = stored.URL
		keys = append(keys, doc.StorageKey)
		documents = append(documents, doc)
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Applications().Create(ctx, application); err != nil {
			return fmt.Errorf("failed to create application: %w", err)
		}

		application.Documents = make([]models.Document, 0, len(documents))
		for _, doc := range documents {
			if err := tx.Documents().Create(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document %s: %w", doc.FileName, err)
			}
			application.Documents = append(application.Documents, *doc)
		}

		if err := recordAudit(ctx, tx, &application.ApplicantID, "application.created", application.ID, nil, models.JSONB{
			"status":    string(application.Status),
			"reference": application.ReferenceNumber,
			"documents": len(documents),
		}); err != nil {
			return err
		}

		return s.notifications.withStore(tx).NotifyApplicationSubmitted(ctx, application)
	})
	if err != nil {
		deleteObjects(ctx, s.objects, keys)
		return nil, err
	}

	metrics.ApplicationsCreatedTotal.Inc()
	s.analytics.Invalidate(ctx)

	logrus.WithFields(logrus.Fields{
		"application_id": application.ID,
		"reference":      application.ReferenceNumber,
		"documents":      len(documents),
	}).Info("Application created")
	return application, nil
}

func (s *ApplicationService) validateSubmission(form *ApplicationForm, uploads []*DocumentUpload) error {
	var violations []utils.Violation
	typeName := "ApplicationForm"

	if err := s.validator.Validate(form); err != nil {
		var validationErr *utils.ValidationError
		if !errors.As(err, &validationErr) {
			return err
		}
		violations = append(violations, validationErr.Violations...)
	}

	for i, upload := range uploads {
		err := s.validator.Validate(upload)
		if err == nil {
			continue
		}
		var validationErr *utils.ValidationError
		if !errors.As(err, &validationErr) {
			return err
		}
		for _, v := range validationErr.Violations {
			v.Field = fmt.Sprintf("documents[%d].%s", i, v.Field)
			violations = append(violations, v)
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return &utils.ValidationError{TypeName: typeName, Violations: violations}
}

func (s *ApplicationService) newReferenceNumber() (string, error) {
	code, err := utils.GenerateReferenceCode(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate reference number: %w", err)
	}
	return fmt.Sprintf("REG-%d-%s", s.now().Year(), code), nil
}

// PerformPreValidation runs the deterministic dossier checks on an application
// in PRE_VALIDATION and moves it to CHANGES_REQUESTED, PENDING (copy held for
// an administrator) or MANUAL_REVIEW.
func (s *ApplicationService) PerformPreValidation(ctx context.Context, applicationID uuid.UUID) (*PreValidationResult, error) {
	result := &PreValidationResult{ApplicationID: applicationID}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		application, err := tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		if application.Status != models.ApplicationStatusPreValidation {
			return fmt.Errorf("%w: pre-validation requires %s, application is %s",
				ErrInvalidTransition, models.ApplicationStatusPreValidation, application.Status)
		}

		missing, err := s.schema.MissingFields(application)
		if err != nil {
			return err
		}

		documents := s.documents.withStore(tx)
		accepted := make(map[models.DocumentType]bool)
		copied := false

		for i := range application.Documents {
			doc := &application.Documents[i]
			ok, problems, err := documents.PerformAutomaticValidation(ctx, doc)
			if err != nil {
				return err
			}
			check := DocumentCheck{DocumentID: doc.ID, Type: doc.Type, Valid: ok, Problems: problems}

			if ok {
				accepted[doc.Type] = true
				isCopy, err := documents.DetectDocumentCopy(ctx, doc)
				if err != nil {
					return err
				}
				check.CopyDetected = isCopy
				copied = copied || isCopy
			} else {
				missing = append(missing, "documents."+string(doc.Type))
			}
			result.Documents = append(result.Documents, check)
		}

		for _, required := range s.config.Workflow.RequiredDocuments {
			if !accepted[models.DocumentType(required)] {
				missing = append(missing, "documents."+required)
			}
		}
		missing = uniqueSorted(missing)

		switch {
		case len(missing) > 0:
			application.MissingFields = missing
			if err := tx.Applications().Update(ctx, application); err != nil {
				return fmt.Errorf("failed to record missing fields: %w", err)
			}
			if err := s.transition(ctx, tx, application, models.ApplicationStatusChangesRequested, nil); err != nil {
				return err
			}
		case copied:
			if err := s.transition(ctx, tx, application, models.ApplicationStatusPending, nil); err != nil {
				return err
			}
		default:
			if _, err := s.assignForManualReview(ctx, tx, application, nil); err != nil {
				return err
			}
		}

		result.Status = application.Status
		result.MissingFields = missing
		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, applicationID, models.ApplicationStatusPreValidation, result.Status)
	return result, nil
}

// AssignForManualReview queues the application for an agent. Calling it on an
// application already in MANUAL_REVIEW returns the existing assignment.
func (s *ApplicationService) AssignForManualReview(ctx context.Context, applicationID uuid.UUID, reviewerID *uuid.UUID) (*models.ReviewAssignment, error) {
	var (
		assignment *models.ReviewAssignment
		from       models.ApplicationStatus
	)

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		application, err := tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		from = application.Status

		assignment, err = s.assignForManualReview(ctx, tx, application, reviewerID)
		if err != nil {
			return err
		}
		if from == models.ApplicationStatusManualReview {
			return nil
		}
		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	if from != models.ApplicationStatusManualReview {
		s.committed(ctx, applicationID, from, models.ApplicationStatusManualReview)
	}
	return assignment, nil
}

func (s *ApplicationService) assignForManualReview(ctx context.Context, tx repository.Store, application *models.Application, reviewerID *uuid.UUID) (*models.ReviewAssignment, error) {
	if application.Status == models.ApplicationStatusManualReview {
		existing, err := tx.Reviews().FindOpenByApplication(ctx, application.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	} else if err := s.transition(ctx, tx, application, models.ApplicationStatusManualReview, nil); err != nil {
		return nil, err
	}

	assignment := &models.ReviewAssignment{
		ApplicationID: application.ID,
		ReviewerID:    reviewerID,
		Status:        models.ReviewAssignmentOpen,
		AssignedAt:    s.now(),
	}
	if err := tx.Reviews().Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create review assignment: %w", err)
	}
	return assignment, nil
}

// StartReview moves an application from the review queue to UNDER_REVIEW and
// assigns it to agentID.
func (s *ApplicationService) StartReview(ctx context.Context, applicationID, agentID uuid.UUID) (*models.Application, error) {
	if err := s.requireReviewer(ctx, agentID, false); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, reviewLockKey(applicationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var application *models.Application
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		application, err = tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		if err := s.transition(ctx, tx, application, models.ApplicationStatusUnderReview, &agentID); err != nil {
			return err
		}

		assignment, err := tx.Reviews().FindOpenByApplication(ctx, applicationID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			err = tx.Reviews().Create(ctx, &models.ReviewAssignment{
				ApplicationID: applicationID,
				ReviewerID:    &agentID,
				Status:        models.ReviewAssignmentOpen,
				AssignedAt:    s.now(),
			})
		case err == nil:
			assignment.ReviewerID = &agentID
			err = tx.Reviews().Update(ctx, assignment)
		}
		if err != nil {
			return fmt.Errorf("failed to assign reviewer: %w", err)
		}

		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, applicationID, models.ApplicationStatusManualReview, models.ApplicationStatusUnderReview)
	return application, nil
}

// ReviewDossier applies an agent decision. The per-application lock and the
// conditional status update keep two reviewers from both succeeding.
func (s *ApplicationService) ReviewDossier(ctx context.Context, applicationID uuid.UUID, decision string, reviewerID uuid.UUID, comment string) (*models.Application, error) {
	if _, err := s.store.Applications().FindByID(ctx, applicationID); err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}

	target, ok := ParseDecision(decision)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	if err := s.requireReviewer(ctx, reviewerID, false); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, reviewLockKey(applicationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		application *models.Application
		from        models.ApplicationStatus
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		application, err = tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		from = application.Status

		if err := s.transition(ctx, tx, application, target, &reviewerID); err != nil {
			return err
		}

		now := s.now()
		application.DecisionComment = strings.TrimSpace(comment)
		application.ReviewedBy = &reviewerID
		application.ReviewedAt = &now
		if target == models.ApplicationStatusRejected {
			application.DecidedAt = &now
		}
		if err := tx.Applications().Update(ctx, application); err != nil {
			return fmt.Errorf("failed to record review: %w", err)
		}

		if err := s.completeAssignment(ctx, tx, applicationID, reviewerID, decision, application.DecisionComment); err != nil {
			return err
		}

		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, applicationID, from, target)
	logrus.WithFields(logrus.Fields{
		"application_id": applicationID,
		"reviewer_id":    reviewerID,
		"decision":       decision,
		"status":         target,
	}).Info("Dossier reviewed")
	return application, nil
}

func (s *ApplicationService) completeAssignment(ctx context.Context, tx repository.Store, applicationID, reviewerID uuid.UUID, decision, comment string) error {
	assignment, err := tx.Reviews().FindOpenByApplication(ctx, applicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	now := s.now()
	assignment.Status = models.ReviewAssignmentCompleted
	assignment.ReviewerID = &reviewerID
	assignment.Decision = strings.ToLower(strings.TrimSpace(decision))
	assignment.Comment = comment
	assignment.CompletedAt = &now
	if err := tx.Reviews().Update(ctx, assignment); err != nil {
		return fmt.Errorf("failed to complete review assignment: %w", err)
	}
	return nil
}

// FinalizeApplication records the administrator's final decision on an
// application validated by an agent.
func (s *ApplicationService) FinalizeApplication(ctx context.Context, applicationID, adminID uuid.UUID, approve bool, comment string) (*models.Application, error) {
	if err := s.requireReviewer(ctx, adminID, true); err != nil {
		return nil, err
	}

	target := models.ApplicationStatusRejected
	if approve {
		target = models.ApplicationStatusApproved
	}

	var application *models.Application
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		application, err = tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		if application.Status != models.ApplicationStatusAgentValidated {
			return fmt.Errorf("%w: finalization requires %s, application is %s",
				ErrInvalidTransition, models.ApplicationStatusAgentValidated, application.Status)
		}

		if err := s.transition(ctx, tx, application, target, &adminID); err != nil {
			return err
		}

		now := s.now()
		application.DecidedAt = &now
		if c := strings.TrimSpace(comment); c != "" {
			application.DecisionComment = c
		}
		if err := tx.Applications().Update(ctx, application); err != nil {
			return fmt.Errorf("failed to record decision: %w", err)
		}

		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, applicationID, models.ApplicationStatusAgentValidated, target)
	return application, nil
}

// ResubmitApplication merges the applicant's corrections and sends the
// application back to PRE_VALIDATION.
func (s *ApplicationService) ResubmitApplication(ctx context.Context, applicationID, applicantID uuid.UUID, form *ResubmissionForm) (*models.Application, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	var application *models.Application
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		application, err = tx.Applications().FindByID(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", applicationID, err)
		}
		if application.ApplicantID != applicantID {
			return ErrForbidden
		}
		if application.Status != models.ApplicationStatusChangesRequested {
			return fmt.Errorf("%w: resubmission requires %s, application is %s",
				ErrInvalidTransition, models.ApplicationStatusChangesRequested, application.Status)
		}

		if application.FormData == nil {
			application.FormData = models.JSONB{}
		}
		for key, value := range form.FormData {
			if value == nil {
				delete(application.FormData, key)
				continue
			}
			application.FormData[key] = value
		}
		if form.Phone != "" {
			application.Phone = form.Phone
		}
		application.MissingFields = nil
		application.DecisionComment = ""
		if err := tx.Applications().Update(ctx, application); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}

		if err := s.transition(ctx, tx, application, models.ApplicationStatusPreValidation, &applicantID); err != nil {
			return err
		}
		return s.notifications.withStore(tx).NotifyStatusChange(ctx, application)
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, applicationID, models.ApplicationStatusChangesRequested, models.ApplicationStatusPreValidation)
	return application, nil
}

// GetApplication reports found=false when the application does not exist.
func (s *ApplicationService) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, bool, error) {
	application, err := s.store.Applications().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get application: %w", err)
	}
	return application, true, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context, filter repository.ApplicationFilter) ([]models.Application, int64, error) {
	applications, total, err := s.store.Applications().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	return applications, total, nil
}

// GetApplicationHistory returns the audit trail of an application.
func (s *ApplicationService) GetApplicationHistory(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	if _, err := s.store.Applications().FindByID(ctx, id); err != nil {
		return nil, fmt.Errorf("application %s: %w", id, err)
	}
	logs, err := s.store.Audit().ListByResource(ctx, "application", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list application history: %w", err)
	}
	return logs, nil
}

// transition applies one edge of the workflow with a conditional update and
// records it in the audit log.
func (s *ApplicationService) transition(ctx context.Context, tx repository.Store, application *models.Application, to models.ApplicationStatus, actorID *uuid.UUID) error {
	from := application.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	if err := tx.Applications().UpdateStatus(ctx, application.ID, from, to); err != nil {
		return fmt.Errorf("application %s: %w", application.ID, err)
	}
	application.Status = to

	return recordAudit(ctx, tx, actorID, "application.status_changed", application.ID,
		models.JSONB{"status": string(from)},
		models.JSONB{"status": string(to)},
	)
}

// committed runs the post-commit bookkeeping of a status change.
func (s *ApplicationService) committed(ctx context.Context, applicationID uuid.UUID, from, to models.ApplicationStatus) {
	metrics.StatusTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	s.analytics.Invalidate(ctx)

	logrus.WithFields(logrus.Fields{
		"application_id": applicationID,
		"from":           from,
		"to":             to,
	}).Info("Application status changed")
}

func (s *ApplicationService) requireReviewer(ctx context.Context, userID uuid.UUID, adminOnly bool) error {
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if adminOnly && user.Role != models.UserRoleAdmin {
		return ErrForbidden
	}
	if !user.Role.CanReview() {
		return ErrForbidden
	}
	return nil
}

func recordAudit(ctx context.Context, tx repository.Store, actorID *uuid.UUID, action string, applicationID uuid.UUID, oldValues, newValues models.JSONB) error {
	resourceID := applicationID
	if err := tx.Audit().Create(ctx, &models.AuditLog{
		UserID:       actorID,
		Action:       action,
		ResourceType: "application",
		ResourceID:   &resourceID,
		OldValues:    oldValues,
		NewValues:    newValues,
	}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func reviewLockKey(applicationID uuid.UUID) string {
	return "review:" + applicationID.String()
}

func uniqueSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
