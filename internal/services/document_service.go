package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/metrics"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

type DocumentService struct {
	store         repository.Store
	objects       ObjectStore
	notifications *NotificationService
	analytics     *AnalyticsService
	validator     *utils.ObjectValidator
	config        *config.Config
	now           func() time.Time
}

// DocumentUpload is one file submitted with, or added to, an application.
type DocumentUpload struct {
	Type        models.DocumentType `json:"type" validate:"required"`
	FileName    string              `json:"file_name" validate:"required,max=255"`
	ContentType string              `json:"content_type" validate:"required,max=100"`
	Content     []byte              `json:"-"`
}

func (u *DocumentUpload) Constraints() []utils.Violation {
	var violations []utils.Violation
	if u.Type != "" && !u.Type.IsValid() {
		violations = append(violations, utils.Violation{Field: "type", Tag: "oneof", Message: "type is not a known document type"})
	}
	if len(u.Content) == 0 {
		violations = append(violations, utils.Violation{Field: "content", Tag: "required", Message: "content must not be empty"})
	}
	if strings.ContainsAny(u.FileName, `/\`) {
		violations = append(violations, utils.Violation{Field: "file_name", Tag: "filename", Message: "file_name must not contain path separators"})
	}
	return violations
}

// acceptedTypes lists the content types each document type may carry.
var acceptedTypes = map[models.DocumentType][]string{
	models.DocumentTypePhoto: {"image/jpeg", "image/png"},
}

var defaultAcceptedTypes = []string{"application/pdf", "image/jpeg", "image/png"}

var extensionsByType = map[string][]string{
	"application/pdf": {".pdf"},
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
}

func NewDocumentService(store repository.Store, objects ObjectStore, notifications *NotificationService, analytics *AnalyticsService, validator *utils.ObjectValidator, cfg *config.Config) *DocumentService {
	return &DocumentService{
		store:         store,
		objects:       objects,
		notifications: notifications,
		analytics:     analytics,
		validator:     validator,
		config:        cfg,
		now:           time.Now,
	}
}

func (s *DocumentService) withStore(tx repository.Store) *DocumentService {
	bound := *s
	bound.store = tx
	if s.notifications != nil {
		bound.notifications = s.notifications.withStore(tx)
	}
	return &bound
}

// newDocument builds the document row for an upload: id, storage key,
// detected content type, size and SHA-256 hash.
func newDocument(applicationID uuid.UUID, upload *DocumentUpload) *models.Document {
	id := uuid.New()
	doc := &models.Document{
		ApplicationID:    applicationID,
		Type:             upload.Type,
		FileName:         filepath.Base(upload.FileName),
		StorageKey:       documentKey(applicationID, id, upload.FileName),
		ContentType:      upload.ContentType,
		DetectedType:     mimetype.Detect(upload.Content).String(),
		Size:             int64(len(upload.Content)),
		ContentHash:      utils.HashBytes(upload.Content),
		ValidationStatus: models.DocumentValidationPending,
		Content:          upload.Content,
	}
	doc.ID = id
	return doc
}

// UploadDocument adds a document to an existing, non-terminal application.
func (s *DocumentService) UploadDocument(ctx context.Context, applicationID uuid.UUID, upload *DocumentUpload) (*models.Document, error) {
	if err := s.validator.Validate(upload); err != nil {
		return nil, err
	}

	application, err := s.store.Applications().FindByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", applicationID, err)
	}
	if application.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: application is %s", ErrInvalidTransition, application.Status)
	}

	doc := newDocument(applicationID, upload)
	stored, err := s.objects.Put(ctx, doc.StorageKey, doc.ContentType, upload.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	doc.URL = stored.URL

	if err := s.store.Documents().Create(ctx, doc); err != nil {
		deleteObjects(ctx, s.objects, []string{doc.StorageKey})
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	s.analytics.Invalidate(ctx)

	logrus.WithFields(logrus.Fields{
		"application_id": applicationID,
		"document_id":    doc.ID,
		"type":           doc.Type,
		"detected_type":  doc.DetectedType,
	}).Info("Document uploaded")
	return doc, nil
}

// PerformAutomaticValidation runs the deterministic checks on a document and
// records the outcome on it. It never changes the application status.
func (s *DocumentService) PerformAutomaticValidation(ctx context.Context, document *models.Document) (bool, []string, error) {
	if document.ValidationStatus == models.DocumentValidationValidated {
		return true, nil, nil
	}

	problems := s.checkDocument(document)
	if len(problems) == 0 {
		document.ValidationStatus = models.DocumentValidationAutoValidated
		document.ValidationErrors = nil
		metrics.DocumentValidationsTotal.WithLabelValues("accepted").Inc()
	} else {
		document.ValidationStatus = models.DocumentValidationAutoRejected
		document.ValidationErrors = problems
		metrics.DocumentValidationsTotal.WithLabelValues("rejected").Inc()
	}

	if err := s.store.Documents().Update(ctx, document); err != nil {
		return false, nil, fmt.Errorf("failed to record validation outcome: %w", err)
	}
	return len(problems) == 0, problems, nil
}

func (s *DocumentService) checkDocument(document *models.Document) []string {
	var problems []string

	if document.Size <= 0 {
		problems = append(problems, "document is empty")
	}
	if max := s.config.Storage.MaxFileSize; max > 0 && document.Size > max {
		problems = append(problems, fmt.Sprintf("document exceeds the maximum size of %d bytes", max))
	}

	detected := baseMediaType(document.DetectedType)
	if !s.accepts(document.Type, detected) {
		problems = append(problems, fmt.Sprintf("content type %s is not accepted for %s", detected, document.Type))
		return problems
	}

	ext := strings.ToLower(filepath.Ext(document.FileName))
	if !contains(extensionsByType[detected], ext) {
		problems = append(problems, fmt.Sprintf("file extension %q does not match content type %s", ext, detected))
	}
	return problems
}

func (s *DocumentService) accepts(docType models.DocumentType, detected string) bool {
	accepted, ok := acceptedTypes[docType]
	if !ok {
		accepted = defaultAcceptedTypes
	}
	if !contains(accepted, detected) {
		return false
	}
	return len(s.config.Storage.AllowedTypes) == 0 || contains(s.config.Storage.AllowedTypes, detected)
}

// DetectDocumentCopy flags the document when another application holds a
// document with identical content. Manually validated documents are never
// flagged again.
func (s *DocumentService) DetectDocumentCopy(ctx context.Context, document *models.Document) (bool, error) {
	if document.ContentHash == "" || document.ValidationStatus == models.DocumentValidationValidated {
		return false, nil
	}

	matches, err := s.store.Documents().FindByContentHash(ctx, document.ContentHash, document.ApplicationID)
	if err != nil {
		return false, fmt.Errorf("failed to look up document hash: %w", err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	if !document.CopyDetected {
		original := matches[0].ID
		document.CopyDetected = true
		document.CopyOfID = &original
		if err := s.store.Documents().Update(ctx, document); err != nil {
			return false, fmt.Errorf("failed to flag copied document: %w", err)
		}
		metrics.CopiesDetectedTotal.Inc()

		logrus.WithFields(logrus.Fields{
			"document_id":    document.ID,
			"application_id": document.ApplicationID,
			"copy_of":        original,
		}).Warn("Document content matches another application")
	}
	return true, nil
}

// ManualValidation marks a document VALIDATED on behalf of an agent or
// administrator, clearing any copy hold.
func (s *DocumentService) ManualValidation(ctx context.Context, documentID, reviewerID uuid.UUID) (*models.Document, error) {
	reviewer, err := s.store.Users().FindByID(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("reviewer %s: %w", reviewerID, err)
	}
	if !reviewer.Role.CanReview() {
		return nil, ErrForbidden
	}

	var document *models.Document
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		bound := s.withStore(tx)

		doc, err := tx.Documents().FindByID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("document %s: %w", documentID, err)
		}

		now := s.now()
		doc.ValidationStatus = models.DocumentValidationValidated
		doc.ValidationErrors = nil
		doc.CopyDetected = false
		doc.CopyOfID = nil
		doc.ValidatedBy = &reviewerID
		doc.ValidatedAt = &now
		if err := tx.Documents().Update(ctx, doc); err != nil {
			return fmt.Errorf("failed to validate document: %w", err)
		}

		if err := tx.Audit().Create(ctx, &models.AuditLog{
			UserID:       &reviewerID,
			Action:       "document.validated",
			ResourceType: "document",
			ResourceID:   &doc.ID,
			NewValues:    models.JSONB{"validation_status": string(doc.ValidationStatus)},
		}); err != nil {
			return err
		}

		application, err := tx.Applications().FindByID(ctx, doc.ApplicationID)
		if err != nil {
			return fmt.Errorf("application %s: %w", doc.ApplicationID, err)
		}
		if err := bound.notifications.NotifyDocumentValidated(ctx, application, doc); err != nil {
			return err
		}

		document = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.analytics.Invalidate(ctx)
	return document, nil
}

func (s *DocumentService) GetDocumentsByApplicationID(ctx context.Context, applicationID uuid.UUID) ([]models.Document, error) {
	documents, err := s.store.Documents().ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return documents, nil
}

func (s *DocumentService) GetAllDocuments(ctx context.Context, params utils.PaginationParams) ([]models.Document, int64, error) {
	documents, total, err := s.store.Documents().List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return documents, total, nil
}

// GetDocument reports found=false when the document does not exist.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, bool, error) {
	document, err := s.store.Documents().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}
	return document, true, nil
}

// DownloadURL returns a short-lived link to the stored content.
func (s *DocumentService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	document, err := s.store.Documents().FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("document %s: %w", id, err)
	}
	ttl := time.Duration(s.config.Storage.PresignTTL) * time.Minute
	return s.objects.PresignURL(ctx, document.StorageKey, ttl)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	document, err := s.store.Documents().FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("document %s: %w", id, err)
	}

	if err := s.store.Documents().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	s.analytics.Invalidate(ctx)

	if err := s.objects.Delete(ctx, document.StorageKey); err != nil {
		logrus.WithError(err).WithField("document_id", id).Warn("Stored object not removed")
	}
	return nil
}

func baseMediaType(contentType string) string {
	return strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
