// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the id client side so callers can reference it before commit.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleApplicant UserRole = "APPLICANT"
	UserRoleAgent     UserRole = "AGENT"
	UserRoleAdmin     UserRole = "ADMIN"
)

// CanReview reports whether the role may act on dossiers and documents.
func (r UserRole) CanReview() bool {
	return r == UserRoleAgent || r == UserRoleAdmin
}

type ApplicationStatus string

const (
	ApplicationStatusPreValidation    ApplicationStatus = "PRE_VALIDATION"
	ApplicationStatusManualReview     ApplicationStatus = "MANUAL_REVIEW"
	ApplicationStatusUnderReview      ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusPending          ApplicationStatus = "PENDING"
	ApplicationStatusAgentValidated   ApplicationStatus = "AGENT_VALIDATED"
	ApplicationStatusChangesRequested ApplicationStatus = "CHANGES_REQUESTED"
	ApplicationStatusRejected         ApplicationStatus = "REJECTED"
	ApplicationStatusApproved         ApplicationStatus = "APPROVED"
)

// AllApplicationStatuses lists every status in workflow order.
var AllApplicationStatuses = []ApplicationStatus{
	ApplicationStatusPreValidation,
	ApplicationStatusPending,
	ApplicationStatusManualReview,
	ApplicationStatusUnderReview,
	ApplicationStatusAgentValidated,
	ApplicationStatusChangesRequested,
	ApplicationStatusRejected,
	ApplicationStatusApproved,
}

func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

func (s ApplicationStatus) IsValid() bool {
	for _, status := range AllApplicationStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type DocumentType string

const (
	DocumentTypeIDCard           DocumentType = "ID_CARD"
	DocumentTypeBirthCertificate DocumentType = "BIRTH_CERTIFICATE"
	DocumentTypeTranscript       DocumentType = "TRANSCRIPT"
	DocumentTypeDiploma          DocumentType = "DIPLOMA"
	DocumentTypePhoto            DocumentType = "PHOTO"
	DocumentTypeProofOfAddress   DocumentType = "PROOF_OF_ADDRESS"
	DocumentTypeOther            DocumentType = "OTHER"
)

var allDocumentTypes = []DocumentType{
	DocumentTypeIDCard,
	DocumentTypeBirthCertificate,
	DocumentTypeTranscript,
	DocumentTypeDiploma,
	DocumentTypePhoto,
	DocumentTypeProofOfAddress,
	DocumentTypeOther,
}

func (t DocumentType) IsValid() bool {
	for _, docType := range allDocumentTypes {
		if t == docType {
			return true
		}
	}
	return false
}

type DocumentValidationStatus string

const (
	DocumentValidationPending       DocumentValidationStatus = "PENDING"
	DocumentValidationAutoValidated DocumentValidationStatus = "AUTO_VALIDATED"
	DocumentValidationAutoRejected  DocumentValidationStatus = "AUTO_REJECTED"
	DocumentValidationValidated     DocumentValidationStatus = "VALIDATED"
)

type NotificationType string

const (
	NotificationTypeApplicationSubmitted NotificationType = "APPLICATION_SUBMITTED"
	NotificationTypeStatusChanged        NotificationType = "STATUS_CHANGED"
	NotificationTypeChangesRequested     NotificationType = "CHANGES_REQUESTED"
	NotificationTypeDocumentValidated    NotificationType = "DOCUMENT_VALIDATED"
	NotificationTypeReminder             NotificationType = "REMINDER"
	NotificationTypeSystem               NotificationType = "SYSTEM"
)

type ReviewAssignmentStatus string

const (
	ReviewAssignmentOpen      ReviewAssignmentStatus = "OPEN"
	ReviewAssignmentCompleted ReviewAssignmentStatus = "COMPLETED"
)
