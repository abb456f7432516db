// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Application struct {
	BaseModel
	ReferenceNumber string            `json:"reference_number" gorm:"uniqueIndex;size:32;not null"`
	ApplicantID     uuid.UUID         `json:"applicant_id" gorm:"type:uuid;not null;index"`
	Status          ApplicationStatus `json:"status" gorm:"type:varchar(30);not null;default:'PRE_VALIDATION';index"`
	Program         string            `json:"program" gorm:"size:100;not null"`
	AcademicYear    string            `json:"academic_year" gorm:"size:20;not null"`
	FirstName       string            `json:"first_name" gorm:"size:100;not null"`
	LastName        string            `json:"last_name" gorm:"size:100;not null"`
	Email           string            `json:"email" gorm:"size:255;not null"`
	Phone           string            `json:"phone,omitempty" gorm:"size:30"`
	FormData        JSONB             `json:"form_data" gorm:"type:jsonb"`
	MissingFields   pq.StringArray    `json:"missing_fields,omitempty" gorm:"type:text[]"`
	DecisionComment string            `json:"decision_comment,omitempty" gorm:"type:text"`
	ReviewedBy      *uuid.UUID        `json:"reviewed_by,omitempty" gorm:"type:uuid"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	DecidedAt       *time.Time        `json:"decided_at,omitempty"`

	// Relationships
	Applicant *User      `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
	Documents []Document `json:"documents,omitempty" gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
}

type ReviewAssignment struct {
	BaseModel
	ApplicationID uuid.UUID              `json:"application_id" gorm:"type:uuid;not null;index"`
	ReviewerID    *uuid.UUID             `json:"reviewer_id,omitempty" gorm:"type:uuid;index"`
	Status        ReviewAssignmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Decision      string                 `json:"decision,omitempty" gorm:"size:30"`
	Comment       string                 `json:"comment,omitempty" gorm:"type:text"`
	AssignedAt    time.Time              `json:"assigned_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
}
