// internal/models/document.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Document struct {
	BaseModel
	ApplicationID    uuid.UUID                `json:"application_id" gorm:"type:uuid;not null;index"`
	Type             DocumentType             `json:"type" gorm:"type:varchar(30);not null"`
	FileName         string                   `json:"file_name" gorm:"size:255;not null"`
	StorageKey       string                   `json:"storage_key" gorm:"size:512;not null"`
	URL              string                   `json:"url" gorm:"type:text"`
	ContentType      string                   `json:"content_type" gorm:"size:100"`
	DetectedType     string                   `json:"detected_type" gorm:"size:100"`
	Size             int64                    `json:"size"`
	ContentHash      string                   `json:"content_hash" gorm:"size:64;index"`
	ValidationStatus DocumentValidationStatus `json:"validation_status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ValidationErrors pq.StringArray           `json:"validation_errors,omitempty" gorm:"type:text[]"`
	CopyDetected     bool                     `json:"copy_detected" gorm:"default:false;index"`
	CopyOfID         *uuid.UUID               `json:"copy_of_id,omitempty" gorm:"type:uuid"`
	ValidatedBy      *uuid.UUID               `json:"validated_by,omitempty" gorm:"type:uuid"`
	ValidatedAt      *time.Time               `json:"validated_at,omitempty"`

	// Content is only carried between upload and storage.
	Content []byte `json:"-" gorm:"-"`
}
