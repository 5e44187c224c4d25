package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// UploadedFile records a successfully published asset belonging to a
// participant. Created only after the full publication pipeline succeeds.
type UploadedFile struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	ParticipantID uint           `json:"participant_id" gorm:"index;not null"`
	FileID        string         `json:"file_id" gorm:"type:varchar(100);not null"`
	FileName      string         `json:"file_name" gorm:"type:varchar(255);not null"`
	ContentType   string         `json:"content_type" gorm:"type:varchar(100)"`
	Metadata      string         `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// MetadataMap decodes the stored metadata bag
func (f *UploadedFile) MetadataMap() map[string]string {
	metadata := map[string]string{}
	if f.Metadata != "" {
		_ = json.Unmarshal([]byte(f.Metadata), &metadata)
	}
	return metadata
}

// EncodeMetadata serializes a metadata bag for storage. The target column
// is jsonb, so an empty bag encodes as an empty object rather than an
// empty string.
func EncodeMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "{}"
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}
