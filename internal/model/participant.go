package model

import (
	"time"

	"gorm.io/gorm"
)

// ClientCredentials is an opaque client id/secret pair used only to mint
// bearer tokens. The secret is never serialized or logged.
type ClientCredentials struct {
	ClientID     string `json:"client_id" gorm:"type:varchar(100)"`
	ClientSecret string `json:"-" gorm:"type:varchar(255)"`
}

// Participant represents an identity that can transact in one or more
// dataspaces. Identifier starts as a human-chosen name and is overwritten
// with the externally assigned decentralized identifier on deployment.
// CorrelationID is set once, on the first successful deployment.
type Participant struct {
	ID                   uint                      `json:"id" gorm:"primaryKey"`
	Identifier           string                    `json:"identifier" gorm:"type:varchar(255);not null"`
	CorrelationID        *string                   `json:"correlation_id,omitempty" gorm:"type:varchar(100)"`
	ParticipantContextID string                    `json:"participant_context_id" gorm:"type:varchar(100);index"`
	ClientCredentials    ClientCredentials         `json:"client_credentials" gorm:"embedded;embeddedPrefix:credential_"`
	TenantID             uint                      `json:"tenant_id" gorm:"index;not null"`
	Tenant               *Tenant                   `json:"-"`
	Dataspaces           []Dataspace               `json:"dataspaces,omitempty" gorm:"many2many:participant_dataspaces"`
	Agents               []VirtualParticipantAgent `json:"agents,omitempty" gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE"`
	UploadedFiles        []UploadedFile            `json:"uploaded_files,omitempty" gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
	DeletedAt            gorm.DeletedAt            `json:"-" gorm:"index"`
}
