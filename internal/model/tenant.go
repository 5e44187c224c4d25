package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Tenant represents an organization's deployment unit under a service
// provider. CorrelationID is assigned the first time the tenant is
// provisioned in the external fleet manager and is never overwritten.
type Tenant struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	Name              string         `json:"name" gorm:"type:varchar(100);not null"`
	Properties        string         `json:"properties,omitempty" gorm:"type:jsonb"`
	CorrelationID     *string        `json:"correlation_id,omitempty" gorm:"type:varchar(100);uniqueIndex"`
	ServiceProviderID uint           `json:"service_provider_id" gorm:"index;not null"`
	Participants      []Participant  `json:"participants,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// PropertyMap decodes the tenant's free-form property bag. The tenant name is
// always present under "name" so the fleet manager receives it on creation.
func (t *Tenant) PropertyMap() map[string]string {
	properties := map[string]string{}
	if t.Properties != "" {
		// A corrupt bag degrades to the name-only map rather than failing the deploy
		_ = json.Unmarshal([]byte(t.Properties), &properties)
	}
	properties["name"] = t.Name
	return properties
}
