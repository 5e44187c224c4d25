package model

import (
	"time"

	"gorm.io/gorm"
)

// ServiceProvider represents an organization owning tenants
type ServiceProvider struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Tenants   []Tenant       `json:"tenants,omitempty" gorm:"foreignKey:ServiceProviderID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
