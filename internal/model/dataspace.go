package model

import (
	"time"

	"gorm.io/gorm"
)

// Dataspace represents a named ecosystem participants can transact in.
// Immutable once referenced by a participant's membership.
type Dataspace struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	ProfileID string         `json:"profile_id" gorm:"type:varchar(100)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
