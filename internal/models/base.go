package models

import (
	"time"

	"chatlink/internal/uuid"

	"gorm.io/gorm"
)

// Base carries the columns shared by every table. Primary keys are UUIDv7
// strings generated on insert; their timestamp prefix keeps index order
// close to insertion order.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns the primary key. A caller-provided ID must already be
// a UUID; anything else is replaced rather than written to a uuid column.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if !uuid.IsValid(b.ID) {
		b.ID = uuid.New()
	}
	return nil
}
