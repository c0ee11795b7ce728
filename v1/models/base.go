package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel contains the timestamps shared by the content tables.
// created_at is written once and never updated.
type BaseModel struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// newID assigns a UUID to id when the caller left it empty
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
