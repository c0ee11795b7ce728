package models

import (
	"time"

	"gorm.io/gorm"
)

// WhitelistEntry pre-approves a person who has not registered yet
type WhitelistEntry struct {
	ID          string    `gorm:"primarykey;column:id" json:"id"`
	Email       string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName    string    `gorm:"column:full_name;not null" json:"full_name"`
	Department  string    `gorm:"column:department;index" json:"department"`
	Position    string    `gorm:"column:position;not null" json:"position"`
	Degree      string    `gorm:"column:degree" json:"degree"`
	StudentYear string    `gorm:"column:student_year" json:"student_year"`
	Role        Role      `gorm:"column:role;not null" json:"role"`
	CreatedBy   string    `gorm:"column:created_by" json:"created_by"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

// TableName sets the table name for GORM
func (WhitelistEntry) TableName() string {
	return "whitelist"
}

// BeforeCreate assigns the entry id
func (w *WhitelistEntry) BeforeCreate(tx *gorm.DB) error {
	newID(&w.ID)
	return nil
}
