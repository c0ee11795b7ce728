package models

import (
	"time"

	"gorm.io/gorm"
)

// Report is a published research report
type Report struct {
	ID           string     `gorm:"primarykey;column:id" json:"id"`
	Title        string     `gorm:"column:title;not null" json:"title"`
	Description  string     `gorm:"column:description" json:"description"`
	Category     string     `gorm:"column:category;not null;index" json:"category"`
	FileURL      string     `gorm:"column:file_url" json:"file_url"`
	ThumbnailURL string     `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	Author       string     `gorm:"column:author" json:"author"`
	PublishedAt  *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (Report) TableName() string {
	return "reports"
}

// BeforeCreate assigns the report id
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}

// GalleryPhoto is an event photo shown on the public gallery
type GalleryPhoto struct {
	ID          string     `gorm:"primarykey;column:id" json:"id"`
	Title       string     `gorm:"column:title;not null" json:"title"`
	Description string     `gorm:"column:description" json:"description"`
	ImageURL    string     `gorm:"column:image_url;not null" json:"image_url"`
	Category    string     `gorm:"column:category;index" json:"category"`
	EventDate   *time.Time `gorm:"column:event_date" json:"event_date,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (GalleryPhoto) TableName() string {
	return "gallery"
}

// BeforeCreate assigns the photo id
func (g *GalleryPhoto) BeforeCreate(tx *gorm.DB) error {
	newID(&g.ID)
	return nil
}

// ContactStatus tracks triage of a contact message
type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusArchived ContactStatus = "archived"
)

// IsValid checks if the status is known
func (s ContactStatus) IsValid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusArchived:
		return true
	}
	return false
}

// Contact is a message submitted through the public contact form
type Contact struct {
	ID        string        `gorm:"primarykey;column:id" json:"id"`
	Name      string        `gorm:"column:name;not null" json:"name"`
	Email     string        `gorm:"column:email;not null" json:"email"`
	Subject   string        `gorm:"column:subject" json:"subject"`
	Message   string        `gorm:"column:message;not null" json:"message"`
	Status    ContactStatus `gorm:"column:status;not null;default:new" json:"status"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

// TableName sets the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// BeforeCreate assigns the contact id and initial status
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	if c.Status == "" {
		c.Status = ContactStatusNew
	}
	return nil
}

// RepositoryFile is a document kept in the members' file repository
type RepositoryFile struct {
	ID         string    `gorm:"primarykey;column:id" json:"id"`
	Name       string    `gorm:"column:name;not null" json:"name"`
	URL        string    `gorm:"column:url;not null" json:"url"`
	PublicID   string    `gorm:"column:public_id" json:"public_id"`
	Folder     string    `gorm:"column:folder;index" json:"folder"`
	Format     string    `gorm:"column:format" json:"format"`
	Size       int64     `gorm:"column:size" json:"size"`
	Department string    `gorm:"column:department;index" json:"department"`
	UploadedBy string    `gorm:"column:uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

// TableName sets the table name for GORM
func (RepositoryFile) TableName() string {
	return "repository_files"
}

// BeforeCreate assigns the file id
func (f *RepositoryFile) BeforeCreate(tx *gorm.DB) error {
	newID(&f.ID)
	return nil
}

// StoredUpload records which identity uploaded an asset. A repository file
// may only reference an asset its registrant uploaded.
type StoredUpload struct {
	PublicID   string    `gorm:"primarykey;column:public_id" json:"public_id"`
	URL        string    `gorm:"column:url" json:"url"`
	UploadedBy string    `gorm:"column:uploaded_by;index;not null" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
}

// TableName sets the table name for GORM
func (StoredUpload) TableName() string {
	return "stored_uploads"
}

// AllModels lists every table migrated at startup
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&WhitelistEntry{},
		&Report{},
		&GalleryPhoto{},
		&Contact{},
		&RepositoryFile{},
		&StoredUpload{},
	}
}
