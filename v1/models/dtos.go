package models

import "time"

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	Role         Role         `json:"role"`
	FullName     string       `json:"full_name,omitempty"`
	Department   string       `json:"department,omitempty"`
	Position     string       `json:"position,omitempty"`
	Degree       string       `json:"degree,omitempty"`
	StudentYear  string       `json:"student_year,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	LinkedInURL  string       `json:"linkedin_url,omitempty"`
	AuthProvider AuthProvider `json:"auth_provider,omitempty"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Password only reaches
// the identity provider; every other field is a profile patch.
type UpdateUserRequest struct {
	ProfilePatch
	Password *string `json:"password,omitempty"`
}

// ListUsersFilter narrows GET /users
type ListUsersFilter struct {
	Department string
	Role       Role
}

// CreateWhitelistRequest is the body of POST /whitelist
type CreateWhitelistRequest struct {
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position"`
	Degree      string `json:"degree,omitempty"`
	StudentYear string `json:"student_year,omitempty"`
}

// WhitelistCheckResponse is the public answer to GET /whitelist/check
type WhitelistCheckResponse struct {
	Whitelisted bool   `json:"whitelisted"`
	Role        Role   `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position,omitempty"`
}

// ListReportsQuery carries the GET /reports query parameters
type ListReportsQuery struct {
	Category string
	Search   string
	SortBy   string
	Order    string
}

// CreateReportRequest is the body of POST /reports
type CreateReportRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Category     string     `json:"category"`
	FileURL      string     `json:"file_url,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// CreateGalleryPhotoRequest is the body of POST /gallery
type CreateGalleryPhotoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url"`
	Category    string     `json:"category,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
}

// ContactRequest is the body of POST /contact
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// SuccessResponse acknowledges a submission or deletion
type SuccessResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// UpdateContactStatusRequest is the body of PATCH /contact/{id}
type UpdateContactStatusRequest struct {
	Status ContactStatus `json:"status"`
}

// CreateFileRequest registers an uploaded file in the repository
type CreateFileRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	PublicID   string `json:"public_id,omitempty"`
	Folder     string `json:"folder,omitempty"`
	Format     string `json:"format,omitempty"`
	Size       int64  `json:"size,omitempty"`
	Department string `json:"department,omitempty"`
}

// ListFilesFilter narrows GET /files
type ListFilesFilter struct {
	Folder     string
	Department string
}

// UploadRequest is the body of POST /upload. File is base64, optionally
// wrapped in a data URI.
type UploadRequest struct {
	File   string `json:"file"`
	Type   string `json:"type,omitempty"`
	Folder string `json:"folder,omitempty"`
}

// UploadResponse describes a stored asset
type UploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
	Format   string `json:"format"`
	Size     int    `json:"size"`
}

// CollectionResponse is the envelope for list endpoints
type CollectionResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewCollection builds a list envelope; a nil slice is encoded as []
func NewCollection[T any](items []T) CollectionResponse[T] {
	if items == nil {
		items = []T{}
	}
	return CollectionResponse[T]{Items: items, Total: len(items)}
}
