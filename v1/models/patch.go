package models

import (
	"strings"
	"time"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
)

// Patches describe partial updates. The merge rule is the same for every
// entity: a nil field keeps the stored value, a non-nil field replaces it,
// and a non-nil empty string clears it unless the column is required.
// Apply mutates the target and returns only the columns whose value changed,
// ready for a column-restricted UPDATE.

// Changes maps column names to their new values
type Changes map[string]interface{}

// Has reports whether column is part of the change set
func (c Changes) Has(column string) bool {
	_, ok := c[column]
	return ok
}

// Columns returns the changed column names
func (c Changes) Columns() []string {
	cols := make([]string, 0, len(c))
	for k := range c {
		cols = append(cols, k)
	}
	return cols
}

func mergeString(changes Changes, column string, dst *string, src *string) {
	if src == nil || *dst == *src {
		return
	}
	*dst = *src
	changes[column] = *src
}

func mergeRequiredString(changes Changes, column string, dst *string, src *string) error {
	if src == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*src)
	if trimmed == "" {
		return apperrors.ValidationError("REQUIRED_FIELD", column+" cannot be empty")
	}
	mergeString(changes, column, dst, &trimmed)
	return nil
}

func mergeTime(changes Changes, column string, dst **time.Time, src *time.Time) {
	if src == nil {
		return
	}
	if *dst != nil && (*dst).Equal(*src) {
		return
	}
	t := *src
	*dst = &t
	changes[column] = t
}

// ProfilePatch is a partial update of a profile
type ProfilePatch struct {
	Email        *string       `json:"email,omitempty"`
	Role         *Role         `json:"role,omitempty"`
	FullName     *string       `json:"full_name,omitempty"`
	Department   *string       `json:"department,omitempty"`
	Position     *string       `json:"position,omitempty"`
	Degree       *string       `json:"degree,omitempty"`
	StudentYear  *string       `json:"student_year,omitempty"`
	Bio          *string       `json:"bio,omitempty"`
	AvatarURL    *string       `json:"avatar_url,omitempty"`
	LinkedInURL  *string       `json:"linkedin_url,omitempty"`
	AuthProvider *AuthProvider `json:"auth_provider,omitempty"`
}

// Apply merges the patch into p. Email and role cannot be cleared.
func (patch ProfilePatch) Apply(p *Profile) (Changes, error) {
	changes := Changes{}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if err := mergeRequiredString(changes, "email", &p.Email, &email); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil {
		if !patch.Role.IsValid() {
			return nil, apperrors.ValidationError("INVALID_ROLE", "role must be one of member, department_head, admin")
		}
		if p.Role != *patch.Role {
			p.Role = *patch.Role
			changes["role"] = *patch.Role
		}
	}
	if patch.AuthProvider != nil {
		if !patch.AuthProvider.IsValid() {
			return nil, apperrors.ValidationError("INVALID_AUTH_PROVIDER", "auth_provider must be one of local, sso, azure, google, github")
		}
		if p.AuthProvider != *patch.AuthProvider {
			p.AuthProvider = *patch.AuthProvider
			changes["auth_provider"] = *patch.AuthProvider
		}
	}

	mergeString(changes, "full_name", &p.FullName, patch.FullName)
	mergeString(changes, "department", &p.Department, patch.Department)
	mergeString(changes, "position", &p.Position, patch.Position)
	mergeString(changes, "degree", &p.Degree, patch.Degree)
	mergeString(changes, "student_year", &p.StudentYear, patch.StudentYear)
	mergeString(changes, "bio", &p.Bio, patch.Bio)
	mergeString(changes, "avatar_url", &p.AvatarURL, patch.AvatarURL)
	mergeString(changes, "linkedin_url", &p.LinkedInURL, patch.LinkedInURL)

	return changes, nil
}

// SelfPatch holds the profile fields a user may edit on their own profile
type SelfPatch struct {
	FullName    *string `json:"full_name,omitempty"`
	Degree      *string `json:"degree,omitempty"`
	StudentYear *string `json:"student_year,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
}

// ToProfilePatch widens a self patch into a profile patch
func (s SelfPatch) ToProfilePatch() ProfilePatch {
	return ProfilePatch{
		FullName:    s.FullName,
		Degree:      s.Degree,
		StudentYear: s.StudentYear,
		Bio:         s.Bio,
		AvatarURL:   s.AvatarURL,
		LinkedInURL: s.LinkedInURL,
	}
}

// ReportPatch is a partial update of a report
type ReportPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Category     *string    `json:"category,omitempty"`
	FileURL      *string    `json:"file_url,omitempty"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty"`
	Author       *string    `json:"author,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// Apply merges the patch into r. Title and category cannot be cleared.
func (patch ReportPatch) Apply(r *Report) (Changes, error) {
	changes := Changes{}
	if err := mergeRequiredString(changes, "title", &r.Title, patch.Title); err != nil {
		return nil, err
	}
	if err := mergeRequiredString(changes, "category", &r.Category, patch.Category); err != nil {
		return nil, err
	}
	mergeString(changes, "description", &r.Description, patch.Description)
	mergeString(changes, "file_url", &r.FileURL, patch.FileURL)
	mergeString(changes, "thumbnail_url", &r.ThumbnailURL, patch.ThumbnailURL)
	mergeString(changes, "author", &r.Author, patch.Author)
	mergeTime(changes, "published_at", &r.PublishedAt, patch.PublishedAt)
	return changes, nil
}

// GalleryPatch is a partial update of a gallery photo
type GalleryPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	Category    *string    `json:"category,omitempty"`
	EventDate   *time.Time `json:"event_date,omitempty"`
}

// Apply merges the patch into g. Title and image_url cannot be cleared.
func (patch GalleryPatch) Apply(g *GalleryPhoto) (Changes, error) {
	changes := Changes{}
	if err := mergeRequiredString(changes, "title", &g.Title, patch.Title); err != nil {
		return nil, err
	}
	if err := mergeRequiredString(changes, "image_url", &g.ImageURL, patch.ImageURL); err != nil {
		return nil, err
	}
	mergeString(changes, "description", &g.Description, patch.Description)
	mergeString(changes, "category", &g.Category, patch.Category)
	mergeTime(changes, "event_date", &g.EventDate, patch.EventDate)
	return changes, nil
}
