package models

import "time"

// Profile is the application record for a person, keyed by identity id
type Profile struct {
	ID           string       `gorm:"primarykey;column:id" json:"id"`
	Email        string       `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FullName     string       `gorm:"column:full_name" json:"full_name"`
	Role         Role         `gorm:"column:role;not null;default:member" json:"role"`
	Department   string       `gorm:"column:department;index" json:"department"`
	Position     string       `gorm:"column:position" json:"position"`
	Degree       string       `gorm:"column:degree" json:"degree"`
	StudentYear  string       `gorm:"column:student_year" json:"student_year"`
	Bio          string       `gorm:"column:bio" json:"bio"`
	AvatarURL    string       `gorm:"column:avatar_url" json:"avatar_url"`
	LinkedInURL  string       `gorm:"column:linkedin_url" json:"linkedin_url"`
	AuthProvider AuthProvider `gorm:"column:auth_provider;not null;default:local" json:"auth_provider"`
	BaseModel
}

// TableName sets the table name for GORM
func (Profile) TableName() string {
	return "user_profiles"
}

// TeamMember is the public roster view of a profile. Email is withheld.
type TeamMember struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Department  string    `json:"department"`
	Position    string    `json:"position"`
	Degree      string    `json:"degree"`
	StudentYear string    `json:"student_year"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	LinkedInURL string    `json:"linkedin_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToTeamMember converts a profile into its public roster view
func (p *Profile) ToTeamMember() TeamMember {
	return TeamMember{
		ID:          p.ID,
		FullName:    p.FullName,
		Department:  p.Department,
		Position:    p.Position,
		Degree:      p.Degree,
		StudentYear: p.StudentYear,
		Bio:         p.Bio,
		AvatarURL:   p.AvatarURL,
		LinkedInURL: p.LinkedInURL,
		CreatedAt:   p.CreatedAt,
	}
}
