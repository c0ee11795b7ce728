// Package idp defines the contract for the remote identity provider that owns credentials
package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ProviderType names a supported identity provider
type ProviderType string

const (
	ProviderSupabase ProviderType = "supabase"
	ProviderAsgardeo ProviderType = "asgardeo"
)

// IdentityProviderAPI is the admin surface of an identity provider
type IdentityProviderAPI interface {
	UserManager
}

// UserManager manages identities on behalf of administrators
type UserManager interface {
	CreateUser(ctx context.Context, user *User) (*UserInfo, error)
	GetUser(ctx context.Context, userID string) (*UserInfo, error)
	UpdateUser(ctx context.Context, userID string, update *UserUpdate) (*UserInfo, error)
	DeleteUser(ctx context.Context, userID string) error
}

// User is a new identity to be created
type User struct {
	Email          string
	Password       string
	FullName       string
	EmailConfirmed bool
	AppMetadata    map[string]interface{}
}

// UserUpdate changes credential fields of an identity. Nil fields are untouched.
type UserUpdate struct {
	Email    *string
	Password *string
}

// IsEmpty reports whether the update changes nothing
func (u *UserUpdate) IsEmpty() bool {
	return u == nil || (u.Email == nil && u.Password == nil)
}

// UserInfo is an identity as reported by the provider
type UserInfo struct {
	Id             string
	Email          string
	FullName       string
	EmailConfirmed bool
}

// ErrUserNotFound is returned when the provider has no identity with the given id
var ErrUserNotFound = errors.New("identity not found")

// ProviderError carries a non-success response from the provider
type ProviderError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("failed to %s, status code: %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("failed to %s, status code: %d", e.Operation, e.StatusCode)
}

// Is lets errors.Is(err, ErrUserNotFound) match provider 404s
func (e *ProviderError) Is(target error) bool {
	return target == ErrUserNotFound && e.StatusCode == http.StatusNotFound
}
