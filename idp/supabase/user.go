package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gmaiocc/itic-website-sub000/idp"
)

type createUserRequestBody struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password,omitempty"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	AppMetadata  map[string]interface{} `json:"app_metadata,omitempty"`
}

type updateUserRequestBody struct {
	Email        *string `json:"email,omitempty"`
	Password     *string `json:"password,omitempty"`
	EmailConfirm bool    `json:"email_confirm,omitempty"`
}

type userResponseBody struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *string                `json:"email_confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

func (r *userResponseBody) toUserInfo() *idp.UserInfo {
	info := &idp.UserInfo{
		Id:             r.ID,
		Email:          r.Email,
		EmailConfirmed: r.EmailConfirmedAt != nil && *r.EmailConfirmedAt != "",
	}
	if name, ok := r.UserMetadata["full_name"].(string); ok {
		info.FullName = name
	}
	return info
}

func userPath(userID string) string {
	return "/auth/v1/admin/users/" + url.PathEscape(userID)
}

// CreateUser creates an identity. EmailConfirmed skips the confirmation email.
func (c *Client) CreateUser(ctx context.Context, user *idp.User) (*idp.UserInfo, error) {
	body := createUserRequestBody{
		Email:        user.Email,
		Password:     user.Password,
		EmailConfirm: user.EmailConfirmed,
		AppMetadata:  user.AppMetadata,
	}
	if user.FullName != "" {
		body.UserMetadata = map[string]interface{}{"full_name": user.FullName}
	}

	var response userResponseBody
	if err := c.do(ctx, "create user", http.MethodPost, "/auth/v1/admin/users", body, &response); err != nil {
		return nil, err
	}
	if response.ID == "" {
		return nil, fmt.Errorf("failed to create user: provider returned no id")
	}
	return response.toUserInfo(), nil
}

// GetUser fetches an identity by id
func (c *Client) GetUser(ctx context.Context, userID string) (*idp.UserInfo, error) {
	var response userResponseBody
	if err := c.do(ctx, "get user", http.MethodGet, userPath(userID), nil, &response); err != nil {
		return nil, err
	}
	return response.toUserInfo(), nil
}

// UpdateUser changes the email and/or password of an identity. A changed
// email is confirmed immediately, matching admin-created accounts.
func (c *Client) UpdateUser(ctx context.Context, userID string, update *idp.UserUpdate) (*idp.UserInfo, error) {
	if update.IsEmpty() {
		return c.GetUser(ctx, userID)
	}

	body := updateUserRequestBody{
		Email:        update.Email,
		Password:     update.Password,
		EmailConfirm: update.Email != nil,
	}

	var response userResponseBody
	if err := c.do(ctx, "update user", http.MethodPut, userPath(userID), body, &response); err != nil {
		return nil, err
	}
	return response.toUserInfo(), nil
}

// DeleteUser removes an identity
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, "delete user", http.MethodDelete, userPath(userID), nil, nil)
}
