package asgardeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
)

const (
	scimContentType = "application/scim+json"
	patchOpSchema   = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
	metricsTarget   = "asgardeo-scim"
)

type scimEmail struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

type scimName struct {
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
}

type createUserRequestBody struct {
	UserName string      `json:"userName"`
	Password string      `json:"password,omitempty"`
	Emails   []scimEmail `json:"emails"`
	Name     scimName    `json:"name"`
	Schema   interface{} `json:"urn:scim:wso2:schema,omitempty"`
}

type patchOperation struct {
	Op    string                 `json:"op"`
	Value map[string]interface{} `json:"value"`
}

type patchRequestBody struct {
	Schemas    []string         `json:"schemas"`
	Operations []patchOperation `json:"Operations"`
}

type userResponseBody struct {
	ID       string          `json:"id"`
	UserName string          `json:"userName"`
	Emails   json.RawMessage `json:"emails"`
	Name     scimName        `json:"name"`
}

// emails may come back as plain strings or as {value, primary} objects
func (r *userResponseBody) primaryEmail() string {
	var plain []string
	if err := json.Unmarshal(r.Emails, &plain); err == nil && len(plain) > 0 {
		return plain[0]
	}
	var objects []scimEmail
	if err := json.Unmarshal(r.Emails, &objects); err == nil {
		for _, e := range objects {
			if e.Primary {
				return e.Value
			}
		}
		if len(objects) > 0 {
			return objects[0].Value
		}
	}
	return strings.TrimPrefix(r.UserName, "DEFAULT/")
}

func (r *userResponseBody) toUserInfo() *idp.UserInfo {
	return &idp.UserInfo{
		Id:             r.ID,
		Email:          r.primaryEmail(),
		FullName:       strings.TrimSpace(r.Name.GivenName + " " + r.Name.FamilyName),
		EmailConfirmed: true,
	}
}

func splitName(full string) scimName {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return scimName{GivenName: full[:i], FamilyName: full[i+1:]}
	}
	return scimName{GivenName: full}
}

func (a *Client) send(ctx context.Context, operation, method, path string, body interface{}, expected int, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordExternalCall(ctx, metricsTarget, operation, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		payload, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("failed to marshal request body: %w", marshalErr)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", scimContentType)
	}

	res, err := a.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != expected {
		var scimErr struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&scimErr)
		return &idp.ProviderError{Operation: operation, StatusCode: res.StatusCode, Message: scimErr.Detail}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func userPath(userID string) string {
	return "/scim2/Users/" + url.PathEscape(userID)
}

func (a *Client) GetUser(ctx context.Context, userID string) (*idp.UserInfo, error) {
	var response userResponseBody
	if err := a.send(ctx, "get user", http.MethodGet, userPath(userID), nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.toUserInfo(), nil
}

// CreateUser creates a SCIM user. Without a password, Asgardeo emails the
// user an invitation to set one.
func (a *Client) CreateUser(ctx context.Context, user *idp.User) (*idp.UserInfo, error) {
	body := createUserRequestBody{
		UserName: fmt.Sprintf("DEFAULT/%s", user.Email),
		Password: user.Password,
		Emails:   []scimEmail{{Value: user.Email, Primary: true}},
		Name:     splitName(user.FullName),
	}
	if user.Password == "" {
		body.Schema = map[string]interface{}{"askPassword": true}
	}

	var response userResponseBody
	if err := a.send(ctx, "create user", http.MethodPost, "/scim2/Users", body, http.StatusCreated, &response); err != nil {
		return nil, err
	}
	return response.toUserInfo(), nil
}

// UpdateUser replaces the email and/or password with a SCIM PATCH
func (a *Client) UpdateUser(ctx context.Context, userID string, update *idp.UserUpdate) (*idp.UserInfo, error) {
	if update.IsEmpty() {
		return a.GetUser(ctx, userID)
	}

	value := map[string]interface{}{}
	if update.Email != nil {
		value["emails"] = []scimEmail{{Value: *update.Email, Primary: true}}
	}
	if update.Password != nil {
		value["password"] = *update.Password
	}

	body := patchRequestBody{
		Schemas:    []string{patchOpSchema},
		Operations: []patchOperation{{Op: "replace", Value: value}},
	}

	var response userResponseBody
	if err := a.send(ctx, "update user", http.MethodPatch, userPath(userID), body, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.toUserInfo(), nil
}

func (a *Client) DeleteUser(ctx context.Context, userID string) error {
	return a.send(ctx, "delete user", http.MethodDelete, userPath(userID), nil, http.StatusNoContent, nil)
}
