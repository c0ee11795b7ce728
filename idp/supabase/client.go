// Package supabase implements the identity provider contract against the
// Supabase auth (GoTrue) admin API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/gmaiocc/itic-website-sub000/pkg/monitoring"
)

const metricsTarget = "supabase-auth"

// Client calls the auth admin endpoints with the service-role key
type Client struct {
	BaseURL    string
	serviceKey string
	Client     *http.Client
}

// NewClient creates a client for the project at baseURL
func NewClient(baseURL, serviceRoleKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceRoleKey,
		Client:     httpClient,
	}
}

// errorBody covers the error shapes GoTrue returns across versions
type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorBody) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do sends a JSON request and decodes a 2xx response into out
func (c *Client) do(ctx context.Context, operation, method, path string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordExternalCall(ctx, metricsTarget, operation, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&eb)
		return &idp.ProviderError{Operation: operation, StatusCode: res.StatusCode, Message: eb.text()}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
