// Package asgardeo implements the identity provider contract against the
// Asgardeo SCIM2 API using client-credentials tokens.
package asgardeo

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

type Client struct {
	BaseURL     string
	OAuthConfig *clientcredentials.Config
	Client      *http.Client
}

// NewClient creates a SCIM2 client whose HTTP client fetches and refreshes
// its own access token.
func NewClient(baseURL string, clientID string, clientSecret string, scopes []string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	oauthConfig := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/oauth2/token",
		Scopes:       scopes,
	}

	return &Client{
		BaseURL:     baseURL,
		OAuthConfig: oauthConfig,
		Client:      oauthConfig.Client(context.Background()),
	}
}
