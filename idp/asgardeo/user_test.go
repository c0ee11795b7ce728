package asgardeo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gmaiocc/itic-website-sub000/idp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(server *httptest.Server) *Client {
	return &Client{BaseURL: server.URL, Client: server.Client()}
}

func TestCreateUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scim2/Users", r.URL.Path)
		assert.Equal(t, scimContentType, r.Header.Get("Content-Type"))

		var body createUserRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "DEFAULT/rui@itic.pt", body.UserName)
		assert.Equal(t, "Rui", body.Name.GivenName)
		assert.Equal(t, "Costa", body.Name.FamilyName)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"scim-1","userName":"DEFAULT/rui@itic.pt","emails":["rui@itic.pt"],"name":{"givenName":"Rui","familyName":"Costa"}}`))
	}))
	defer server.Close()

	info, err := newTestClient(server).CreateUser(context.Background(), &idp.User{
		Email: "rui@itic.pt", Password: "secret123", FullName: "Rui Costa",
	})
	require.NoError(t, err)
	assert.Equal(t, "scim-1", info.Id)
	assert.Equal(t, "rui@itic.pt", info.Email)
	assert.Equal(t, "Rui Costa", info.FullName)
}

func TestUpdateUser_Patch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body patchRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Operations, 1)
		assert.Equal(t, "replace", body.Operations[0].Op)
		assert.Equal(t, "n3w-password", body.Operations[0].Value["password"])

		_, _ = w.Write([]byte(`{"id":"scim-1","emails":[{"value":"rui@itic.pt","primary":true}]}`))
	}))
	defer server.Close()

	password := "n3w-password"
	info, err := newTestClient(server).UpdateUser(context.Background(), "scim-1", &idp.UserUpdate{Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "rui@itic.pt", info.Email)
}

func TestDeleteUser_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"User not found"}`))
	}))
	defer server.Close()

	err := newTestClient(server).DeleteUser(context.Background(), "scim-404")
	assert.True(t, errors.Is(err, idp.ErrUserNotFound))
	assert.Contains(t, err.Error(), "User not found")
}
