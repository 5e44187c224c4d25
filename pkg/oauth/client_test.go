package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetTokenSendsFormEncodedGrant(t *testing.T) {
	var form map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	token, err := client.GetToken(context.Background(), "client-1", "secret-1", ScopeManagementAPI)

	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
	assert.Equal(t, []string{"client_credentials"}, form["grant_type"])
	assert.Equal(t, []string{"client-1"}, form["client_id"])
	assert.Equal(t, []string{"secret-1"}, form["client_secret"])
	assert.Equal(t, []string{"management-api:write management-api:read"}, form["scope"])
}

func TestGetTokenFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.GetToken(context.Background(), "client-1", "wrong", ScopeManagementAPI)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestGetTokenFailsOnUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.GetToken(context.Background(), "client-1", "secret-1", ScopeManagementAPI)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestGetTokenNeverCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := client.GetToken(context.Background(), "client-1", "secret-1", ScopeManagementAPI)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, requests)
}
