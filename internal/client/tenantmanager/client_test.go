package tenantmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(url string) *Client {
	return New(&config.TenantManagerConfig{URL: url}, zap.NewNop())
}

func TestCreateTenant(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody TenantCreationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"T1","version":0,"properties":{"name":"acme"}}`))
	}))
	defer server.Close()

	tenant, err := newTestClient(server.URL).CreateTenant(context.Background(), TenantCreationRequest{
		Properties: map[string]string{"name": "acme"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/v1alpha1/tenants", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "acme", gotBody.Properties["name"])
	assert.Equal(t, "T1", tenant.ID)
	assert.Equal(t, int64(0), tenant.Version)
}

func TestCreateParticipantProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1alpha1/tenants/T1/participant-profiles", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "P1",
			"version": 0,
			"identifier": "did:web:acme",
			"tenantId": "T1",
			"error": false,
			"vpas": [
				{"id": "v1", "version": 0, "state": "pending", "type": "cfm.connector", "cellId": "c1"},
				{"id": "v2", "version": 0, "state": "pending", "type": "cfm.dataplane", "cellId": "c1"}
			]
		}`))
	}))
	defer server.Close()

	profile, err := newTestClient(server.URL).CreateParticipantProfile(context.Background(), "T1", ParticipantProfile{
		ID:         "local-id",
		Identifier: "did:web:acme",
		TenantID:   "T1",
	})

	require.NoError(t, err)
	assert.Equal(t, "P1", profile.ID)
	assert.Equal(t, "did:web:acme", profile.Identifier)
	require.Len(t, profile.VPAs, 2)
	assert.Equal(t, "cfm.connector", profile.VPAs[0].Type)
	assert.Equal(t, "pending", profile.VPAs[0].State)
}

func TestGetTenantReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such tenant", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTenant(context.Background(), "nope")

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "tenant manager", statusErr.System)
}

func TestUpdateTenantPatchesProperties(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1alpha1/tenants/T1", r.URL.Path)
		w.Write([]byte(`{"id":"T1","version":1,"properties":{"name":"acme","tier":"gold"}}`))
	}))
	defer server.Close()

	tenant, err := newTestClient(server.URL).UpdateTenant(context.Background(), "T1", TenantPropertiesDiff{
		Added: map[string]string{"tier": "gold"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), tenant.Version)
	assert.Equal(t, "gold", tenant.Properties["tier"])
}

func TestGetDataspaceProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1alpha1/dataspace-profiles/dsp-1", r.URL.Path)
		w.Write([]byte(`{"id":"dsp-1","version":0,"name":"mobility","participantRoles":["provider","consumer"]}`))
	}))
	defer server.Close()

	profile, err := newTestClient(server.URL).GetDataspaceProfile(context.Background(), "dsp-1")

	require.NoError(t, err)
	assert.Equal(t, "mobility", profile.Name)
	assert.Contains(t, profile.ParticipantRoles, "provider")
}
