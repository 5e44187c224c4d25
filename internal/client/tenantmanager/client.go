// Package tenantmanager implements the HTTP client for the fleet/tenant
// manager v1alpha1 API. Calls against this API are not authenticated.
package tenantmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/pkg/config"
	"github.com/Metaform/redline/prometheus"
	"go.uber.org/zap"
)

const apiBase = "/api/v1alpha1"

const system = "tenant manager"

// Tenant is the fleet manager's view of a tenant
type Tenant struct {
	ID         string            `json:"id"`
	Version    int64             `json:"version"`
	Properties map[string]string `json:"properties"`
}

// TenantCreationRequest creates a tenant from a property bag
type TenantCreationRequest struct {
	Properties map[string]string `json:"properties"`
}

// TenantPropertiesDiff patches a tenant's property bag
type TenantPropertiesDiff struct {
	Added   map[string]string `json:"added,omitempty"`
	Removed []string          `json:"removed,omitempty"`
}

// VirtualParticipantAgent describes one deployed capability of a profile
type VirtualParticipantAgent struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	State   string `json:"state"`
	Type    string `json:"type"`
	CellID  string `json:"cellId"`
}

// ParticipantProfile is the fleet manager's view of a participant
type ParticipantProfile struct {
	ID               string                    `json:"id"`
	Version          int64                     `json:"version"`
	Identifier       string                    `json:"identifier"`
	TenantID         string                    `json:"tenantId"`
	Error            bool                      `json:"error"`
	ErrorDetail      string                    `json:"errorDetail,omitempty"`
	ParticipantRoles map[string][]string       `json:"participantRoles,omitempty"`
	Properties       map[string]any            `json:"properties,omitempty"`
	VPAs             []VirtualParticipantAgent `json:"vpas"`
}

// Cell is a deployment cell managed by the fleet manager
type Cell struct {
	ID         string         `json:"id"`
	Version    int64          `json:"version"`
	State      string         `json:"state"`
	ExternalID string         `json:"externalId"`
	Properties map[string]any `json:"properties"`
}

// CellCreationRequest registers a new cell
type CellCreationRequest struct {
	State      string         `json:"state"`
	ExternalID string         `json:"externalId"`
	Properties map[string]any `json:"properties"`
}

// DataspaceProfile describes a dataspace's supported agreement types and roles
type DataspaceProfile struct {
	ID               string         `json:"id"`
	Version          int64          `json:"version"`
	Name             string         `json:"name"`
	AgreementTypes   []string       `json:"agreementTypes,omitempty"`
	ParticipantRoles []string       `json:"participantRoles,omitempty"`
	Properties       map[string]any `json:"properties,omitempty"`
}

// Client talks to the fleet/tenant manager API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// New creates a tenant manager client
func New(cfg *config.TenantManagerConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// CreateTenant provisions a tenant remotely and returns its assigned id
func (c *Client) CreateTenant(ctx context.Context, req TenantCreationRequest) (*Tenant, error) {
	var tenant Tenant
	if err := c.do(ctx, http.MethodPost, apiBase+"/tenants", req, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// GetTenant fetches a tenant by its fleet manager id
func (c *Client) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	var tenant Tenant
	if err := c.do(ctx, http.MethodGet, apiBase+"/tenants/"+id, nil, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// UpdateTenant patches a tenant's property bag
func (c *Client) UpdateTenant(ctx context.Context, id string, diff TenantPropertiesDiff) (*Tenant, error) {
	var tenant Tenant
	if err := c.do(ctx, http.MethodPatch, apiBase+"/tenants/"+id, diff, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

// CreateParticipantProfile deploys a participant profile under a tenant.
// The response carries the assigned correlation id, the final identifier
// (which may differ from the requested one), and the VPA list.
func (c *Client) CreateParticipantProfile(ctx context.Context, tenantID string, profile ParticipantProfile) (*ParticipantProfile, error) {
	var created ParticipantProfile
	path := fmt.Sprintf("%s/tenants/%s/participant-profiles", apiBase, tenantID)
	if err := c.do(ctx, http.MethodPost, path, profile, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetParticipantProfile fetches a participant profile
func (c *Client) GetParticipantProfile(ctx context.Context, tenantID, participantID string) (*ParticipantProfile, error) {
	var profile ParticipantProfile
	path := fmt.Sprintf("%s/tenants/%s/participant-profiles/%s", apiBase, tenantID, participantID)
	if err := c.do(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DeleteParticipantProfile removes a participant profile and returns its
// last known state
func (c *Client) DeleteParticipantProfile(ctx context.Context, tenantID, participantID string) (*ParticipantProfile, error) {
	var profile ParticipantProfile
	path := fmt.Sprintf("%s/tenants/%s/participant-profiles/%s", apiBase, tenantID, participantID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateCell registers a deployment cell
func (c *Client) CreateCell(ctx context.Context, req CellCreationRequest) (*Cell, error) {
	var cell Cell
	if err := c.do(ctx, http.MethodPost, apiBase+"/cells", req, &cell); err != nil {
		return nil, err
	}
	return &cell, nil
}

// ListCells returns all known deployment cells
func (c *Client) ListCells(ctx context.Context) ([]Cell, error) {
	var cells []Cell
	if err := c.do(ctx, http.MethodGet, apiBase+"/cells", nil, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// GetDataspaceProfile fetches a dataspace profile by id
func (c *Client) GetDataspaceProfile(ctx context.Context, id string) (*DataspaceProfile, error) {
	var profile DataspaceProfile
	if err := c.do(ctx, http.MethodGet, apiBase+"/dataspace-profiles/"+id, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		prometheus.RecordGatewayCall(system, "failure")
		c.log.Error("Tenant manager request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &client.TransportError{System: system, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		prometheus.RecordGatewayCall(system, "failure")
		responseBody, _ := io.ReadAll(resp.Body)
		return &client.StatusError{System: system, StatusCode: resp.StatusCode, Body: string(responseBody)}
	}
	prometheus.RecordGatewayCall(system, "success")

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse tenant manager response: %w", err)
	}
	return nil
}
