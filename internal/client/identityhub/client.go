// Package identityhub implements the HTTP client for the identity hub
// identity API: participant contexts, verifiable credentials, and key pairs.
package identityhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/pkg/config"
	"github.com/Metaform/redline/pkg/oauth"
	"github.com/Metaform/redline/prometheus"
	"go.uber.org/zap"
)

const apiBase = "/api/identity/v1alpha1"

const system = "identity hub"

// ParticipantContext is the identity hub's view of a participant
type ParticipantContext struct {
	ID                   string         `json:"id"`
	ParticipantContextID string         `json:"participantContextId"`
	DID                  string         `json:"did"`
	APITokenAlias        string         `json:"apiTokenAlias,omitempty"`
	Roles                []string       `json:"roles,omitempty"`
	Properties           map[string]any `json:"properties,omitempty"`
	State                int            `json:"state"`
	CreatedAt            int64          `json:"createdAt"`
	LastModified         int64          `json:"lastModified"`
}

// CredentialResource is a verifiable credential held for a participant
type CredentialResource struct {
	ID                   string         `json:"id"`
	ParticipantContextID string         `json:"participantContextId"`
	HolderPid            string         `json:"holderPid,omitempty"`
	IssuerDid            string         `json:"issuerDid,omitempty"`
	Types                []string       `json:"types,omitempty"`
	State                int            `json:"state"`
	Credential           map[string]any `json:"verifiableCredential,omitempty"`
}

// CredentialDescriptor names a credential type and format to request
type CredentialDescriptor struct {
	CredentialType string `json:"credentialType"`
	Format         string `json:"format"`
}

// CredentialRequest asks an issuer for one or more credentials
type CredentialRequest struct {
	IssuerDid   string                 `json:"issuerDid"`
	HolderPid   string                 `json:"holderPid"`
	Credentials []CredentialDescriptor `json:"credentials"`
}

// KeyPairResource is a signing key pair bound to a participant context
type KeyPairResource struct {
	ID                   string `json:"id"`
	ParticipantContextID string `json:"participantContextId"`
	KeyID                string `json:"keyId"`
	State                int    `json:"state"`
	IsDefaultPair        bool   `json:"defaultPair"`
}

// KeyDescriptor describes a key pair to create or rotate to
type KeyDescriptor struct {
	KeyID              string         `json:"keyId"`
	Active             bool           `json:"active"`
	PrivateKeyAlias    string         `json:"privateKeyAlias,omitempty"`
	KeyGeneratorParams map[string]any `json:"keyGeneratorParams,omitempty"`
}

// Client talks to the identity hub identity API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth.TokenProvider
	log        *zap.Logger
}

// New creates an identity hub client
func New(cfg *config.IdentityHubConfig, tokens oauth.TokenProvider, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		log:        log,
	}
}

// ListParticipants returns all participant contexts
func (c *Client) ListParticipants(ctx context.Context, creds model.ClientCredentials) ([]ParticipantContext, error) {
	var contexts []ParticipantContext
	if err := c.do(ctx, creds, http.MethodGet, apiBase+"/participants", nil, &contexts); err != nil {
		return nil, err
	}
	return contexts, nil
}

// GetParticipant fetches a participant context by id
func (c *Client) GetParticipant(ctx context.Context, creds model.ClientCredentials, participantContextID string) (*ParticipantContext, error) {
	var participantContext ParticipantContext
	path := fmt.Sprintf("%s/participants/%s", apiBase, participantContextID)
	if err := c.do(ctx, creds, http.MethodGet, path, nil, &participantContext); err != nil {
		return nil, err
	}
	return &participantContext, nil
}

// QueryCredentials returns the credentials held for a participant context,
// optionally filtered by credential type
func (c *Client) QueryCredentials(ctx context.Context, creds model.ClientCredentials, participantContextID, credentialType string) ([]CredentialResource, error) {
	var credentials []CredentialResource
	path := fmt.Sprintf("%s/participants/%s/credentials", apiBase, participantContextID)
	if credentialType != "" {
		path += "?type=" + credentialType
	}
	if err := c.do(ctx, creds, http.MethodGet, path, nil, &credentials); err != nil {
		return nil, err
	}
	return credentials, nil
}

// RequestCredential asks the issuer for a credential on behalf of a
// participant context
func (c *Client) RequestCredential(ctx context.Context, creds model.ClientCredentials, participantContextID string, request CredentialRequest) error {
	path := fmt.Sprintf("%s/participants/%s/credentials/request", apiBase, participantContextID)
	return c.do(ctx, creds, http.MethodPost, path, request, nil)
}

// QueryKeyPairs returns the key pairs bound to a participant context
func (c *Client) QueryKeyPairs(ctx context.Context, creds model.ClientCredentials, participantContextID string) ([]KeyPairResource, error) {
	var keyPairs []KeyPairResource
	path := fmt.Sprintf("%s/participants/%s/keypairs", apiBase, participantContextID)
	if err := c.do(ctx, creds, http.MethodGet, path, nil, &keyPairs); err != nil {
		return nil, err
	}
	return keyPairs, nil
}

// AddKeyPair creates a new key pair for a participant context
func (c *Client) AddKeyPair(ctx context.Context, creds model.ClientCredentials, participantContextID string, descriptor KeyDescriptor, makeDefault bool) error {
	path := fmt.Sprintf("%s/participants/%s/keypairs?makeDefault=%t", apiBase, participantContextID, makeDefault)
	return c.do(ctx, creds, http.MethodPut, path, descriptor, nil)
}

// RotateKeyPair rotates an existing key pair to a new descriptor
func (c *Client) RotateKeyPair(ctx context.Context, creds model.ClientCredentials, participantContextID, keyPairID string, descriptor KeyDescriptor, duration int64) error {
	path := fmt.Sprintf("%s/participants/%s/keypairs/%s/rotate?duration=%d", apiBase, participantContextID, keyPairID, duration)
	return c.do(ctx, creds, http.MethodPost, path, descriptor, nil)
}

// RevokeKeyPair revokes a key pair
func (c *Client) RevokeKeyPair(ctx context.Context, creds model.ClientCredentials, participantContextID, keyPairID string, descriptor KeyDescriptor) error {
	path := fmt.Sprintf("%s/participants/%s/keypairs/%s/revoke", apiBase, participantContextID, keyPairID)
	return c.do(ctx, creds, http.MethodPost, path, descriptor, nil)
}

func (c *Client) do(ctx context.Context, creds model.ClientCredentials, method, path string, body, out any) error {
	token, err := c.tokens.GetToken(ctx, creds.ClientID, creds.ClientSecret, oauth.ScopeManagementAPI)
	if err != nil {
		return err
	}

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
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		prometheus.RecordGatewayCall(system, "failure")
		c.log.Error("Identity hub request failed",
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
		return fmt.Errorf("could not parse identity hub response: %w", err)
	}
	return nil
}
