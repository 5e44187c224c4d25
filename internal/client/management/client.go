// Package management implements the HTTP client for the connector control
// plane management API. Every call is authorized with a freshly minted
// bearer token for the credentials the caller supplies.
package management

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

const system = "control plane"

// NewCelExpression creates a CEL-based authorization expression
type NewCelExpression struct {
	ID          string   `json:"id"`
	Expression  string   `json:"expression"`
	LeftOperand string   `json:"leftOperand"`
	Description string   `json:"description,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
}

// NewAsset creates an asset scoped to a participant context
type NewAsset struct {
	ID                string            `json:"id"`
	Properties        map[string]string `json:"properties,omitempty"`
	PrivateProperties map[string]string `json:"privateProperties,omitempty"`
	DataAddress       map[string]string `json:"dataAddress,omitempty"`
}

// Constraint restricts a policy permission
type Constraint struct {
	LeftOperand  string `json:"leftOperand"`
	Operator     string `json:"operator"`
	RightOperand string `json:"rightOperand"`
}

// Permission grants an action under constraints
type Permission struct {
	Action      string       `json:"action"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// PolicySet is the body of a policy definition
type PolicySet struct {
	Permissions []Permission `json:"permissions"`
}

// NewPolicyDefinition creates a policy definition under a deterministic id
type NewPolicyDefinition struct {
	ID     string    `json:"id"`
	Policy PolicySet `json:"policy"`
}

// Criterion selects assets for a contract definition
type Criterion struct {
	OperandLeft  string `json:"operandLeft"`
	Operator     string `json:"operator"`
	OperandRight string `json:"operandRight"`
}

// NewContractDefinition links an access and contract policy to a set of assets
type NewContractDefinition struct {
	ID               string      `json:"id"`
	AccessPolicyID   string      `json:"accessPolicyId"`
	ContractPolicyID string      `json:"contractPolicyId"`
	AssetsSelector   []Criterion `json:"assetsSelector"`
}

// DataplaneRegistration announces a data plane to the control plane
type DataplaneRegistration struct {
	URL                  string   `json:"url"`
	AllowedSourceTypes   []string `json:"allowedSourceTypes,omitempty"`
	AllowedTransferTypes []string `json:"allowedTransferTypes,omitempty"`
}

// ContractRequest starts a contract negotiation for an offered asset
type ContractRequest struct {
	AssetID             string       `json:"assetId"`
	OfferID             string       `json:"offerId"`
	ProviderID          string       `json:"providerId"`
	CounterPartyAddress string       `json:"counterPartyAddress,omitempty"`
	Permissions         []Permission `json:"permissions,omitempty"`
	Prohibitions        []Permission `json:"prohibitions,omitempty"`
	Obligations         []Permission `json:"obligations,omitempty"`
}

// IDResponse carries the id the control plane assigned to a created resource
type IDResponse struct {
	ID string `json:"@id"`
}

// Negotiation is the state of a contract negotiation
type Negotiation struct {
	ID                  string `json:"@id"`
	State               string `json:"state"`
	ContractAgreementID string `json:"contractAgreementId,omitempty"`
}

// Client talks to the control plane management API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth.TokenProvider
	log        *zap.Logger
}

// New creates a control plane management client
func New(cfg *config.ControlPlaneConfig, tokens oauth.TokenProvider, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		log:        log,
	}
}

// CreateCelExpression creates a CEL authorization expression. The caller
// supplies administrative credentials; there is no participant scope for
// this operation.
func (c *Client) CreateCelExpression(ctx context.Context, creds model.ClientCredentials, expression NewCelExpression) error {
	return c.do(ctx, creds, http.MethodPost, "/celexpressions", expression, nil)
}

// CreateAsset creates an asset in the given participant context
func (c *Client) CreateAsset(ctx context.Context, creds model.ClientCredentials, participantContextID string, asset NewAsset) error {
	path := fmt.Sprintf("/participants/%s/assets", participantContextID)
	return c.do(ctx, creds, http.MethodPost, path, asset, nil)
}

// CreatePolicyDefinition creates a policy definition in the given
// participant context. A conflict response means the policy already exists.
func (c *Client) CreatePolicyDefinition(ctx context.Context, creds model.ClientCredentials, participantContextID string, policy NewPolicyDefinition) error {
	path := fmt.Sprintf("/participants/%s/policydefinitions", participantContextID)
	return c.do(ctx, creds, http.MethodPost, path, policy, nil)
}

// CreateContractDefinition creates a contract definition in the given
// participant context. A conflict response means the definition already
// exists.
func (c *Client) CreateContractDefinition(ctx context.Context, creds model.ClientCredentials, participantContextID string, definition NewContractDefinition) error {
	path := fmt.Sprintf("/participants/%s/contractdefinitions", participantContextID)
	return c.do(ctx, creds, http.MethodPost, path, definition, nil)
}

// RegisterDataplane announces a data plane for the given participant context
func (c *Client) RegisterDataplane(ctx context.Context, creds model.ClientCredentials, participantContextID string, registration DataplaneRegistration) error {
	path := fmt.Sprintf("/dataplanes/%s", participantContextID)
	return c.do(ctx, creds, http.MethodPost, path, registration, nil)
}

// RequestContractNegotiation starts a negotiation and returns its id
func (c *Client) RequestContractNegotiation(ctx context.Context, creds model.ClientCredentials, participantContextID string, request ContractRequest) (*IDResponse, error) {
	var response IDResponse
	path := fmt.Sprintf("/participants/%s/contractnegotiations", participantContextID)
	if err := c.do(ctx, creds, http.MethodPost, path, request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetContractNegotiation fetches the current state of a negotiation
func (c *Client) GetContractNegotiation(ctx context.Context, creds model.ClientCredentials, participantContextID, negotiationID string) (*Negotiation, error) {
	var negotiation Negotiation
	path := fmt.Sprintf("/participants/%s/contractnegotiations/%s", participantContextID, negotiationID)
	if err := c.do(ctx, creds, http.MethodGet, path, nil, &negotiation); err != nil {
		return nil, err
	}
	return &negotiation, nil
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
		c.log.Error("Control plane request failed",
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
		return fmt.Errorf("could not parse control plane response: %w", err)
	}
	return nil
}
