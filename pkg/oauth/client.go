package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ScopeManagementAPI lists the capabilities requested for calls against the
// management API family.
const ScopeManagementAPI = "management-api:write management-api:read"

// TokenProvider mints bearer tokens for a set of client credentials.
type TokenProvider interface {
	GetToken(ctx context.Context, clientID, clientSecret, scopes string) (string, error)
}

// AuthenticationError indicates that the token endpoint rejected the
// client-credentials grant or returned an unusable body.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("token request failed: %s", e.Message)
}

// TokenResponse represents the response from the OAuth token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Client performs the client-credentials grant against a token endpoint.
// Tokens are never cached: every call mints a fresh one.
type Client struct {
	TokenURL   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a new token client for the given endpoint
func NewClient(tokenURL string, logger *zap.Logger) *Client {
	return &Client{
		TokenURL:   tokenURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// GetToken obtains an access token using the client credentials grant.
// The credentials travel in the form body, not in a Basic header.
func (c *Client) GetToken(ctx context.Context, clientID, clientSecret, scopes string) (string, error) {
	c.Logger.Debug("Requesting client credentials token",
		zap.String("client_id", clientID),
		zap.String("scope", scopes))

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)
	data.Set("scope", scopes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Error("Token request failed", zap.Error(err))
		return "", &AuthenticationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthenticationError{StatusCode: resp.StatusCode, Message: "failed to read token response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.Logger.Error("Token endpoint returned error",
			zap.Int("status_code", resp.StatusCode),
			zap.String("client_id", clientID))
		return "", &AuthenticationError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		c.Logger.Error("Failed to parse token response", zap.Error(err))
		return "", &AuthenticationError{StatusCode: resp.StatusCode, Message: "unparseable token response"}
	}

	return tokenResp.AccessToken, nil
}
