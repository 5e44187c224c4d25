// Package dataplane implements the HTTP client for the data plane control
// and public APIs: multipart upload of file content plus metadata, and
// download of published files.
package dataplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/Metaform/redline/internal/client"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/pkg/config"
	"github.com/Metaform/redline/pkg/oauth"
	"github.com/Metaform/redline/prometheus"
	"go.uber.org/zap"
)

const system = "data plane"

// UploadResponse carries the externally assigned file id
type UploadResponse struct {
	ID string `json:"id"`
}

// Client talks to the data plane APIs
type Client struct {
	publicURL   string
	internalURL string
	httpClient  *http.Client
	tokens      oauth.TokenProvider
	log         *zap.Logger
}

// New creates a data plane client
func New(cfg *config.DataPlaneConfig, tokens oauth.TokenProvider, log *zap.Logger) *Client {
	return &Client{
		publicURL:   cfg.PublicURL,
		internalURL: cfg.InternalURL,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		tokens:      tokens,
		log:         log,
	}
}

// Upload sends the file bytes plus metadata as a multipart request and
// returns the assigned file id. Metadata entries become individual form
// fields; the file travels as the "file" part.
func (c *Client) Upload(ctx context.Context, creds model.ClientCredentials, metadata map[string]string, fileName, contentType string, data io.Reader) (*UploadResponse, error) {
	token, err := c.tokens.GetToken(ctx, creds.ClientID, creds.ClientSecret, oauth.ScopeManagementAPI)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range metadata {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}

	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	} else {
		partHeader.Set("Content-Type", "application/octet-stream")
	}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.internalURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		prometheus.RecordGatewayCall(system, "failure")
		c.log.Error("Data plane upload failed", zap.String("file_name", fileName), zap.Error(err))
		return nil, &client.TransportError{System: system, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		prometheus.RecordGatewayCall(system, "failure")
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, &client.StatusError{System: system, StatusCode: resp.StatusCode, Body: string(responseBody)}
	}
	prometheus.RecordGatewayCall(system, "success")

	var uploadResp UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("could not parse upload response: %w", err)
	}
	return &uploadResp, nil
}

// Download fetches a published file's bytes by its data plane id
func (c *Client) Download(ctx context.Context, creds model.ClientCredentials, fileID string) ([]byte, error) {
	token, err := c.tokens.GetToken(ctx, creds.ClientID, creds.ClientSecret, oauth.ScopeManagementAPI)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.publicURL+"/"+fileID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		prometheus.RecordGatewayCall(system, "failure")
		c.log.Error("Data plane download failed", zap.String("file_id", fileID), zap.Error(err))
		return nil, &client.TransportError{System: system, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		prometheus.RecordGatewayCall(system, "failure")
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, &client.StatusError{System: system, StatusCode: resp.StatusCode, Body: string(responseBody)}
	}
	prometheus.RecordGatewayCall(system, "success")

	return io.ReadAll(resp.Body)
}
