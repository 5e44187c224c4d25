// Package vault implements the secret store client. Secrets live in a
// HashiCorp Vault KV v2 mount; the secret value is the "content" field of
// the stored data.
package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/Metaform/redline/pkg/config"
	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Client reads secrets from Vault
type Client struct {
	client    *api.Client
	mountPath string
	log       *zap.Logger
}

// New creates a Vault client from configuration
func New(cfg *config.VaultConfig, log *zap.Logger) (*Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	vaultClient, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		vaultClient.SetToken(cfg.Token)
	}

	return &Client{
		client:    vaultClient,
		mountPath: strings.TrimSuffix(cfg.MountPath, "/"),
		log:       log,
	}, nil
}

// ReadSecret returns the secret value stored at the given path. An absent
// secret yields an empty string, not an error.
func (c *Client) ReadSecret(ctx context.Context, path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	fullPath := fmt.Sprintf("%s/data/%s", c.mountPath, path)

	secret, err := c.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		c.log.Error("Failed to read from vault", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("vault read failed: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", nil
	}

	// KV v2 wraps the payload in a "data" object
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", nil
	}
	content, _ := data["content"].(string)
	return content, nil
}
