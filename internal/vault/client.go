// Package vault loads exchange credentials from HashiCorp Vault. When Vault is
// disabled the client degrades to an in-memory store seeded from config, which
// keeps development setups working without a Vault deployment.
package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"straddle-trading-bot/config"
)

// Credentials are the exchange API credentials the bot trades with
type Credentials struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	Exchange  string `json:"exchange"`
	IsTestnet bool   `json:"is_testnet"`
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu     sync.RWMutex
	cached *Credentials
}

// NewClient creates a new Vault client. A disabled config yields a local-only
// client.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

const credentialsPath = "exchange/binance"

// StoreCredentials writes the exchange credentials to Vault (or the local
// cache when Vault is disabled)
func (c *Client) StoreCredentials(ctx context.Context, creds Credentials) error {
	c.mu.Lock()
	c.cached = &creds
	c.mu.Unlock()

	if !c.config.Enabled {
		return nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, credentialsPath)
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    creds.APIKey,
			"secret_key": creds.SecretKey,
			"exchange":   creds.Exchange,
			"is_testnet": creds.IsTestnet,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		return fmt.Errorf("failed to store credentials in vault: %w", err)
	}
	return nil
}

// GetCredentials retrieves the exchange credentials, preferring the cache
func (c *Client) GetCredentials(ctx context.Context) (*Credentials, error) {
	c.mu.RLock()
	if c.cached != nil {
		cached := *c.cached
		c.mu.RUnlock()
		return &cached, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return nil, fmt.Errorf("credentials not found and vault is disabled")
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, credentialsPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("credentials not found in vault")
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", path)
	}

	creds := &Credentials{
		APIKey:    getString(data, "api_key"),
		SecretKey: getString(data, "secret_key"),
		Exchange:  getString(data, "exchange"),
		IsTestnet: getBool(data, "is_testnet"),
	}

	c.mu.Lock()
	c.cached = creds
	c.mu.Unlock()

	return creds, nil
}

// IsEnabled returns whether Vault is enabled
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if val, ok := data[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
