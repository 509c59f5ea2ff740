package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/pkg/integration"
)

type Service interface {
	Configure(ctx context.Context, req ConfigureRequest) (*ConfigSummary, error)
	Get(ctx context.Context, tenantID snowflake.ID, provider string) (*ConfigSummary, error)
	List(ctx context.Context, tenantID snowflake.ID) ([]ConfigSummary, error)
	Load(ctx context.Context, tenantID snowflake.ID, provider integration.Provider) (*Credentials, error)
	SetActive(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, isActive bool) error
	StoreAccessToken(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, token string, expiry time.Time) error
	MarkSynced(ctx context.Context, tenantID snowflake.ID, provider integration.Provider, at time.Time) error
	Delete(ctx context.Context, tenantID snowflake.ID, provider string) error
}

type ConfigureRequest struct {
	TenantID        snowflake.ID      `json:"-"`
	Provider        string            `json:"-"`
	Credentials     map[string]string `json:"credentials"`
	Settings        *SettingsPatch    `json:"settings"`
	PaymentMappings []PaymentMapping  `json:"payment_mappings"`
}

// ConfigSummary is the read model returned across the boundary. Secret values
// are always Mask; HasSecret tells whether one is stored.
type ConfigSummary struct {
	ID              string            `json:"id"`
	Provider        string            `json:"provider"`
	StoreID         string            `json:"store_id"`
	Credentials     map[string]string `json:"credentials"`
	HasSecret       map[string]bool   `json:"has_secret"`
	Settings        Settings          `json:"settings"`
	PaymentMappings []PaymentMapping  `json:"payment_mappings,omitempty"`
	IsActive        bool              `json:"is_active"`
	LastSync        *time.Time        `json:"last_sync,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Credentials is the decrypted view handed to adapters. It never leaves the process.
type Credentials struct {
	ConfigID        snowflake.ID
	TenantID        snowflake.ID
	Provider        integration.Provider
	StoreID         string
	Fields          map[string]string
	Settings        Settings
	PaymentMappings []PaymentMapping
	IsActive        bool
	AccessToken     string
	TokenExpiry     *time.Time
}

func (c *Credentials) Field(name string) string {
	if c == nil || c.Fields == nil {
		return ""
	}
	return c.Fields[name]
}

// CachedToken returns the stored access token when it is still valid at now.
func (c *Credentials) CachedToken(now time.Time) (string, bool) {
	if c == nil || c.AccessToken == "" || c.TokenExpiry == nil {
		return "", false
	}
	if !now.Before(*c.TokenExpiry) {
		return "", false
	}
	return c.AccessToken, true
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrInvalidConfig   = errors.New("invalid_config")
	ErrMissingField    = errors.New("missing_field")
	ErrNotFound        = errors.New("not_found")
)
