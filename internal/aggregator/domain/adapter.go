package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/config"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
)

// Adapter talks to one aggregator on behalf of one tenant.
type Adapter interface {
	Provider() integration.Provider
	AcquireAccessToken(ctx context.Context) (Token, error)
	FetchOrders(ctx context.Context, token Token, window Window) ([]RawOrder, error)
	TransformOrder(raw RawOrder) (orderdomain.CanonicalOrder, error)
	// TestConnection never mutates state; activating the config is up to the caller.
	TestConnection(ctx context.Context) TestResult
}

type Factory interface {
	Provider() integration.Provider
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}

// AdapterConfig carries decrypted credentials. It must not be logged.
type AdapterConfig struct {
	TenantID    snowflake.ID
	StoreID     string
	Fields      map[string]string
	Endpoint    config.Endpoint
	PhoneRegion string
}

func (c AdapterConfig) Field(name string) string {
	if c.Fields == nil {
		return ""
	}
	return c.Fields[name]
}

// Token is a bearer credential. A zero ExpiresAt means the token is static and
// is not cached.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

func (t Token) Cacheable() bool {
	return t.AccessToken != "" && !t.ExpiresAt.IsZero()
}

type Window struct {
	Start  time.Time
	End    time.Time
	Status string
}

// DefaultWindow is the trailing lookback ending at now.
func DefaultWindow(now time.Time, lookback time.Duration) Window {
	return Window{Start: now.Add(-lookback), End: now}
}

// RawOrder is one aggregator order as received, with its external id extracted.
type RawOrder struct {
	ExternalID string
	Payload    json.RawMessage
}

type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

var (
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_config")
	ErrInvalidOrder     = errors.New("invalid_order")
)
