package tenantctx

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Header carries the tenant resolved by the upstream auth layer.
const Header = "X-Tenant-ID"

var ErrMissingTenant = errors.New("missing_tenant")

type tenantKey struct{}

// WithTenantID stores the tenant ID in the context.
func WithTenantID(ctx context.Context, tenantID snowflake.ID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the tenant ID from context, if set.
func TenantID(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	id, ok := ctx.Value(tenantKey{}).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Parse accepts the decimal form of a tenant ID.
func Parse(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrMissingTenant
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id <= 0 {
		return 0, ErrMissingTenant
	}
	return id, nil
}
