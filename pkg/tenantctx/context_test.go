package tenantctx

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantIDRoundTrip(t *testing.T) {
	_, ok := TenantID(context.Background())
	assert.False(t, ok)

	ctx := WithTenantID(context.Background(), snowflake.ID(77))
	id, ok := TenantID(ctx)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(77), id)
}

func TestParse(t *testing.T) {
	id, err := Parse(" 1234 ")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1234), id)

	for _, raw := range []string{"", "abc", "-5", "0"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrMissingTenant, raw)
	}
}
