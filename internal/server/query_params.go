package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

func parseSnowflakeID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return parsed, nil
}

func zapTenant(id snowflake.ID) zap.Field {
	return zap.String("tenant_id", id.String())
}

func zapProvider(provider string) zap.Field {
	return zap.String("provider", provider)
}
