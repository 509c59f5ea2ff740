package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ordersync/internal/config"
	"github.com/smallbiznis/ordersync/pkg/tenantctx"
)

// TenantRequired resolves the tenant set by the auth proxy in front of the
// service. Requests without one are rejected.
func TenantRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := tenantctx.Parse(c.GetHeader(tenantctx.Header))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Request = c.Request.WithContext(tenantctx.WithTenantID(c.Request.Context(), tenantID))
		c.Next()
	}
}

// corsMiddleware allows every origin outside production. In production only
// CORS_ALLOWED_ORIGINS are allowed and nil is returned when none are set.
func corsMiddleware(cfg config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 0 {
			return nil
		}
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", tenantctx.Header)
	return cors.New(corsConfig)
}

func tenantID(c *gin.Context) (snowflake.ID, error) {
	id, ok := tenantctx.TenantID(c.Request.Context())
	if !ok {
		return 0, tenantctx.ErrMissingTenant
	}
	return id, nil
}
