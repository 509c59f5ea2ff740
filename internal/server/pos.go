package server

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	syncdomain "github.com/smallbiznis/ordersync/internal/sync/domain"
)

// catalogQueryKeys are the paging and filter parameters forwarded to Loyverse.
var catalogQueryKeys = []string{"limit", "cursor", "store_id", "created_at_min", "created_at_max"}

func (s *Server) ListLoyverseCatalog(catalog syncdomain.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := tenantID(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		query := url.Values{}
		for _, key := range catalogQueryKeys {
			if value := c.Query(key); value != "" {
				query.Set(key, value)
			}
		}

		resp, err := s.syncSvc.ListCatalog(c.Request.Context(), tenantID, catalog, query)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}
