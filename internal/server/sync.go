package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
)

// SyncPendingOrders answers 200 even when some orders failed; the summary
// carries the per order errors.
func (s *Server) SyncPendingOrders(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.SyncPendingOrders(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IngestOrders(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.IngestNewOrders(c.Request.Context(), tenantID, strings.TrimSpace(c.Param("provider")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FullSync(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.FullSync(c.Request.Context(), tenantID, strings.TrimSpace(c.Param("provider")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSyncStatus(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.GetSyncStatus(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSyncLogs(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		AggregatorType string `form:"aggregator_type"`
		Status         string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.synclogSvc.List(c.Request.Context(), tenantID, synclogdomain.ListRequest{
		AggregatorType: strings.TrimSpace(query.AggregatorType),
		Status:         strings.TrimSpace(query.Status),
		PageToken:      query.PageToken,
		PageSize:       query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
