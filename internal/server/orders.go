package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
)

func (s *Server) ListOrders(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		pagination.Pagination
		Status         string `form:"status"`
		AggregatorType string `form:"aggregator_type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.orderSvc.List(c.Request.Context(), tenantID, orderdomain.ListOrderRequest{
		Status:         strings.TrimSpace(query.Status),
		AggregatorType: strings.TrimSpace(query.AggregatorType),
		PageToken:      query.PageToken,
		PageSize:       query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.orderSvc.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RetryOrder(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.RetryOrder(c.Request.Context(), tenantID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SimulateOrder stores a synthetic Uber Eats order for the tenant.
func (s *Server) SimulateOrder(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.SimulateOrder(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
