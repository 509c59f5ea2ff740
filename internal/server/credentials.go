package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	credentialdomain "github.com/smallbiznis/ordersync/internal/credential/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"go.uber.org/zap"
)

func (s *Server) ConfigureCredential(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req credentialdomain.ConfigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = tenantID
	req.Provider = strings.TrimSpace(c.Param("provider"))

	resp, err := s.credentialSvc.Configure(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("credentials configured",
		zapTenant(tenantID),
		zapProvider(resp.Provider),
	)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCredentials(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.credentialSvc.List(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCredential(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.credentialSvc.Get(c.Request.Context(), tenantID, strings.TrimSpace(c.Param("provider")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCredential(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	provider := strings.TrimSpace(c.Param("provider"))
	if err := s.credentialSvc.Delete(c.Request.Context(), tenantID, provider); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("credentials deleted", zapTenant(tenantID), zapProvider(provider))
	c.Status(http.StatusNoContent)
}

func (s *Server) TestConnection(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.syncSvc.TestConnection(c.Request.Context(), tenantID, strings.TrimSpace(c.Param("provider")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type toggleCredentialRequest struct {
	IsActive *bool `json:"is_active"`
}

func (s *Server) ToggleCredential(c *gin.Context) {
	tenantID, err := tenantID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req toggleCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	provider, err := integration.ParseProvider(c.Param("provider"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.credentialSvc.SetActive(c.Request.Context(), tenantID, provider, *req.IsActive); err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("credentials toggled",
		zapTenant(tenantID),
		zapProvider(provider.String()),
		zap.Bool("is_active", *req.IsActive),
	)

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"provider": provider.String(), "is_active": *req.IsActive}})
}
