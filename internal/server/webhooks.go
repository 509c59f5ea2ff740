package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ordersync/pkg/integration"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// ReceiveWebhook acknowledges aggregator push notifications. Orders are still
// pulled by ingestion, so the payload is only logged.
func (s *Server) ReceiveWebhook(c *gin.Context) {
	provider, err := integration.ParseAggregator(strings.TrimSpace(c.Param("provider")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	s.log.Info("webhook received",
		zapProvider(string(provider)),
		zap.Int("bytes", len(body)),
	)

	c.JSON(http.StatusAccepted, gin.H{"received": true})
}
