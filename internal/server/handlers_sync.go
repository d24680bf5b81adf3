package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/llopes04/fieldsync/internal/sync"
)

// handleSyncPass adapts one engine pass into a handler. The engine
// never lets an error escape, so the HTTP status is always 200 and the
// outcome travels in the Result body.
func (h *httpHandler) handleSyncPass(pass func(context.Context) sync.Result) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, pass(c.Request.Context()))
	}
}

// handlePendingCount reports how many offline actions await replay. A
// read failure degrades to zero so the client badge never blocks on
// storage trouble.
func (h *httpHandler) handlePendingCount(c *gin.Context) {
	count, err := h.offline.Count(c.Request.Context())
	if err != nil {
		h.logger.Warn("pending count unavailable", zap.Error(err))
		count = 0
	}
	c.JSON(http.StatusOK, gin.H{"pending": count})
}
