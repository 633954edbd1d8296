package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pvoronin/busbooking/internal/service/reconciler"
)

// ReconcileRunner is the scheduled-invocation boundary: an external job
// trigger POSTs here to run one expiry sweep.
type ReconcileRunner interface {
	Run(ctx context.Context) (*reconciler.Summary, error)
}

type ReconcileHandler struct {
	runner ReconcileRunner
}

func NewReconcileHandler(runner ReconcileRunner) *ReconcileHandler {
	return &ReconcileHandler{runner: runner}
}

func (h *ReconcileHandler) Register(router *gin.RouterGroup) {
	router.POST("/reconcile", h.run)
}

func (h *ReconcileHandler) run(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
