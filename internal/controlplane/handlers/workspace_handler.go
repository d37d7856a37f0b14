package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/store"
)

const ErrCodeScanFailed = "ERR_SCAN_FAILED"

// WorkspaceService triggers workspace maintenance operations on the daemon.
type WorkspaceService interface {
	ScanWorkspace(ctx context.Context) (*store.ScanResult, error)
}

type WorkspaceHandler struct {
	svc WorkspaceService
}

func NewWorkspaceHandler(svc WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{svc: svc}
}

// Scan walks the workspace and reconciles the record table with the files on
// disk. Runs synchronously; the response carries the scan summary.
func (h *WorkspaceHandler) Scan(c *gin.Context) {
	result, err := h.svc.ScanWorkspace(c.Request.Context())
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeScanFailed, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
