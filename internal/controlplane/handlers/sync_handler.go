package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/sync"
	"github.com/manavgt54/idesync/internal/syncmsg"
)

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// Start launches a sync run. The optional JSON body is a config overlay;
// omitted fields keep their current values. Returns 409 when a run is
// already active.
func (h *SyncHandler) Start(c *gin.Context) {
	var wire syncmsg.SyncConfig
	if err := c.ShouldBindJSON(&wire); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, err)
		return
	}

	if err := h.svc.StartSync(wire.ToConfig()); err != nil {
		if errors.Is(err, sync.ErrSyncAlreadyRunning) {
			AbortWithError(c, http.StatusConflict, ErrCodeSyncRunning, err)
			return
		}
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
		return
	}

	c.JSON(http.StatusAccepted, ControlPlaneResponse{Code: CodeOk})
}

// Stop cancels the active run. A no-op when idle.
func (h *SyncHandler) Stop(c *gin.Context) {
	h.svc.StopSync()
	c.JSON(http.StatusOK, ControlPlaneResponse{Code: CodeOk})
}

// Retry re-enqueues failed files and drives them through the batch path.
func (h *SyncHandler) Retry(c *gin.Context) {
	if err := h.svc.RetryFailed(); err != nil {
		if errors.Is(err, sync.ErrSyncAlreadyRunning) {
			AbortWithError(c, http.StatusConflict, ErrCodeSyncRunning, err)
			return
		}
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
		return
	}

	c.JSON(http.StatusAccepted, ControlPlaneResponse{Code: CodeOk})
}

// Status reports the engine state, last run result, current run counters and
// the store queue summary.
func (h *SyncHandler) Status(c *gin.Context) {
	counts, err := h.svc.QueueCounts(c.Request.Context())
	if err != nil {
		AbortWithError(c, http.StatusInternalServerError, ErrCodeUnknownError, err)
		return
	}

	c.JSON(http.StatusOK, SyncStatusResponse{
		State:   string(h.svc.SyncState()),
		LastRun: string(h.svc.LastRun()),
		Stats:   h.svc.SyncStats(),
		Queue:   counts,
	})
}

// Events streams engine events as server-sent events until the client
// disconnects or the subscription closes.
func (h *SyncHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	eventCh := h.svc.Subscribe()
	defer h.svc.Unsubscribe(eventCh)

	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-eventCh:
			if !ok {
				return false
			}
			c.SSEvent("sync", event)
			return true
		case <-time.After(30 * time.Second):
			// keepalive comment so proxies don't drop the stream
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
