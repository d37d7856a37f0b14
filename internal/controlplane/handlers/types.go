package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/sync"
)

const (
	CodeOk                string = "OK"
	ErrCodeBadRequest     string = "ERR_BAD_REQUEST"
	ErrCodeUnknownError   string = "ERR_UNKNOWN_ERROR"
	ErrCodeSyncRunning    string = "ERR_SYNC_RUNNING"
	ErrCodeEngineNotReady string = "ERR_ENGINE_NOT_READY"
)

// SyncService is the daemon surface the control plane drives.
type SyncService interface {
	StartSync(cfg *sync.Config) error
	StopSync()
	RetryFailed() error

	SyncState() sync.State
	LastRun() sync.RunResult
	SyncStats() *sync.StatsSnapshot
	QueueCounts(ctx context.Context) (QueueCounts, error)

	Subscribe() <-chan *sync.Event
	Unsubscribe(ch <-chan *sync.Event)
}

// QueueCounts summarizes the store by file status.
type QueueCounts struct {
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Uploaded  int `json:"uploaded"`
	Failed    int `json:"failed"`
}

type ControlPlaneResponse struct {
	Code string `json:"code"`
}

type ControlPlaneError struct {
	ErrorCode string `json:"code"`
	Error     string `json:"error"`
}

func AbortWithError(c *gin.Context, status int, code string, err error) {
	c.Abort()
	c.Error(err)
	c.PureJSON(status, ControlPlaneError{
		ErrorCode: code,
		Error:     err.Error(),
	})
}
