package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/manavgt54/idesync/internal/version"
)

// StatusHandler handles status-related endpoints
type StatusHandler struct {
	svc       SyncService
	workspace string
	startedAt time.Time
	proc      *process.Process
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(svc SyncService, workspace string) *StatusHandler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}

	return &StatusHandler{
		svc:       svc,
		workspace: workspace,
		startedAt: time.Now(),
		proc:      proc,
	}
}

// Status returns the daemon health, build info and process stats
func (h *StatusHandler) Status(c *gin.Context) {
	c.PureJSON(http.StatusOK, &StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
		Revision:  version.Revision,
		BuildDate: version.BuildDate,
		UptimeMs:  time.Since(h.startedAt).Milliseconds(),
		Workspace: h.workspace,
		SyncState: string(h.svc.SyncState()),
		Process:   h.processInfo(),
	})
}

// processInfo collects best-effort process stats; partial data is fine.
func (h *StatusHandler) processInfo() *ProcessInfo {
	if h.proc == nil {
		return nil
	}

	info := &ProcessInfo{PID: h.proc.Pid}

	if cpuPercent, err := h.proc.CPUPercent(); err == nil {
		info.CPUPercent = cpuPercent
	}
	if mem, err := h.proc.MemoryInfo(); err == nil && mem != nil {
		info.MemoryRSS = mem.RSS
	}
	if threads, err := h.proc.NumThreads(); err == nil {
		info.NumThreads = threads
	}

	return info
}
