package handlers

// StatusResponse represents the health status of the daemon.
type StatusResponse struct {
	Status    string       `json:"status"`    // health status ("ok").
	Timestamp string       `json:"ts"`        // timestamp when health check was performed.
	Version   string       `json:"version"`   // version of the daemon.
	Revision  string       `json:"revision"`  // revision of the daemon.
	BuildDate string       `json:"buildDate"` // build date of the daemon.
	UptimeMs  int64        `json:"uptimeMs"`  // how long the daemon has been running.
	Workspace string       `json:"workspace"` // workspace root being synced.
	SyncState string       `json:"syncState"` // engine state (idle/running).
	Process   *ProcessInfo `json:"process,omitempty"`
}

// ProcessInfo carries best-effort resource usage of the daemon process.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	MemoryRSS  uint64  `json:"memoryRss"`
	NumThreads int32   `json:"numThreads"`
}
