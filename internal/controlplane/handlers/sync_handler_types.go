package handlers

import (
	"github.com/manavgt54/idesync/internal/sync"
)

type SyncStatusResponse struct {
	State   string              `json:"state"`
	LastRun string              `json:"lastRun,omitempty"`
	Stats   *sync.StatsSnapshot `json:"stats"`
	Queue   QueueCounts         `json:"queue"`
}
