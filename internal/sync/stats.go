package sync

import (
	"sync"
	"time"
)

// Stats tracks the counters of one sync run. Batch processors running in
// parallel mutate it, so every counter moves under the mutex; in particular a
// file is counted processed in the same critical section that counts it
// uploaded or failed, keeping processed == uploaded + failed at all times.
type Stats struct {
	mu sync.RWMutex

	totalFiles     int
	processedFiles int
	uploadedFiles  int
	failedFiles    int
	totalBytes     int64
	uploadedBytes  int64
	startTime      time.Time
	currentBatch   string
}

// StatsSnapshot is a point-in-time copy of the run counters.
type StatsSnapshot struct {
	TotalFiles     int       `json:"totalFiles"`
	ProcessedFiles int       `json:"processedFiles"`
	UploadedFiles  int       `json:"uploadedFiles"`
	FailedFiles    int       `json:"failedFiles"`
	TotalBytes     int64     `json:"totalBytes"`
	UploadedBytes  int64     `json:"uploadedBytes"`
	StartTime      time.Time `json:"startTime"`
	CurrentBatch   string    `json:"currentBatch,omitempty"`
}

// Progress returns processed/total in 0..1, or 0 when nothing is queued.
func (s *StatsSnapshot) Progress() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.ProcessedFiles) / float64(s.TotalFiles)
}

func NewStats() *Stats {
	return &Stats{}
}

// Reset clears all counters and stamps a new run start.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFiles = 0
	s.processedFiles = 0
	s.uploadedFiles = 0
	s.failedFiles = 0
	s.totalBytes = 0
	s.uploadedBytes = 0
	s.startTime = time.Now()
	s.currentBatch = ""
}

// BatchDispatched accounts a batch's file count and byte total against the run.
func (s *Stats) BatchDispatched(batchID string, files int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalFiles += files
	s.totalBytes += bytes
	s.currentBatch = batchID
}

// FileUploaded counts one file processed successfully.
func (s *Stats) FileUploaded(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processedFiles++
	s.uploadedFiles++
	s.uploadedBytes += bytes
}

// FileFailed counts one file processed unsuccessfully.
func (s *Stats) FileFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.processedFiles++
	s.failedFiles++
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() *StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &StatsSnapshot{
		TotalFiles:     s.totalFiles,
		ProcessedFiles: s.processedFiles,
		UploadedFiles:  s.uploadedFiles,
		FailedFiles:    s.failedFiles,
		TotalBytes:     s.totalBytes,
		UploadedBytes:  s.uploadedBytes,
		StartTime:      s.startTime,
		CurrentBatch:   s.currentBatch,
	}
}
