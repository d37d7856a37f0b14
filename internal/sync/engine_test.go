package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/manavgt54/idesync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store keeping insertion order for deterministic
// batching.
type fakeStore struct {
	mu       sync.Mutex
	order    []string
	records  map[string]*store.FileRecord
	content  map[string][]byte
	queryErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]*store.FileRecord),
		content: make(map[string][]byte),
	}
}

func (f *fakeStore) add(path string, size int64, status store.FileStatus) *store.FileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec := &store.FileRecord{
		ID:      uuid.NewString(),
		Path:    path,
		Size:    size,
		ModTime: time.Now(),
		Status:  status,
	}
	f.order = append(f.order, path)
	f.records[path] = rec
	f.content[path] = bytes.Repeat([]byte("a"), int(size))
	return rec
}

func (f *fakeStore) dropContent(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.content, path)
}

func (f *fakeStore) setQueryErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr = err
}

func (f *fakeStore) status(path string) store.FileStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[path].Status
}

func (f *fakeStore) lastError(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[path].LastError
}

func (f *fakeStore) byStatus(status store.FileStatus) []*store.FileRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*store.FileRecord, 0)
	for _, path := range f.order {
		if rec := f.records[path]; rec.Status == status {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out
}

func (f *fakeStore) GetPending(ctx context.Context) ([]*store.FileRecord, error) {
	f.mu.Lock()
	err := f.queryErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.byStatus(store.StatusPending), nil
}

func (f *fakeStore) GetFailed(ctx context.Context) ([]*store.FileRecord, error) {
	f.mu.Lock()
	err := f.queryErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.byStatus(store.StatusFailed), nil
}

func (f *fakeStore) ReadContent(ctx context.Context, file *store.FileRecord) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, ok := f.content[file.Path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrContentUnavailable, file.Path)
	}
	return content, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id string, status store.FileStatus, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.records {
		if rec.ID == id {
			rec.Status = status
			rec.LastError = lastError
			return nil
		}
	}
	return fmt.Errorf("record not found: %s", id)
}

// fakeUploader records requests, can fail specific paths and can block one
// path until the context is cancelled.
type fakeUploader struct {
	mu           sync.Mutex
	seen         []*UploadRequest
	calls        map[string]int
	failWith     map[string]error
	failuresLeft map[string]int
	blockPath    string
	started      chan string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		calls:        make(map[string]int),
		failWith:     make(map[string]error),
		failuresLeft: make(map[string]int),
	}
}

func (f *fakeUploader) Upload(ctx context.Context, req *UploadRequest) error {
	f.mu.Lock()
	f.calls[req.Path]++
	started := f.started
	block := f.blockPath == req.Path
	err := f.failWith[req.Path]
	if err == nil {
		if n := f.failuresLeft[req.Path]; n > 0 {
			f.failuresLeft[req.Path] = n - 1
			err = fmt.Errorf("upload %s: http 500", req.Path)
		}
	}
	f.mu.Unlock()

	if started != nil {
		started <- req.Path
	}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.seen = append(f.seen, req)
	f.mu.Unlock()
	return nil
}

func (f *fakeUploader) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.seen))
	for _, req := range f.seen {
		out = append(out, req.Path)
	}
	return out
}

func (f *fakeUploader) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func waitForUpload(t *testing.T, ch <-chan string, path string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-ch:
			if p == path {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for upload of %s", path)
		}
	}
}

func drainEvents(ch <-chan *Event) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestSync_UploadsAllPending(t *testing.T) {
	fs := newFakeStore()
	for i := 1; i <= 5; i++ {
		fs.add(fmt.Sprintf("f%d.txt", i), 100, store.StatusPending)
	}
	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithConfig(&Config{MaxFiles: 3, Concurrency: 1}))

	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)

	// single worker keeps batch order, so uploads arrive in queue order
	assert.Equal(t, []string{"f1.txt", "f2.txt", "f3.txt", "f4.txt", "f5.txt"}, fu.paths())
	for i := 1; i <= 5; i++ {
		assert.Equal(t, store.StatusUploaded, fs.status(fmt.Sprintf("f%d.txt", i)))
	}

	sum := sha256.Sum256(bytes.Repeat([]byte("a"), 100))
	wantDigest := hex.EncodeToString(sum[:])
	for _, req := range fu.seen {
		assert.Equal(t, wantDigest, req.Digest)
		assert.Equal(t, int64(100), req.Size)
	}

	snap := e.Stats()
	assert.Equal(t, 5, snap.TotalFiles)
	assert.Equal(t, 5, snap.ProcessedFiles)
	assert.Equal(t, 5, snap.UploadedFiles)
	assert.Zero(t, snap.FailedFiles)
	assert.Equal(t, int64(500), snap.TotalBytes)
	assert.Equal(t, int64(500), snap.UploadedBytes)

	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, RunDrained, e.LastRun())
}

func TestSync_EmptyQueueDrains(t *testing.T) {
	fs := newFakeStore()
	fu := newFakeUploader()
	e := NewEngine(fs, fu)

	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)
	assert.Empty(t, fu.paths())
	assert.Zero(t, e.Stats().TotalFiles)
}

func TestSync_ContinuesPastUploadFailure(t *testing.T) {
	fs := newFakeStore()
	fs.add("a.txt", 100, store.StatusPending)
	fs.add("b.txt", 100, store.StatusPending)
	fs.add("c.txt", 100, store.StatusPending)

	fu := newFakeUploader()
	fu.failWith["b.txt"] = errors.New("http 500: internal server error")

	e := NewEngine(fs, fu, WithConfig(&Config{Concurrency: 1}))
	events := e.Subscribe()
	defer e.Unsubscribe(events)

	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)

	assert.Equal(t, store.StatusUploaded, fs.status("a.txt"))
	assert.Equal(t, store.StatusFailed, fs.status("b.txt"))
	assert.Equal(t, store.StatusUploaded, fs.status("c.txt"))
	assert.Contains(t, fs.lastError("b.txt"), "http 500")

	snap := e.Stats()
	assert.Equal(t, 3, snap.ProcessedFiles)
	assert.Equal(t, 2, snap.UploadedFiles)
	assert.Equal(t, 1, snap.FailedFiles)
	assert.Equal(t, snap.ProcessedFiles, snap.UploadedFiles+snap.FailedFiles)

	// one file failing never suppresses the batch completion
	var sawComplete bool
	for _, ev := range drainEvents(events) {
		if ev.Type == EventBatchComplete {
			sawComplete = true
			data := ev.Data.(*BatchCompleteData)
			assert.Equal(t, 3, data.FilesProcessed)
		}
	}
	assert.True(t, sawComplete)
}

func TestSync_ContentUnavailableMarksFailed(t *testing.T) {
	fs := newFakeStore()
	fs.add("ok.txt", 10, store.StatusPending)
	fs.add("ghost.txt", 10, store.StatusPending)
	fs.dropContent("ghost.txt")

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithConfig(&Config{Concurrency: 1}))

	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)

	assert.Equal(t, store.StatusUploaded, fs.status("ok.txt"))
	assert.Equal(t, store.StatusFailed, fs.status("ghost.txt"))
	assert.Contains(t, fs.lastError("ghost.txt"), "content unavailable")
	assert.Equal(t, []string{"ok.txt"}, fu.paths())
}

func TestSync_StoreQueryErrorIsFatal(t *testing.T) {
	fs := newFakeStore()
	fs.setQueryErr(errors.New("disk io error"))
	fu := newFakeUploader()
	e := NewEngine(fs, fu)

	events := e.Subscribe()
	defer e.Unsubscribe(events)

	result, err := e.Sync(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, RunError, result)
	assert.Equal(t, RunError, e.LastRun())
	assert.Equal(t, StateIdle, e.State())

	var sawError bool
	for _, ev := range drainEvents(events) {
		if ev.Type == EventError {
			sawError = true
			data := ev.Data.(*ErrorData)
			assert.Contains(t, data.Error, "disk io error")
		}
	}
	assert.True(t, sawError)
}

func TestSync_SecondRunRejectedWhileRunning(t *testing.T) {
	fs := newFakeStore()
	fs.add("slow.txt", 10, store.StatusPending)

	fu := newFakeUploader()
	fu.blockPath = "slow.txt"
	fu.started = make(chan string, 4)

	e := NewEngine(fs, fu, WithConfig(&Config{Concurrency: 1}))
	require.NoError(t, e.Start(context.Background(), nil))
	waitForUpload(t, fu.started, "slow.txt")

	assert.Equal(t, StateRunning, e.State())

	_, err := e.Sync(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)
	assert.ErrorIs(t, e.Start(context.Background(), nil), ErrSyncAlreadyRunning)
	_, err = e.RetryFailed(context.Background())
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)

	e.Stop()
	e.Wait()
	assert.Equal(t, StateIdle, e.State())
	assert.Equal(t, RunStopped, e.LastRun())
}

func TestStop_RevertsInFlightKeepsCompleted(t *testing.T) {
	fs := newFakeStore()
	fs.add("done.txt", 10, store.StatusPending)
	fs.add("stuck.txt", 10, store.StatusPending)

	fu := newFakeUploader()
	fu.blockPath = "stuck.txt"
	fu.started = make(chan string, 4)

	// one file per batch so the first batch completes before the second blocks
	e := NewEngine(fs, fu, WithConfig(&Config{MaxFiles: 1, Concurrency: 1}))
	require.NoError(t, e.Start(context.Background(), nil))
	waitForUpload(t, fu.started, "stuck.txt")

	e.Stop()
	e.Wait()

	assert.Equal(t, store.StatusUploaded, fs.status("done.txt"))
	assert.Equal(t, store.StatusPending, fs.status("stuck.txt"))

	// the cancelled file moved no counters
	snap := e.Stats()
	assert.Equal(t, 2, snap.TotalFiles)
	assert.Equal(t, 1, snap.ProcessedFiles)
	assert.Equal(t, 1, snap.UploadedFiles)
	assert.Zero(t, snap.FailedFiles)
	assert.Equal(t, RunStopped, e.LastRun())
}

func TestRetryFailed_ReuploadsFailedFiles(t *testing.T) {
	fs := newFakeStore()
	fs.add("x.txt", 10, store.StatusFailed)
	fs.add("y.txt", 10, store.StatusFailed)

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithConfig(&Config{RetryDelay: time.Millisecond}))

	result, err := e.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)

	assert.Equal(t, store.StatusUploaded, fs.status("x.txt"))
	assert.Equal(t, store.StatusUploaded, fs.status("y.txt"))

	failed, err := fs.GetFailed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestRetryFailed_SucceedsOnLaterAttempt(t *testing.T) {
	fs := newFakeStore()
	fs.add("flaky.txt", 10, store.StatusFailed)

	fu := newFakeUploader()
	fu.failuresLeft["flaky.txt"] = 1

	e := NewEngine(fs, fu, WithConfig(&Config{RetryAttempts: 3, RetryDelay: time.Millisecond}))

	result, err := e.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)
	assert.Equal(t, store.StatusUploaded, fs.status("flaky.txt"))
	assert.Equal(t, 2, fu.callCount("flaky.txt"))
}

func TestStartRetry_RunsInBackground(t *testing.T) {
	fs := newFakeStore()
	fs.add("x.txt", 10, store.StatusFailed)

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithConfig(&Config{RetryDelay: time.Millisecond}))

	require.NoError(t, e.StartRetry(context.Background()))
	e.Wait()

	assert.Equal(t, store.StatusUploaded, fs.status("x.txt"))
	assert.Equal(t, RunDrained, e.LastRun())
	assert.Equal(t, StateIdle, e.State())
}

func TestRetryFailed_GivesUpAfterAttempts(t *testing.T) {
	fs := newFakeStore()
	fs.add("bad.txt", 10, store.StatusFailed)

	fu := newFakeUploader()
	fu.failWith["bad.txt"] = errors.New("http 403: forbidden")

	e := NewEngine(fs, fu, WithConfig(&Config{RetryAttempts: 2, RetryDelay: time.Millisecond}))

	result, err := e.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)
	assert.Equal(t, store.StatusFailed, fs.status("bad.txt"))
	assert.Equal(t, 2, fu.callCount("bad.txt"))
}

func TestSync_ConfigMergePersistsAcrossRuns(t *testing.T) {
	fs := newFakeStore()
	fu := newFakeUploader()
	e := NewEngine(fs, fu)

	_, err := e.Sync(context.Background(), &Config{MaxFiles: 2})
	require.NoError(t, err)

	cfg := e.Config()
	assert.Equal(t, 2, cfg.MaxFiles)
	assert.Equal(t, int64(DefaultMaxBatchBytes), cfg.MaxBatchBytes)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)

	// zero fields keep the previously applied values
	_, err = e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Config().MaxFiles)
}

func TestSync_EmitsProgressThenCompletion(t *testing.T) {
	fs := newFakeStore()
	fs.add("p.txt", 10, store.StatusPending)
	fs.add("q.txt", 10, store.StatusPending)

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithConfig(&Config{Concurrency: 1}))

	events := e.Subscribe()
	defer e.Unsubscribe(events)

	_, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)

	got := drainEvents(events)
	require.Len(t, got, 4)
	assert.Equal(t, EventProgress, got[0].Type)
	assert.Equal(t, EventProgress, got[1].Type)
	assert.Equal(t, EventBatchComplete, got[2].Type)
	assert.Equal(t, EventStats, got[3].Type)

	first := got[0].Data.(*ProgressData)
	second := got[1].Data.(*ProgressData)
	assert.InDelta(t, 0.5, first.Progress, 0.001)
	assert.InDelta(t, 1.0, second.Progress, 0.001)
	assert.Equal(t, "p.txt", first.File)
	assert.Equal(t, "q.txt", second.File)
	assert.NotEmpty(t, first.BatchID)
}

// failingDigester errors on every file.
type failingDigester struct{ err error }

func (d failingDigester) DigestFile(_ *store.FileRecord, _ []byte) (string, error) {
	return "", d.err
}

// panickingDigester simulates a bug in the integrity path.
type panickingDigester struct{}

func (panickingDigester) DigestFile(_ *store.FileRecord, _ []byte) (string, error) {
	panic("digest backend lost")
}

func TestSync_DigestFailureUploadsUnverified(t *testing.T) {
	fs := newFakeStore()
	fs.add("a.txt", 100, store.StatusPending)

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithDigester(failingDigester{err: errors.New("hash backend down")}))

	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)

	// integrity is auxiliary: the upload goes out without a digest
	assert.Equal(t, store.StatusUploaded, fs.status("a.txt"))
	require.Len(t, fu.seen, 1)
	assert.Empty(t, fu.seen[0].Digest)

	snap := e.Stats()
	assert.Equal(t, 1, snap.UploadedFiles)
	assert.Zero(t, snap.FailedFiles)
}

func TestSync_BatchPanicSurfacesAsErrorEvent(t *testing.T) {
	fs := newFakeStore()
	fs.add("a.txt", 10, store.StatusPending)

	fu := newFakeUploader()
	e := NewEngine(fs, fu, WithDigester(panickingDigester{}))

	events := e.Subscribe()
	defer e.Unsubscribe(events)

	// the run must settle instead of crashing the worker
	result, err := e.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, RunDrained, result)
	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, fu.paths())

	var errData *ErrorData
	for _, ev := range drainEvents(events) {
		if ev.Type == EventError {
			errData = ev.Data.(*ErrorData)
		}
	}
	require.NotNil(t, errData)
	assert.NotEmpty(t, errData.BatchID)
	assert.Contains(t, errData.Error, "digest backend lost")
}
