package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/manavgt54/idesync/internal/store"
)

var (
	ErrSyncAlreadyRunning = errors.New("sync already running")
)

// State is the engine's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// RunResult describes how a sync run terminated.
type RunResult string

const (
	// RunDrained means no candidate files remained; the normal termination.
	RunDrained RunResult = "drained"
	// RunStopped means the run was cancelled.
	RunStopped RunResult = "stopped"
	// RunError means a store query or batching failure killed the run.
	RunError RunResult = "error"
)

// Store is the narrow view of the local store the engine drives. The store
// owns the authoritative records; the engine only queries and settles them.
type Store interface {
	GetPending(ctx context.Context) ([]*store.FileRecord, error)
	GetFailed(ctx context.Context) ([]*store.FileRecord, error)
	ReadContent(ctx context.Context, file *store.FileRecord) ([]byte, error)
	UpdateStatus(ctx context.Context, id string, status store.FileStatus, lastError string) error
}

// Uploader transfers one file to the remote store. Implementations must not
// retry internally and must abort the transfer when the context is cancelled.
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) error
}

// UploadRequest carries one file's bytes and metadata for transfer.
type UploadRequest struct {
	Path    string
	Size    int64
	ModTime time.Time
	Digest  string
	Content []byte
}

// Engine is the batch upload engine. One run pulls pending files from the
// store, partitions them into batches and uploads all batches of the pass
// through a bounded worker pool, then stops; the daemon re-invokes it
// periodically. At most one run is active at a time.
type Engine struct {
	store    Store
	uploader Uploader
	digester Digester
	emitter  *Emitter
	stats    *Stats

	config   Config
	configMu sync.RWMutex

	state     State
	lastRun   RunResult
	cancelRun context.CancelFunc
	stateMu   sync.RWMutex

	muSync sync.Mutex
	wg     sync.WaitGroup
}

type EngineOption func(*Engine)

// WithConfig overlays the positive fields of cfg onto the defaults.
func WithConfig(cfg *Config) EngineOption {
	return func(e *Engine) {
		e.config = e.config.Merge(cfg)
	}
}

// WithDigester replaces the default SHA-256 digester.
func WithDigester(d Digester) EngineOption {
	return func(e *Engine) {
		e.digester = d
	}
}

func NewEngine(store Store, uploader Uploader, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		uploader: uploader,
		emitter:  NewEmitter(),
		stats:    NewStats(),
		config:   *DefaultConfig(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.digester == nil {
		e.digester = SHA256Digester{}
	}
	return e
}

// Sync runs one full pass synchronously: pending files are batched and
// dispatched, and the call returns when every batch settles or the run is
// cancelled. Returns ErrSyncAlreadyRunning if another run is active.
func (e *Engine) Sync(ctx context.Context, cfg *Config) (RunResult, error) {
	if !e.muSync.TryLock() {
		return "", ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	runCfg := e.applyConfig(cfg)
	runCtx := e.beginRun(ctx)

	tStart := time.Now()
	result, err := e.pendingPass(runCtx, runCfg)
	e.endRun(result)
	slog.Info("sync run", "result", result, "took", time.Since(tStart))
	return result, err
}

// Start launches a run in the background. The run lock is taken before
// returning, so a concurrent Start or Sync fails fast with
// ErrSyncAlreadyRunning while the spawned run is active.
func (e *Engine) Start(ctx context.Context, cfg *Config) error {
	if !e.muSync.TryLock() {
		return ErrSyncAlreadyRunning
	}

	runCfg := e.applyConfig(cfg)
	runCtx := e.beginRun(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.muSync.Unlock()

		tStart := time.Now()
		result, err := e.pendingPass(runCtx, runCfg)
		if err != nil {
			slog.Error("sync run", "result", result, "error", err)
		}
		e.endRun(result)
		slog.Info("sync run", "result", result, "took", time.Since(tStart))
	}()

	return nil
}

// Stop cancels the active run, if any. In-flight uploads abort and their
// files return to pending; completed files keep their status. Safe to call
// when idle.
func (e *Engine) Stop() {
	e.stateMu.Lock()
	cancel := e.cancelRun
	e.stateMu.Unlock()

	if cancel != nil {
		slog.Info("sync stop requested")
		cancel()
	}
}

// Wait blocks until any run launched via Start has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// RetryFailed re-enqueues failed files as pending and drives them through the
// regular batch path, making up to RetryAttempts passes with RetryDelay
// between them. It holds the same run lock as Sync, so retries never race a
// main pass over the same records.
func (e *Engine) RetryFailed(ctx context.Context) (RunResult, error) {
	if !e.muSync.TryLock() {
		return "", ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	runCfg := e.Config()
	runCtx := e.beginRun(ctx)

	tStart := time.Now()
	result, err := e.retryPass(runCtx, runCfg)
	e.endRun(result)
	slog.Info("retry run", "result", result, "took", time.Since(tStart))
	return result, err
}

// StartRetry launches a retry run in the background. Like Start, the run
// lock is taken before returning.
func (e *Engine) StartRetry(ctx context.Context) error {
	if !e.muSync.TryLock() {
		return ErrSyncAlreadyRunning
	}

	runCfg := e.Config()
	runCtx := e.beginRun(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.muSync.Unlock()

		tStart := time.Now()
		result, err := e.retryPass(runCtx, runCfg)
		if err != nil {
			slog.Error("retry run", "result", result, "error", err)
		}
		e.endRun(result)
		slog.Info("retry run", "result", result, "took", time.Since(tStart))
	}()

	return nil
}

// pendingPass is one sync pass: query pending, batch, dispatch, settle all.
func (e *Engine) pendingPass(ctx context.Context, cfg Config) (RunResult, error) {
	files, err := e.store.GetPending(ctx)
	if err != nil {
		return e.failRun("get pending files", err)
	}
	if len(files) == 0 {
		slog.Debug("sync pass", "pending", 0)
		return RunDrained, nil
	}

	return e.dispatchBatches(ctx, cfg, files), nil
}

// retryPass drives failed files through the batch path, one pass per attempt,
// until nothing is left failed or the attempts are exhausted.
func (e *Engine) retryPass(ctx context.Context, cfg Config) (RunResult, error) {
	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return RunStopped, nil
			case <-time.After(cfg.RetryDelay):
			}
		}

		failed, err := e.store.GetFailed(ctx)
		if err != nil {
			return e.failRun("get failed files", err)
		}
		if len(failed) == 0 {
			return RunDrained, nil
		}

		slog.Info("retry failed uploads", "attempt", attempt, "files", len(failed))

		// explicit re-enqueue: records never regress to pending on their own
		for _, file := range failed {
			if err := e.store.UpdateStatus(ctx, file.ID, store.StatusPending, file.LastError); err != nil {
				slog.Warn("requeue failed", "path", file.Path, "error", err)
			}
		}

		if result := e.dispatchBatches(ctx, cfg, failed); result == RunStopped {
			return RunStopped, nil
		}
	}

	// attempts exhausted; whatever is still failed stays failed
	return RunDrained, nil
}

// dispatchBatches partitions files and runs every batch of the pass through a
// worker pool bounded by cfg.Concurrency, waiting for all to settle. Batches
// race to completion; a batch's failures never abort its siblings.
func (e *Engine) dispatchBatches(ctx context.Context, cfg Config, files []*store.FileRecord) RunResult {
	batches := CreateBatches(files, cfg.MaxFiles, cfg.MaxBatchBytes)
	slog.Info("sync pass", "files", len(files), "batches", len(batches), "concurrency", cfg.Concurrency)

	var wg sync.WaitGroup
	batchChan := make(chan *Batch, len(batches))

	wg.Add(cfg.Concurrency)
	for range cfg.Concurrency {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case batch, ok := <-batchChan:
					if !ok {
						return
					}
					e.processBatch(ctx, batch)
				}
			}
		}()
	}

	for _, batch := range batches {
		batchChan <- batch
	}
	close(batchChan)
	wg.Wait()

	e.emitter.Emit(EventStats, e.stats.Snapshot())

	if ctx.Err() != nil {
		return RunStopped
	}
	return RunDrained
}

// failRun reports a fatal run-level failure: ERROR event, Idle(error).
func (e *Engine) failRun(op string, err error) (RunResult, error) {
	if wasCancelled(context.Background(), err) {
		return RunStopped, nil
	}
	e.emitter.Emit(EventError, &ErrorData{
		Message: op + " failed",
		Error:   err.Error(),
	})
	return RunError, fmt.Errorf("%s: %w", op, err)
}

// beginRun installs a fresh cancellation signal, resets stats and moves the
// engine to Running.
func (e *Engine) beginRun(ctx context.Context) context.Context {
	runCtx, cancel := context.WithCancel(ctx)

	e.stateMu.Lock()
	e.state = StateRunning
	e.cancelRun = cancel
	e.stateMu.Unlock()

	e.stats.Reset()
	return runCtx
}

// endRun releases the run context and returns the engine to Idle.
func (e *Engine) endRun(result RunResult) {
	e.stateMu.Lock()
	if e.cancelRun != nil {
		e.cancelRun()
		e.cancelRun = nil
	}
	e.state = StateIdle
	e.lastRun = result
	e.stateMu.Unlock()
}

// applyConfig overlays the positive fields of cfg onto the engine config and
// returns the effective copy for this run. Settings persist across runs.
func (e *Engine) applyConfig(cfg *Config) Config {
	e.configMu.Lock()
	defer e.configMu.Unlock()

	e.config = e.config.Merge(cfg)
	return e.config
}

// Config returns the engine's current effective config.
func (e *Engine) Config() Config {
	e.configMu.RLock()
	defer e.configMu.RUnlock()
	return e.config
}

// State returns the engine's lifecycle state.
func (e *Engine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// LastRun returns how the most recent run terminated, or "" before any run.
func (e *Engine) LastRun() RunResult {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.lastRun
}

// Stats returns a snapshot of the current run's counters.
func (e *Engine) Stats() *StatsSnapshot {
	return e.stats.Snapshot()
}

// Subscribe returns a channel receiving engine events.
func (e *Engine) Subscribe() <-chan *Event {
	return e.emitter.Subscribe()
}

// Unsubscribe removes an event subscription.
func (e *Engine) Unsubscribe(ch <-chan *Event) {
	e.emitter.Unsubscribe(ch)
}

// Close stops any active run and closes all event subscriptions.
func (e *Engine) Close() {
	e.Stop()
	e.wg.Wait()
	e.emitter.Close()
}
