package daemon

import (
	"context"

	"github.com/manavgt54/idesync/internal/controlplane/handlers"
	"github.com/manavgt54/idesync/internal/store"
	"github.com/manavgt54/idesync/internal/sync"
)

// The daemon is the service behind the control plane: commands act on the
// engine, queries read the engine and the store. Background runs bind to the
// daemon's root context so they outlive the HTTP request that started them.

func (d *Daemon) StartSync(cfg *sync.Config) error {
	return d.engine.Start(d.runCtx, cfg)
}

func (d *Daemon) StopSync() {
	d.engine.Stop()
}

func (d *Daemon) RetryFailed() error {
	return d.engine.StartRetry(d.runCtx)
}

func (d *Daemon) SyncState() sync.State {
	return d.engine.State()
}

func (d *Daemon) LastRun() sync.RunResult {
	return d.engine.LastRun()
}

func (d *Daemon) SyncStats() *sync.StatsSnapshot {
	return d.engine.Stats()
}

func (d *Daemon) QueueCounts(ctx context.Context) (handlers.QueueCounts, error) {
	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		return handlers.QueueCounts{}, err
	}
	return handlers.QueueCounts{
		Pending:   counts[store.StatusPending],
		Uploading: counts[store.StatusUploading],
		Uploaded:  counts[store.StatusUploaded],
		Failed:    counts[store.StatusFailed],
	}, nil
}

func (d *Daemon) Subscribe() <-chan *sync.Event {
	return d.engine.Subscribe()
}

func (d *Daemon) Unsubscribe(ch <-chan *sync.Event) {
	d.engine.Unsubscribe(ch)
}

func (d *Daemon) ScanWorkspace(ctx context.Context) (*store.ScanResult, error) {
	return d.store.Scan(ctx)
}

var (
	_ handlers.SyncService      = (*Daemon)(nil)
	_ handlers.WorkspaceService = (*Daemon)(nil)
)
