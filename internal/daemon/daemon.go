package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/manavgt54/idesync/internal/controlplane"
	"github.com/manavgt54/idesync/internal/controlplane/handlers"
	"github.com/manavgt54/idesync/internal/store"
	"github.com/manavgt54/idesync/internal/sync"
	"github.com/manavgt54/idesync/internal/syncapi"
	"github.com/manavgt54/idesync/internal/workspace"
)

const (
	DefaultHTTPAddr     = "localhost:7438"
	DefaultSyncInterval = 5 * time.Second
	DefaultScanInterval = 5 * time.Minute

	shutdownTimeout = 10 * time.Second
)

// Config assembles one daemon instance.
type Config struct {
	// WorkspaceDir is the IDE workspace directory to keep in sync.
	WorkspaceDir string

	// ServerURL is the remote file store endpoint.
	ServerURL string

	// Token is the bearer token for the remote store. Optional.
	Token string

	// HTTPAddr is the control plane bind address.
	HTTPAddr string

	// HTTPToken gates the control plane. Empty disables auth.
	HTTPToken string

	// SyncInterval is how often the daemon re-invokes a sync pass. Each
	// pass is one-shot; the timer is what keeps the workspace converging.
	SyncInterval time.Duration

	// ScanInterval is how often the workspace is re-walked as a safety net
	// for changes the watcher missed.
	ScanInterval time.Duration

	// Sync overlays the engine defaults (batch bounds, concurrency, retry).
	Sync *sync.Config
}

func (c *Config) Validate() error {
	if c.WorkspaceDir == "" {
		return errors.New("workspace dir is required")
	}
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = DefaultScanInterval
	}
	return nil
}

// Daemon wires the workspace, the local store, the sync engine and the
// control plane together and owns their lifecycles.
type Daemon struct {
	config  *Config
	ws      *workspace.Workspace
	store   *store.LocalStore
	api     *syncapi.Client
	engine  *sync.Engine
	watcher *store.Watcher
	hub     *handlers.SocketHub
	cps     *controlplane.Server

	// runCtx is the root context of Start; background runs launched from
	// control plane requests are bound to it, not to the request context.
	runCtx context.Context
}

func New(config *Config) (*Daemon, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("daemon config: %w", err)
	}

	ws, err := workspace.NewWorkspace(config.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	api, err := syncapi.New(&syncapi.Config{
		BaseURL: config.ServerURL,
		Token:   config.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	localStore := store.NewLocalStore(ws)
	engine := sync.NewEngine(localStore, api,
		sync.WithConfig(config.Sync),
		sync.WithDigester(sync.NewCachedDigester(sync.SHA256Digester{})),
	)

	d := &Daemon{
		config:  config,
		ws:      ws,
		store:   localStore,
		api:     api,
		engine:  engine,
		watcher: store.NewWatcher(ws.Root),
		hub:     handlers.NewSocketHub(),
	}
	d.cps = controlplane.NewServer(&controlplane.ServerConfig{
		Addr:      config.HTTPAddr,
		AuthToken: config.HTTPToken,
	}, d, d, d.hub, ws.Root)

	return d, nil
}

// Start brings the daemon up and blocks until ctx is cancelled or a fatal
// component failure occurs.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("daemon start", "workspace", d.ws.Root, "server", d.api.BaseURL())

	if err := d.ws.Setup(); err != nil {
		return fmt.Errorf("failed to setup workspace: %w", err)
	}
	if err := d.store.Open(); err != nil {
		d.ws.Unlock()
		return fmt.Errorf("failed to open store: %w", err)
	}

	// files stuck "uploading" from a crashed daemon go back in the queue
	if _, err := d.store.RecoverStale(ctx); err != nil {
		slog.Warn("stale record recovery", "error", err)
	}

	// the initial scan queues everything that changed while the daemon was
	// down; failures are not fatal, the scan timer retries
	if _, err := d.store.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("initial scan", "error", err)
	}

	d.watcher.FilterPaths(d.ws.IsMetadataPath)
	if err := d.watcher.Start(ctx); err != nil {
		d.store.Close()
		d.ws.Unlock()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	d.runCtx = ctx

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := d.cps.Start(egCtx); err != nil {
			return fmt.Errorf("failed to start control plane: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		d.hub.Run(egCtx)
		return nil
	})

	eg.Go(func() error {
		handlers.DispatchCommands(egCtx, d.hub, d)
		return nil
	})

	eg.Go(func() error {
		handlers.PumpEvents(egCtx, d.hub, d)
		return nil
	})

	eg.Go(func() error {
		d.pumpWatcherEvents(egCtx)
		return nil
	})

	eg.Go(func() error {
		d.runSyncTimer(egCtx)
		return nil
	})

	eg.Go(func() error {
		d.runScanTimer(egCtx)
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		slog.Info("shutting down daemon")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return d.Stop(shutdownCtx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("daemon failure", "error", err)
		return err
	}

	slog.Info("daemon stopped")
	return nil
}

// Stop tears the daemon down: the active run is cancelled, connected
// control plane clients are dropped and the store is closed.
func (d *Daemon) Stop(ctx context.Context) error {
	d.engine.Close()
	d.watcher.Stop()
	d.hub.Shutdown()

	err := d.cps.Stop(ctx)

	if cerr := d.store.Close(); cerr != nil {
		slog.Warn("store close", "error", cerr)
	}
	d.api.Close()
	if uerr := d.ws.Unlock(); uerr != nil {
		slog.Warn("workspace unlock", "error", uerr)
	}

	if err != nil {
		return fmt.Errorf("failed to stop control plane: %w", err)
	}
	return nil
}

// runSyncTimer re-invokes one-shot sync passes. An immediate pass runs at
// startup so a fresh daemon converges without waiting a full interval.
func (d *Daemon) runSyncTimer(ctx context.Context) {
	d.syncPass(ctx)

	// a timer and not a ticker, so passes that outlast the interval don't
	// queue ticks behind themselves
	timer := time.NewTimer(d.config.SyncInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.syncPass(ctx)
			timer.Reset(d.config.SyncInterval)
		}
	}
}

func (d *Daemon) syncPass(ctx context.Context) {
	_, err := d.engine.Sync(ctx, nil)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, sync.ErrSyncAlreadyRunning) {
		// a host-started run is in flight, the next tick catches up
		slog.Debug("sync pass skipped", "reason", "already running")
		return
	}
	slog.Error("sync pass", "error", err)
}

// runScanTimer re-walks the workspace periodically. The watcher catches most
// changes live; the scan sweeps up anything it missed.
func (d *Daemon) runScanTimer(ctx context.Context) {
	timer := time.NewTimer(d.config.ScanInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := d.store.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("scheduled scan", "error", err)
			}
			timer.Reset(d.config.ScanInterval)
		}
	}
}

// pumpWatcherEvents feeds debounced file events into the record table.
func (d *Daemon) pumpWatcherEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			if err := d.store.ReconcilePath(ctx, event.Path()); err != nil {
				slog.Warn("reconcile path", "path", event.Path(), "error", err)
			}
		}
	}
}
