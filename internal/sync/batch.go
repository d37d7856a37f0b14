package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/manavgt54/idesync/internal/store"
)

// processBatch drives one batch's files in order: content read, digest,
// upload, status bookkeeping. One file's failure never aborts the batch; on
// cancellation the in-flight file reverts to pending, unstarted files are
// left pending and no BATCH_COMPLETE is emitted.
func (e *Engine) processBatch(ctx context.Context, batch *Batch) {
	batchID := uuid.NewString()
	e.stats.BatchDispatched(batchID, len(batch.Files), batch.Bytes)

	// individual file errors are contained below; anything escaping the
	// per-file handling surfaces as a batch-level ERROR event
	defer func() {
		if r := recover(); r != nil {
			slog.Error("batch panic", "batch", batchID, "panic", r)
			e.emitter.Emit(EventError, &ErrorData{
				BatchID: batchID,
				Message: "batch processing panicked",
				Error:   fmt.Sprint(r),
			})
		}
	}()

	slog.Debug("batch start", "batch", batchID, "files", len(batch.Files), "size", humanize.Bytes(uint64(batch.Bytes)))

	processed := 0
	for _, file := range batch.Files {
		if ctx.Err() != nil {
			// unstarted files are still pending in the store
			return
		}

		if cancelled := e.processFile(ctx, file); cancelled {
			return
		}

		processed++
		snap := e.stats.Snapshot()
		e.emitter.Emit(EventProgress, &ProgressData{
			BatchID:  batchID,
			File:     file.Path,
			Progress: snap.Progress(),
			Stats:    snap,
		})
	}

	e.emitter.Emit(EventBatchComplete, &BatchCompleteData{
		BatchID:        batchID,
		FilesProcessed: processed,
		Stats:          e.stats.Snapshot(),
	})
}

// processFile uploads one file and settles its record. Returns true if the
// run was cancelled mid-file, in which case the record is back to pending and
// no counters moved.
func (e *Engine) processFile(ctx context.Context, file *store.FileRecord) bool {
	if err := e.store.UpdateStatus(ctx, file.ID, store.StatusUploading, ""); err != nil {
		slog.Warn("mark uploading", "path", file.Path, "error", err)
	}

	content, err := e.store.ReadContent(ctx, file)
	if err != nil {
		if wasCancelled(ctx, err) {
			e.revertPending(file)
			return true
		}
		e.failFile(file, err)
		return false
	}

	digest, err := e.digester.DigestFile(file, content)
	if err != nil {
		// integrity is auxiliary, the upload proceeds unverified
		slog.Warn("digest unavailable", "path", file.Path, "error", err)
		digest = ""
	}

	err = e.uploader.Upload(ctx, &UploadRequest{
		Path:    file.Path,
		Size:    file.Size,
		ModTime: file.ModTime,
		Digest:  digest,
		Content: content,
	})
	if err != nil {
		if wasCancelled(ctx, err) {
			e.revertPending(file)
			return true
		}
		e.failFile(file, err)
		return false
	}

	if err := e.store.UpdateStatus(context.Background(), file.ID, store.StatusUploaded, ""); err != nil {
		slog.Warn("mark uploaded", "path", file.Path, "error", err)
	}
	e.stats.FileUploaded(file.Size)
	slog.Info("sync", "op", "upload", "path", file.Path, "size", humanize.Bytes(uint64(file.Size)))
	return false
}

// failFile settles a record as failed and counts it. Uses a fresh context so
// the settle lands even when the run context dies right after the failure.
func (e *Engine) failFile(file *store.FileRecord, err error) {
	slog.Warn("sync", "op", "upload", "path", file.Path, "error", err)
	if uerr := e.store.UpdateStatus(context.Background(), file.ID, store.StatusFailed, err.Error()); uerr != nil {
		slog.Warn("mark failed", "path", file.Path, "error", uerr)
	}
	e.stats.FileFailed()
}

// revertPending returns a cancelled in-flight file to the queue. The run
// context is already cancelled, so the update runs on a fresh one.
func (e *Engine) revertPending(file *store.FileRecord) {
	slog.Debug("upload cancelled", "path", file.Path)
	if err := e.store.UpdateStatus(context.Background(), file.ID, store.StatusPending, file.LastError); err != nil {
		slog.Warn("revert pending", "path", file.Path, "error", err)
	}
}

// wasCancelled reports whether err is the run being aborted rather than a
// content failure.
func wasCancelled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
