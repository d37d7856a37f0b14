package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
)

// ScanResult summarizes one workspace scan.
type ScanResult struct {
	Seen    int           `json:"seen"`
	Added   int           `json:"added"`
	Updated int           `json:"updated"`
	Removed int           `json:"removed"`
	Took    time.Duration `json:"took"`
}

// Scan walks the workspace and reconciles the record table with what is on
// disk: new and modified files (size or mtime changed) become pending,
// records whose files vanished are dropped. Ignore rules and the sync
// profile decide what is tracked at all.
func (s *LocalStore) Scan(ctx context.Context) (*ScanResult, error) {
	started := time.Now()

	known, err := s.getAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	seen := mapset.NewSet[string]()

	walkErr := filepath.WalkDir(s.ws.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("scan skipping entry", "path", path, "error", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, relErr := s.ws.RelPath(path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			if s.ignore.ShouldIgnore(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if s.ignore.ShouldIgnore(relPath) || !s.profile.Matches(relPath) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			slog.Warn("scan stat failed", "path", relPath, "error", infoErr)
			return nil
		}

		seen.Add(relPath)
		result.Seen++

		existing := known[relPath]
		switch {
		case existing == nil:
			if err := s.MarkPending(ctx, relPath, info.Size(), info.ModTime()); err != nil {
				return err
			}
			result.Added++
		case existing.Size != info.Size() || !existing.ModTime.Equal(info.ModTime()):
			if err := s.MarkPending(ctx, relPath, info.Size(), info.ModTime()); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("workspace scan: %w", walkErr)
	}

	// prune records whose files are gone
	knownSet := mapset.NewSet[string]()
	for path := range known {
		knownSet.Add(path)
	}
	for _, gone := range knownSet.Difference(seen).ToSlice() {
		if err := s.Remove(ctx, gone); err != nil {
			return nil, err
		}
		result.Removed++
	}

	result.Took = time.Since(started)
	slog.Info("workspace scan",
		"seen", result.Seen,
		"added", result.Added,
		"updated", result.Updated,
		"removed", result.Removed,
		"took", result.Took,
	)
	return result, nil
}

// ReconcilePath reconciles a single absolute path with the record table.
// Used by the watcher pump: a write or create queues the file, a delete
// drops its record. Paths outside the sync scope are ignored.
func (s *LocalStore) ReconcilePath(ctx context.Context, absPath string) error {
	relPath, err := s.ws.RelPath(absPath)
	if err != nil {
		return nil
	}
	if s.ignore.ShouldIgnore(relPath) || !s.profile.Matches(relPath) {
		return nil
	}

	info, statErr := os.Stat(absPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return s.Remove(ctx, relPath)
		}
		return nil
	}
	if info.IsDir() {
		return nil
	}

	slog.Debug("file changed", "path", relPath, "size", humanize.Bytes(uint64(info.Size())))
	return s.MarkPending(ctx, relPath, info.Size(), info.ModTime())
}
