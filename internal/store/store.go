package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/manavgt54/idesync/internal/db"
	"github.com/manavgt54/idesync/internal/workspace"
)

// FileStatus is the sync lifecycle state of a tracked file.
type FileStatus string

const (
	StatusPending   FileStatus = "pending"
	StatusUploading FileStatus = "uploading"
	StatusUploaded  FileStatus = "uploaded"
	StatusFailed    FileStatus = "failed"
)

// FileRecord tracks one workspace file through the sync lifecycle.
// Path is workspace-relative and slash-normalized.
type FileRecord struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Size      int64      `json:"size"`
	ModTime   time.Time  `json:"modTime"`
	Status    FileStatus `json:"status"`
	LastError string     `json:"lastError,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS file_records (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    size INTEGER NOT NULL,
    mtime TEXT NOT NULL, -- UTC, fixed-width nano timestamp
    status TEXT NOT NULL DEFAULT 'pending',
    last_error TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL -- UTC, fixed-width nano timestamp
);

CREATE INDEX IF NOT EXISTS idx_records_status ON file_records(status);
`

// timeLayout keeps trailing zeros so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// dbFileRecord is used for scanning from the database where times are stored as TEXT.
type dbFileRecord struct {
	ID        string `db:"id"`
	Path      string `db:"path"`
	Size      int64  `db:"size"`
	ModTime   string `db:"mtime"`
	Status    string `db:"status"`
	LastError string `db:"last_error"`
	UpdatedAt string `db:"updated_at"`
}

func (r *dbFileRecord) toRecord() (*FileRecord, error) {
	modTime, err := time.Parse(time.RFC3339Nano, r.ModTime)
	if err != nil {
		return nil, fmt.Errorf("parse mtime for %s: %w", r.Path, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", r.Path, err)
	}
	return &FileRecord{
		ID:        r.ID,
		Path:      r.Path,
		Size:      r.Size,
		ModTime:   modTime,
		Status:    FileStatus(r.Status),
		LastError: r.LastError,
		UpdatedAt: updatedAt,
	}, nil
}

// LocalStore is the persistent file metadata store backed by SQLite. It owns
// the record table plus the machinery that feeds it: workspace scans, the
// file watcher and the ignore list.
type LocalStore struct {
	ws      *workspace.Workspace
	db      *sqlx.DB
	ignore  *IgnoreList
	profile *workspace.SyncProfile
}

func NewLocalStore(ws *workspace.Workspace) *LocalStore {
	return &LocalStore{
		ws: ws,
	}
}

// Open loads the ignore list and sync profile and opens the record database.
func (s *LocalStore) Open() error {
	if s.db != nil {
		return fmt.Errorf("store already open")
	}

	profile, err := workspace.LoadProfile(s.ws.ProfilePath)
	if err != nil {
		return err
	}
	s.profile = profile

	s.ignore = NewIgnoreList(s.ws.IgnorePath)
	s.ignore.Load()

	database, err := db.NewSqliteDB(db.WithPath(s.ws.DBPath), db.WithMaxOpenConns(1))
	if err != nil {
		return fmt.Errorf("failed to open file store: %w", err)
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return fmt.Errorf("failed to initialize store schema: %w", err)
	}

	s.db = database
	return nil
}

func (s *LocalStore) Close() error {
	if s.db == nil {
		return fmt.Errorf("store not open")
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	slog.Debug("file store closed")
	return nil
}

// GetPending returns all pending records in queue order (oldest change first).
func (s *LocalStore) GetPending(ctx context.Context) ([]*FileRecord, error) {
	return s.getByStatus(ctx, StatusPending)
}

// GetFailed returns all failed records in queue order.
func (s *LocalStore) GetFailed(ctx context.Context) ([]*FileRecord, error) {
	return s.getByStatus(ctx, StatusFailed)
}

func (s *LocalStore) getByStatus(ctx context.Context, status FileStatus) ([]*FileRecord, error) {
	var rows []dbFileRecord
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, path, size, mtime, status, last_error, updated_at FROM file_records WHERE status = ? ORDER BY updated_at ASC, path ASC",
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", status, err)
	}

	records := make([]*FileRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			slog.Error("bad record row, skipping", "path", rows[i].Path, "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Get retrieves a single record by its workspace-relative path.
// Returns nil when the path is not tracked.
func (s *LocalStore) Get(ctx context.Context, path string) (*FileRecord, error) {
	var row dbFileRecord
	err := s.db.GetContext(ctx, &row,
		"SELECT id, path, size, mtime, status, last_error, updated_at FROM file_records WHERE path = ?", path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query path %s: %w", path, err)
	}
	return row.toRecord()
}

// UpdateStatus transitions a record to the given status. The last error is
// cleared on success states and recorded on failure.
func (s *LocalStore) UpdateStatus(ctx context.Context, id string, status FileStatus, lastError string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE file_records SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		string(status), lastError, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status for record %s: %w", id, err)
	}
	return nil
}

// MarkPending upserts a record for a changed file and queues it for upload.
// Existing records keep their id; status and last error reset.
func (s *LocalStore) MarkPending(ctx context.Context, path string, size int64, modTime time.Time) error {
	now := formatTime(time.Now())
	record := dbFileRecord{
		ID:        uuid.NewString(),
		Path:      path,
		Size:      size,
		ModTime:   formatTime(modTime),
		Status:    string(StatusPending),
		UpdatedAt: now,
	}

	query := `INSERT INTO file_records (id, path, size, mtime, status, last_error, updated_at)
	          VALUES (:id, :path, :size, :mtime, :status, '', :updated_at)
	          ON CONFLICT(path) DO UPDATE SET
	            size = excluded.size,
	            mtime = excluded.mtime,
	            status = excluded.status,
	            last_error = '',
	            updated_at = excluded.updated_at`
	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to mark pending %s: %w", path, err)
	}
	return nil
}

// Remove drops a record, typically after its file vanished from the workspace.
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM file_records WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to remove record %s: %w", path, err)
	}
	return nil
}

// RecoverStale requeues records stuck in "uploading" from a previous crash.
func (s *LocalStore) RecoverStale(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE file_records SET status = ?, updated_at = ? WHERE status = ?",
		string(StatusPending), formatTime(time.Now()), string(StatusUploading),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to recover stale records: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Warn("requeued stale uploads", "count", n)
	}
	return n, nil
}

// CountByStatus returns the number of tracked records per status.
func (s *LocalStore) CountByStatus(ctx context.Context) (map[FileStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS count FROM file_records GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	counts := make(map[FileStatus]int, len(rows))
	for _, row := range rows {
		counts[FileStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// getAll returns every tracked record keyed by path. Used by the scanner.
func (s *LocalStore) getAll(ctx context.Context) (map[string]*FileRecord, error) {
	var rows []dbFileRecord
	err := s.db.SelectContext(ctx, &rows, "SELECT id, path, size, mtime, status, last_error, updated_at FROM file_records")
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	records := make(map[string]*FileRecord, len(rows))
	for i := range rows {
		record, err := rows[i].toRecord()
		if err != nil {
			slog.Error("bad record row, skipping", "path", rows[i].Path, "error", err)
			continue
		}
		records[record.Path] = record
	}
	return records, nil
}

// Workspace returns the workspace this store tracks.
func (s *LocalStore) Workspace() *workspace.Workspace {
	return s.ws
}
