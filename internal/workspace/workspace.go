package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/manavgt54/idesync/internal/utils"
)

const (
	metadataDir = ".idesync"
	logsDir     = "logs"
	lockFile    = "idesync.lock"
	stateFile   = "state.db"
	profileFile = "profile.yaml"
	ignoreFile  = ".syncignore"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

// Workspace is the local IDE project directory being kept in sync. All of
// the daemon's own state lives under the metadata dir so it never collides
// with project files.
type Workspace struct {
	Root        string
	MetadataDir string
	LogsDir     string
	DBPath      string
	ProfilePath string
	IgnorePath  string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	metaDir := filepath.Join(root, metadataDir)
	lockFilePath := filepath.Join(metaDir, lockFile)

	return &Workspace{
		Root:        root,
		MetadataDir: metaDir,
		LogsDir:     filepath.Join(metaDir, logsDir),
		DBPath:      filepath.Join(metaDir, stateFile),
		ProfilePath: filepath.Join(metaDir, profileFile),
		IgnorePath:  filepath.Join(root, ignoreFile),
		flock:       flock.New(lockFilePath),
	}, nil
}

func (w *Workspace) Lock() error {
	// create a .idesync/idesync.lock file so that other daemon instances cannot claim the workspace
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

func (w *Workspace) Setup() error {
	if !utils.DirExists(w.Root) {
		return fmt.Errorf("workspace root does not exist: %s", w.Root)
	}

	if err := w.Lock(); err != nil {
		return err
	}

	slog.Info("workspace", "root", w.Root)

	for _, dir := range []string{w.MetadataDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// AbsPath returns the absolute path for a workspace-relative path.
func (w *Workspace) AbsPath(relPath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(relPath))
}

// RelPath returns the workspace-relative, slash-normalized path of an absolute path.
func (w *Workspace) RelPath(absPath string) (string, error) {
	relPath, err := filepath.Rel(w.Root, absPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("path outside workspace: %s", absPath)
	}
	return NormPath(relPath), nil
}

// IsMetadataPath reports whether the path lives under the daemon's own metadata dir.
func (w *Workspace) IsMetadataPath(absPath string) bool {
	rel, err := filepath.Rel(w.MetadataDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// NormPath normalizes a path by cleaning it, replacing backslashes with slashes, and trimming leading slashes
func NormPath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	return path
}
