package store

import (
	"bufio"
	"log/slog"
	"os"

	"github.com/manavgt54/idesync/internal/utils"
	gitignore "github.com/sabhiram/go-gitignore"
)

var defaultIgnoreLines = []string{
	// daemon's own files
	".idesync/",
	".syncignore",
	// deps and build output
	"node_modules/",
	"dist/",
	"build/",
	"out/",
	"coverage/",
	".cache/",
	"__pycache__/",
	"*.py[cod]",
	"venv/",
	".venv/",
	// VCS and IDE
	".git",
	".svn",
	".hg",
	".vscode",
	".idea",
	// scratch
	"*.tmp",
	"*.swp",
	"*.log",
	"logs/",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
}

// IgnoreList filters workspace paths with gitignore semantics. Built-in
// defaults always apply; a .syncignore file at the workspace root adds rules.
type IgnoreList struct {
	path   string
	ignore *gitignore.GitIgnore
}

func NewIgnoreList(path string) *IgnoreList {
	return &IgnoreList{path: path}
}

func (l *IgnoreList) Load() {
	ignoreLines := defaultIgnoreLines

	if utils.FileExists(l.path) {
		rules := 0
		file, err := os.Open(l.path)
		if err != nil {
			slog.Warn("failed to open ignore file", "path", l.path, "error", err)
		} else {
			defer file.Close()

			scanner := bufio.NewScanner(file)
			for scanner.Scan() {
				line := scanner.Text()
				if line != "" {
					ignoreLines = append(ignoreLines, line)
					rules++
				}
			}

			if err := scanner.Err(); err != nil {
				slog.Warn("error reading ignore file", "path", l.path, "error", err)
			} else {
				slog.Info("loaded ignore file", "path", l.path, "rules", rules)
			}
		}
	}

	l.ignore = gitignore.CompileIgnoreLines(ignoreLines...)
}

// ShouldIgnore reports whether the workspace-relative path is excluded from sync.
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	if l.ignore == nil {
		l.Load()
	}
	return l.ignore.MatchesPath(relPath)
}
