package store

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrContentUnavailable marks a file whose bytes could not be read, usually
// because it was deleted or made unreadable between scan and upload.
var ErrContentUnavailable = errors.New("file content unavailable")

// ReadContent loads the current bytes of a tracked file from disk.
func (s *LocalStore) ReadContent(ctx context.Context, file *FileRecord) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	absPath := s.ws.AbsPath(file.Path)
	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrContentUnavailable, file.Path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrContentUnavailable, file.Path, err)
	}
	return data, nil
}
