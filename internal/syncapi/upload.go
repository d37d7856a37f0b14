package syncapi

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/manavgt54/idesync/internal/sync"
)

const (
	v1FilesUpload = "/api/v1/files/upload"
)

// UploadResponse is the backend's acknowledgement of a stored file
type UploadResponse struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// Upload sends one file to the backend as a single multipart request
func (c *Client) Upload(ctx context.Context, upload *sync.UploadRequest) error {
	var apiResp *UploadResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetRetryCount(0). // retries are owned by the sync engine
		SetFileBytes("file", path.Base(upload.Path), upload.Content).
		SetFormData(map[string]string{
			"path":  upload.Path,
			"size":  strconv.FormatInt(upload.Size, 10),
			"mtime": upload.ModTime.UTC().Format(time.RFC3339Nano),
			"hash":  upload.Digest,
		}).
		SetSuccessResult(&apiResp).
		Post(v1FilesUpload)

	if err := handleAPIError(resp, err, "file upload"); err != nil {
		return err
	}

	if apiResp != nil && upload.Digest != "" && apiResp.Hash != "" && apiResp.Hash != upload.Digest {
		slog.Warn("upload digest mismatch", "path", upload.Path, "sent", upload.Digest, "stored", apiResp.Hash)
	}

	return nil
}

var _ sync.Uploader = (*Client)(nil)
