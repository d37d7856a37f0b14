package syncapi

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// api common
	ErrNoServerURL = errors.New("api: server url missing")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Upload errors
	CodeUploadFailed     = "E_UPLOAD_FAILED"     // a failure during the operation to upload a file.
	CodeFileTooLarge     = "E_FILE_TOO_LARGE"    // the uploaded file exceeds the server's size limit.
	CodeInvalidPath      = "E_INVALID_PATH"      // the provided workspace path is invalid or malformed.
	CodeChecksumMismatch = "E_CHECKSUM_MISMATCH" // the server-side digest did not match the one sent.
	CodeQuotaExceeded    = "E_QUOTA_EXCEEDED"    // the workspace storage quota has been exhausted.
)

type Error interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// BaseError provides common error functionality
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *BaseError) ErrorCode() string    { return e.Code }
func (e *BaseError) ErrorMessage() string { return e.Message }

// APIError represents IDESync API errors
type APIError struct {
	BaseError
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		BaseError: BaseError{
			Code:    code,
			Message: message,
		},
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

var _ Error = (*APIError)(nil)

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok {
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("api error: %s %s", operation, resp.Status)
	}

	return nil
}
