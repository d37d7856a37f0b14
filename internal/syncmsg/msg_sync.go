package syncmsg

import (
	"time"

	"github.com/manavgt54/idesync/internal/sync"
)

// SyncConfig is the wire form of the engine config. All fields are optional;
// zero values leave the engine's current setting untouched. RetryDelay is in
// milliseconds.
type SyncConfig struct {
	MaxFiles      int   `json:"maxFiles,omitempty"`
	MaxBatchBytes int64 `json:"maxBatchBytes,omitempty"`
	MaxSize       int64 `json:"maxSize,omitempty"` // older clients send maxSize
	Concurrency   int   `json:"concurrency,omitempty"`
	RetryAttempts int   `json:"retryAttempts,omitempty"`
	RetryDelayMs  int64 `json:"retryDelay,omitempty"`
}

// ToConfig converts the wire config to an engine config overlay.
func (c *SyncConfig) ToConfig() *sync.Config {
	if c == nil {
		return nil
	}

	maxBytes := c.MaxBatchBytes
	if maxBytes == 0 {
		maxBytes = c.MaxSize
	}

	return &sync.Config{
		MaxFiles:      c.MaxFiles,
		MaxBatchBytes: maxBytes,
		Concurrency:   c.Concurrency,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    time.Duration(c.RetryDelayMs) * time.Millisecond,
	}
}

type StartSync struct {
	Config *SyncConfig `json:"cfg,omitempty"`
}

type StopSync struct{}

type RetryFailed struct{}

func NewStartSync(cfg *SyncConfig) *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgStartSync,
		Data: &StartSync{Config: cfg},
	}
}

func NewStopSync() *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgStopSync,
		Data: &StopSync{},
	}
}

func NewRetryFailed() *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgRetryFailed,
		Data: &RetryFailed{},
	}
}
