package syncmsg

import (
	"github.com/manavgt54/idesync/internal/sync"
)

type Progress struct {
	BatchId  string              `json:"bid"`
	Path     string              `json:"pth"`
	Progress float64             `json:"pct"`
	Stats    *sync.StatsSnapshot `json:"sts,omitempty"`
}

type BatchComplete struct {
	BatchId        string              `json:"bid"`
	FilesProcessed int                 `json:"fls"`
	Stats          *sync.StatsSnapshot `json:"sts,omitempty"`
}

type Stats struct {
	Stats *sync.StatsSnapshot `json:"sts"`
}

func NewProgress(batchId string, path string, progress float64, stats *sync.StatsSnapshot) *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgProgress,
		Data: &Progress{
			BatchId:  batchId,
			Path:     path,
			Progress: progress,
			Stats:    stats,
		},
	}
}

func NewBatchComplete(batchId string, filesProcessed int, stats *sync.StatsSnapshot) *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgBatchComplete,
		Data: &BatchComplete{
			BatchId:        batchId,
			FilesProcessed: filesProcessed,
			Stats:          stats,
		},
	}
}

func NewStats(stats *sync.StatsSnapshot) *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgStats,
		Data: &Stats{Stats: stats},
	}
}

// FromEvent converts an engine event to its wire message. Returns nil for
// event types that have no wire form.
func FromEvent(ev *sync.Event) *Message {
	if ev == nil {
		return nil
	}

	switch data := ev.Data.(type) {
	case *sync.ProgressData:
		return NewProgress(data.BatchID, data.File, data.Progress, data.Stats)
	case *sync.BatchCompleteData:
		return NewBatchComplete(data.BatchID, data.FilesProcessed, data.Stats)
	case *sync.ErrorData:
		return NewError(data.BatchID, data.Message, data.Error)
	case *sync.StatsSnapshot:
		return NewStats(data)
	default:
		return nil
	}
}
