package sync

import (
	"sync"
	"time"
)

const eventBufferSize = 16

// EventType identifies an engine event.
type EventType string

const (
	EventProgress      EventType = "PROGRESS"
	EventBatchComplete EventType = "BATCH_COMPLETE"
	EventError         EventType = "ERROR"
	EventStats         EventType = "STATS"
)

// Event is a single engine notification for the host.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// ProgressData reports one processed file.
type ProgressData struct {
	BatchID  string         `json:"batchId"`
	File     string         `json:"file"`
	Progress float64        `json:"progress"`
	Stats    *StatsSnapshot `json:"stats"`
}

// BatchCompleteData reports a fully processed batch.
type BatchCompleteData struct {
	BatchID        string         `json:"batchId"`
	FilesProcessed int            `json:"filesProcessed"`
	Stats          *StatsSnapshot `json:"stats"`
}

// ErrorData reports a run- or batch-level failure.
type ErrorData struct {
	BatchID string `json:"batchId,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Emitter broadcasts engine events to subscribers.
type Emitter struct {
	subs []chan *Event
	mu   sync.RWMutex
}

func NewEmitter() *Emitter {
	return &Emitter{
		subs: make([]chan *Event, 0),
	}
}

// Subscribe returns a buffered channel receiving engine events.
func (e *Emitter) Subscribe() <-chan *Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan *Event, eventBufferSize)
	e.subs = append(e.subs, ch)
	return ch
}

// Unsubscribe closes and removes a subscription channel.
func (e *Emitter) Unsubscribe(ch <-chan *Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subs {
		if sub == ch {
			close(sub)
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
}

// Emit broadcasts an event to all subscribers.
func (e *Emitter) Emit(typ EventType, data any) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	event := &Event{Type: typ, Time: time.Now(), Data: data}
	for _, sub := range e.subs {
		select {
		case sub <- event:
		default:
			// subscriber is full, skip to avoid blocking the engine
		}
	}
}

// Close closes all subscriptions.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subs {
		close(sub)
	}
	e.subs = make([]chan *Event, 0)
}
