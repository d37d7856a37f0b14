package syncmsg

import "fmt"

type MessageType uint16

const (
	MsgSystem MessageType = iota
	MsgError
	MsgAck
	MsgNack
	MsgStartSync
	MsgStopSync
	MsgRetryFailed
	MsgProgress
	MsgBatchComplete
	MsgStats
)

func (t MessageType) String() string {
	switch t {
	case MsgSystem:
		return "SYSTEM"
	case MsgError:
		return "ERROR"
	case MsgAck:
		return "ACK"
	case MsgNack:
		return "NACK"
	case MsgStartSync:
		return "START_SYNC"
	case MsgStopSync:
		return "STOP_SYNC"
	case MsgRetryFailed:
		return "RETRY_FAILED"
	case MsgProgress:
		return "PROGRESS"
	case MsgBatchComplete:
		return "BATCH_COMPLETE"
	case MsgStats:
		return "STATS"
	default:
		return fmt.Sprintf("???(%d)", t)
	}
}
