package syncmsg

import (
	"encoding/json"
	"fmt"

	"github.com/manavgt54/idesync/internal/utils"
)

const IdSize = 3

type Message struct {
	Id   string      `json:"id"`
	Type MessageType `json:"typ"`
	Data any         `json:"dat"`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	// Create a temporary struct to hold the raw JSON data
	type tempMessage struct {
		Id   string          `json:"id"`
		Type MessageType     `json:"typ"`
		Data json.RawMessage `json:"dat"`
	}

	var temp tempMessage
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	// Copy the simple fields
	m.Id = temp.Id
	m.Type = temp.Type

	// Unmarshal Data based on the message type
	switch m.Type {
	case MsgSystem:
		var sys System
		if err := json.Unmarshal(temp.Data, &sys); err != nil {
			return err
		}
		m.Data = sys
	case MsgError:
		var errMsg Error
		if err := json.Unmarshal(temp.Data, &errMsg); err != nil {
			return err
		}
		m.Data = errMsg
	case MsgAck:
		var ack Ack
		if err := json.Unmarshal(temp.Data, &ack); err != nil {
			return err
		}
		m.Data = ack
	case MsgNack:
		var nack Nack
		if err := json.Unmarshal(temp.Data, &nack); err != nil {
			return err
		}
		m.Data = nack
	case MsgStartSync:
		// dat is optional on commands
		var startSync StartSync
		if len(temp.Data) > 0 {
			if err := json.Unmarshal(temp.Data, &startSync); err != nil {
				return err
			}
		}
		m.Data = startSync
	case MsgStopSync:
		m.Data = StopSync{}
	case MsgRetryFailed:
		m.Data = RetryFailed{}
	case MsgProgress:
		var progress Progress
		if err := json.Unmarshal(temp.Data, &progress); err != nil {
			return err
		}
		m.Data = progress
	case MsgBatchComplete:
		var complete BatchComplete
		if err := json.Unmarshal(temp.Data, &complete); err != nil {
			return err
		}
		m.Data = complete
	case MsgStats:
		var stats Stats
		if err := json.Unmarshal(temp.Data, &stats); err != nil {
			return err
		}
		m.Data = stats
	default:
		return fmt.Errorf("unknown message type: %d", m.Type)
	}

	return nil
}

func generateID() string {
	return utils.TokenHex(IdSize)
}
