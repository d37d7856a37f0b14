package syncmsg

type Error struct {
	BatchId string `json:"bid,omitempty"`
	Message string `json:"msg"`
	Error   string `json:"err"`
}

func NewError(batchId string, msg string, err string) *Message {
	return &Message{
		Id:   generateID(),
		Type: MsgError,
		Data: &Error{
			BatchId: batchId,
			Message: msg,
			Error:   err,
		},
	}
}
