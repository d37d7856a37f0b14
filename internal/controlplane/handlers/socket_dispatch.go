package handlers

import (
	"context"
	"fmt"

	"github.com/manavgt54/idesync/internal/sync"
	"github.com/manavgt54/idesync/internal/syncmsg"
)

// DispatchCommands consumes socket messages and drives the sync service,
// acknowledging each command back to its sender.
func DispatchCommands(ctx context.Context, hub *SocketHub, svc SyncService) {
	for {
		select {
		case <-ctx.Done():
			return
		case cm, ok := <-hub.Messages():
			if !ok {
				return
			}
			if reply := handleCommand(svc, cm.Message); reply != nil {
				hub.SendMessage(cm.ConnID, reply)
			}
		}
	}
}

func handleCommand(svc SyncService, msg *syncmsg.Message) *syncmsg.Message {
	switch msg.Type {
	case syncmsg.MsgStartSync:
		var cfg *sync.Config
		if start, ok := msg.Data.(syncmsg.StartSync); ok {
			cfg = start.Config.ToConfig()
		}
		if err := svc.StartSync(cfg); err != nil {
			return syncmsg.NewNack(msg.Id, err.Error())
		}
		return syncmsg.NewAck(msg.Id)

	case syncmsg.MsgStopSync:
		svc.StopSync()
		return syncmsg.NewAck(msg.Id)

	case syncmsg.MsgRetryFailed:
		if err := svc.RetryFailed(); err != nil {
			return syncmsg.NewNack(msg.Id, err.Error())
		}
		return syncmsg.NewAck(msg.Id)

	default:
		return syncmsg.NewNack(msg.Id, fmt.Sprintf("unsupported message type: %s", msg.Type))
	}
}

// PumpEvents broadcasts engine events to every connected socket client until
// the context ends or the subscription closes.
func PumpEvents(ctx context.Context, hub *SocketHub, svc SyncService) {
	events := svc.Subscribe()
	defer svc.Unsubscribe(events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if msg := syncmsg.FromEvent(ev); msg != nil {
				hub.Broadcast(msg)
			}
		}
	}
}
