package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/sync"
	"github.com/manavgt54/idesync/internal/syncmsg"
)

func TestSocketHub_CommandRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newFakeService()
	hub := NewSocketHub()
	go hub.Run(ctx)
	go DispatchCommands(ctx, hub, svc)

	r := gin.New()
	r.GET("/v1/sync/socket", hub.Handler)
	srv := httptest.NewServer(r)
	defer srv.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, "ws://"+srv.Listener.Addr().String()+"/v1/sync/socket", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	// hello
	var hello syncmsg.Message
	if err := wsjson.Read(dialCtx, conn, &hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != syncmsg.MsgSystem {
		t.Fatalf("expected SYSTEM hello, got %s", hello.Type)
	}

	// command
	cmd := syncmsg.NewStartSync(&syncmsg.SyncConfig{MaxFiles: 7})
	if err := wsjson.Write(dialCtx, conn, cmd); err != nil {
		t.Fatalf("write command: %v", err)
	}

	var reply syncmsg.Message
	if err := wsjson.Read(dialCtx, conn, &reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply.Type != syncmsg.MsgAck {
		t.Fatalf("expected ACK, got %s", reply.Type)
	}
	ack, ok := reply.Data.(syncmsg.Ack)
	if !ok || ack.OriginalId != cmd.Id {
		t.Fatalf("expected ack for %s, got %+v", cmd.Id, reply.Data)
	}
	if !svc.started || svc.startCfg.MaxFiles != 7 {
		t.Fatalf("expected the service started with maxFiles 7, got %+v", svc.startCfg)
	}

	// broadcast
	hub.Broadcast(syncmsg.NewStats(&sync.StatsSnapshot{TotalFiles: 3}))

	var stats syncmsg.Message
	if err := wsjson.Read(dialCtx, conn, &stats); err != nil {
		t.Fatalf("read stats: %v", err)
	}
	if stats.Type != syncmsg.MsgStats {
		t.Fatalf("expected STATS, got %s", stats.Type)
	}
}

func TestHandleCommand_NackOnConflict(t *testing.T) {
	svc := newFakeService()
	svc.startErr = sync.ErrSyncAlreadyRunning

	cmd := syncmsg.NewStartSync(nil)
	reply := handleCommand(svc, &syncmsg.Message{Id: cmd.Id, Type: syncmsg.MsgStartSync, Data: syncmsg.StartSync{}})

	if reply.Type != syncmsg.MsgNack {
		t.Fatalf("expected NACK, got %s", reply.Type)
	}
	nack, ok := reply.Data.(*syncmsg.Nack)
	if !ok || nack.OriginalId != cmd.Id {
		t.Fatalf("expected nack for %s, got %+v", cmd.Id, reply.Data)
	}
}

func TestHandleCommand_UnsupportedType(t *testing.T) {
	svc := newFakeService()

	reply := handleCommand(svc, &syncmsg.Message{Id: "abc", Type: syncmsg.MsgProgress})
	if reply.Type != syncmsg.MsgNack {
		t.Fatalf("expected NACK for an unsupported type, got %s", reply.Type)
	}
}

func TestSocketHub_BroadcastAfterClientClose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	accepted := make(chan *SocketClient, 1)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		sc := NewSocketClient(conn)
		sc.Start(ctx)
		accepted <- sc
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, "ws://"+srv.Listener.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "test done")

	client := <-accepted
	client.Close()

	hub := NewSocketHub()
	hub.mu.Lock()
	hub.clients[client.ConnID] = client
	hub.mu.Unlock()

	// a disconnect racing a broadcast must not take the hub down
	hub.Broadcast(syncmsg.NewStats(&sync.StatsSnapshot{TotalFiles: 1}))
	hub.SendMessage(client.ConnID, syncmsg.NewStats(&sync.StatsSnapshot{TotalFiles: 2}))

	if client.Send(syncmsg.NewStats(nil)) {
		t.Fatal("expected Send to report a closed client")
	}
}
