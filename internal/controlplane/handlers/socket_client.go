package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/manavgt54/idesync/internal/syncmsg"
	"github.com/manavgt54/idesync/internal/utils"
)

const (
	writeTimeout     = 20 * time.Second
	shutdownReason   = "shutdown"
	socketBufferSize = 64
)

// SocketClient represents one connected control plane socket.
type SocketClient struct {
	ConnID string
	MsgRx  chan *syncmsg.Message
	MsgTx  chan *syncmsg.Message
	Closed chan struct{}

	conn      *websocket.Conn
	wsDone    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewSocketClient(conn *websocket.Conn) *SocketClient {
	return &SocketClient{
		ConnID: utils.TokenHex(4),
		MsgRx:  make(chan *syncmsg.Message, socketBufferSize),
		MsgTx:  make(chan *syncmsg.Message, socketBufferSize),
		Closed: make(chan struct{}),
		wsDone: make(chan struct{}),
		conn:   conn,
	}
}

func (c *SocketClient) Start(ctx context.Context) {
	slog.Debug("socket client start", "connId", c.ConnID)
	c.wg.Add(2)
	go c.writeLoop(ctx)
	go c.readLoop(ctx)
}

func (c *SocketClient) Close() {
	c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
	c.wg.Wait()
}

func (c *SocketClient) closeConnection(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		// trigger internal close
		close(c.wsDone)
		c.conn.Close(status, reason)

		// wait for both read and write loops to finish
		c.wg.Wait()

		// trigger client close. MsgRx and MsgTx are left open: the hub
		// can still hold a reference and send into them, so receivers
		// exit on Closed instead of a channel close.
		close(c.Closed)
		slog.Debug("socket client closed", "connId", c.ConnID)
	})
}

// Send queues a message for the write loop without blocking. Returns false
// if the client is closed or its send buffer is full.
func (c *SocketClient) Send(msg *syncmsg.Message) bool {
	select {
	case <-c.Closed:
		return false
	default:
	}

	select {
	case c.MsgTx <- msg:
		return true
	default:
		return false
	}
}

func (c *SocketClient) readLoop(ctx context.Context) {
	defer func() {
		slog.Debug("socket reader shutdown", "connId", c.ConnID)
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
	}()

	for {
		var data *syncmsg.Message

		err := wsjson.Read(ctx, c.conn, &data)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				// connection closed by client
			} else if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusNoStatusRcvd {
				slog.Warn("socket reader", "error", err, "connId", c.ConnID)
			}
			return
		}

		select {
		case <-c.wsDone:
			return

		case c.MsgRx <- data:
			// pushed to receive queue

		default:
			slog.Warn("socket reader buffer full", "connId", c.ConnID, "dropped", data.Type)
		}
	}
}

func (c *SocketClient) writeLoop(ctx context.Context) {
	defer func() {
		slog.Debug("socket writer shutdown", "connId", c.ConnID)
		c.wg.Done()
		c.closeConnection(websocket.StatusNormalClosure, shutdownReason)
	}()

	for {
		select {
		case msg := <-c.MsgTx:

			// write message within timeout
			ctxWrite, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(ctxWrite, c.conn, msg)
			cancel()
			if err != nil {
				slog.Error("socket writer", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type, "error", err)
			} else {
				slog.Debug("socket writer", "connId", c.ConnID, "msgId", msg.Id, "msgType", msg.Type)
			}

		case <-c.wsDone:
			return

		case <-ctx.Done():
			return
		}
	}
}
