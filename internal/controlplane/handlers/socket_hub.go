package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/syncmsg"
	"github.com/manavgt54/idesync/internal/version"
)

const maxMessageSize = 1 << 20 // control messages are small

// ClientMessage pairs an inbound message with its origin connection.
type ClientMessage struct {
	ConnID  string
	Message *syncmsg.Message
}

// SocketHub tracks connected control plane sockets and fans messages
// in and out.
type SocketHub struct {
	clients  map[string]*SocketClient
	register chan *SocketClient
	msgs     chan *ClientMessage

	wg sync.WaitGroup
	mu sync.RWMutex
}

func NewSocketHub() *SocketHub {
	return &SocketHub{
		clients:  make(map[string]*SocketClient),
		register: make(chan *SocketClient),
		msgs:     make(chan *ClientMessage, 256),
	}
}

func (h *SocketHub) Run(ctx context.Context) {
	slog.Info("socket hub started")
	defer slog.Info("socket hub stopped")

	for {
		select {
		case client, ok := <-h.register:
			if !ok {
				return
			}

			h.mu.Lock()
			h.clients[client.ConnID] = client
			slog.Debug("socket hub registered", "connId", client.ConnID, "active", len(h.clients))
			h.mu.Unlock()

			h.wg.Add(1)
			go client.Start(ctx)
			go h.handleClientMessages(client)
			go func() {
				// if the client closes, we just remove it from the hub
				<-client.Closed

				h.mu.Lock()
				defer h.mu.Unlock()

				delete(h.clients, client.ConnID)
				slog.Debug("socket hub removed", "connId", client.ConnID, "active", len(h.clients))
				h.wg.Done()
			}()
		case <-ctx.Done():
			return
		}
	}
}

// Messages returns the channel of inbound client messages.
func (h *SocketHub) Messages() <-chan *ClientMessage {
	return h.msgs
}

func (h *SocketHub) Shutdown() {
	h.mu.RLock()
	clients := make([]*SocketClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		go func() {
			// removes itself from the hub through the Closed channel
			client.Close()
			slog.Debug("socket hub killed", "connId", client.ConnID)
		}()
	}

	h.wg.Wait()
	slog.Info("socket hub shutdown")
}

// Handler upgrades the connection and registers the client with the hub.
func (h *SocketHub) Handler(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// token auth already gates this route; browser clients connect
		// from arbitrary extension origins
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		AbortWithError(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Errorf("websocket accept failed: %w", err))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := NewSocketClient(conn)

	client.Send(syncmsg.NewSystemMessage(version.Version, "ok"))

	h.register <- client
}

func (h *SocketHub) SendMessage(connId string, msg *syncmsg.Message) {
	h.mu.RLock()
	client, ok := h.clients[connId]
	h.mu.RUnlock()

	if ok && !client.Send(msg) {
		slog.Warn("socket send dropped", "connId", connId)
	}
}

// Broadcast sends a message to every connected client.
func (h *SocketHub) Broadcast(msg *syncmsg.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if !client.Send(msg) {
			slog.Warn("socket send dropped", "connId", client.ConnID)
		}
	}
}

// handleClientMessages forwards one client's inbound messages to the hub queue
func (h *SocketHub) handleClientMessages(client *SocketClient) {
	for {
		select {
		case <-client.Closed:
			return
		case msg := <-client.MsgRx:
			h.msgs <- &ClientMessage{
				ConnID:  client.ConnID,
				Message: msg,
			}
		}
	}
}
