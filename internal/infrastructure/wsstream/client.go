package wsstream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Subscriptions tracks what a client currently watches.
type Subscriptions struct {
	devices    map[string]bool
	executions map[string]bool
	mu         sync.RWMutex
}

func NewSubscriptions() *Subscriptions {
	return &Subscriptions{devices: make(map[string]bool), executions: make(map[string]bool)}
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *WSEvent

	id   string
	subs *Subscriptions
}

func NewClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: hub, conn: conn, send: make(chan *WSEvent, sendBufferSize), id: id, subs: NewSubscriptions()}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd WSCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.sendResponse(NewErrorResponse("error", "invalid command format"))
			continue
		}
		c.handleCommand(&cmd)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleCommand(cmd *WSCommand) {
	switch cmd.Action {
	case CmdSubscribe:
		c.handleSubscribe(cmd)
	case CmdUnsubscribe:
		c.handleUnsubscribe(cmd)
	default:
		c.sendResponse(NewErrorResponse("error", "unknown command: "+cmd.Action))
	}
}

func (c *Client) handleSubscribe(cmd *WSCommand) {
	if cmd.DeviceID == "" && cmd.ExecutionID == "" {
		c.sendResponse(NewErrorResponse(CmdSubscribe, "device_id or execution_id required"))
		return
	}
	c.hub.Subscribe(c, cmd.DeviceID, cmd.ExecutionID)
	c.sendResponse(NewSuccessResponse(CmdSubscribe, "subscribed"))
}

func (c *Client) handleUnsubscribe(cmd *WSCommand) {
	if cmd.DeviceID == "" && cmd.ExecutionID == "" {
		c.sendResponse(NewErrorResponse(CmdUnsubscribe, "device_id or execution_id required"))
		return
	}
	c.hub.Unsubscribe(c, cmd.DeviceID, cmd.ExecutionID)
	c.sendResponse(NewSuccessResponse(CmdUnsubscribe, "unsubscribed"))
}

func (c *Client) sendResponse(resp *WSResponse) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteJSON(resp)
}
