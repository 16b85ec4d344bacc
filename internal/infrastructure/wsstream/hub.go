package wsstream

import (
	"sync"

	"hostcp/internal/infrastructure/logger"
)

// Broadcaster lets an ExecutionObserver push an event without
// depending on the Hub's internal channel plumbing.
type Broadcaster interface {
	Broadcast(deviceID, executionID string, event *WSEvent)
}

type broadcastMsg struct {
	deviceID    string
	executionID string
	event       *WSEvent
}

// Hub manages WebSocket connections, indexed by device id and
// execution id so a client can watch either "everything for this
// device" or "this one execution".
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	byDeviceID    map[string]map[*Client]bool
	byExecutionID map[string]map[*Client]bool

	log *logger.Logger
	mu  sync.RWMutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *broadcastMsg, 256),
		byDeviceID:    make(map[string]map[*Client]bool),
		byExecutionID: make(map[string]map[*Client]bool),
		log:           log,
	}
}

// Run is the hub's event loop; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastEvent(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	h.log.Debug("websocket client registered", "client_id", client.id, "total", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	client.subs.mu.RLock()
	for deviceID := range client.subs.devices {
		if clients, ok := h.byDeviceID[deviceID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byDeviceID, deviceID)
			}
		}
	}
	for execID := range client.subs.executions {
		if clients, ok := h.byExecutionID[execID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byExecutionID, execID)
			}
		}
	}
	client.subs.mu.RUnlock()

	h.log.Debug("websocket client unregistered", "client_id", client.id, "total", len(h.clients))
}

// Broadcast implements Broadcaster.
func (h *Hub) Broadcast(deviceID, executionID string, event *WSEvent) {
	h.broadcast <- &broadcastMsg{deviceID: deviceID, executionID: executionID, event: event}
}

func (h *Hub) broadcastEvent(msg *broadcastMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Client]bool)
	if msg.executionID != "" {
		for client := range h.byExecutionID[msg.executionID] {
			targets[client] = true
		}
	}
	if msg.deviceID != "" {
		for client := range h.byDeviceID[msg.deviceID] {
			targets[client] = true
		}
	}

	for client := range targets {
		select {
		case client.send <- msg.event:
		default:
			h.log.Warn("websocket client buffer full, dropping event", "client_id", client.id, "event_type", msg.event.Type)
		}
	}
}

func (h *Hub) Subscribe(client *Client, deviceID, executionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.subs.mu.Lock()
	defer client.subs.mu.Unlock()

	if deviceID != "" {
		client.subs.devices[deviceID] = true
		if h.byDeviceID[deviceID] == nil {
			h.byDeviceID[deviceID] = make(map[*Client]bool)
		}
		h.byDeviceID[deviceID][client] = true
	}
	if executionID != "" {
		client.subs.executions[executionID] = true
		if h.byExecutionID[executionID] == nil {
			h.byExecutionID[executionID] = make(map[*Client]bool)
		}
		h.byExecutionID[executionID][client] = true
	}
}

func (h *Hub) Unsubscribe(client *Client, deviceID, executionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.subs.mu.Lock()
	defer client.subs.mu.Unlock()

	if deviceID != "" {
		delete(client.subs.devices, deviceID)
		if clients, ok := h.byDeviceID[deviceID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byDeviceID, deviceID)
			}
		}
	}
	if executionID != "" {
		delete(client.subs.executions, executionID)
		if clients, ok := h.byExecutionID[executionID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.byExecutionID, executionID)
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
