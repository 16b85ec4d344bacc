// Package wsstream streams navigation/exploration progress over
// gorilla/websocket, complementing the HTTP polling status endpoints
// with push updates for long-running operations.
package wsstream

import "time"

// Event types (server -> client)
const (
	EventNavigationStarted   = "navigation.started"
	EventNavigationCompleted = "navigation.completed"
	EventNavigationFailed    = "navigation.failed"
	EventStepStarted         = "step.started"
	EventStepCompleted       = "step.completed"
	EventStepFailed          = "step.failed"
	EventExplorationPhase    = "exploration.phase"
)

// Command types (client -> server)
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
)

// WSEvent is one push update sent from server to client.
type WSEvent struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id"`
	ExecutionID string    `json:"execution_id,omitempty"`

	NodeID      string `json:"node_id,omitempty"`
	ActionSetID string `json:"action_set_id,omitempty"`
	DurationMs  int64  `json:"duration_ms,omitempty"`
	Error       string `json:"error,omitempty"`
	WillRetry   bool   `json:"will_retry,omitempty"`

	ExplorationID string `json:"exploration_id,omitempty"`
	Phase         string `json:"phase,omitempty"`
}

// WSCommand is one subscription request from client to server.
type WSCommand struct {
	Action      string `json:"action"`
	DeviceID    string `json:"device_id,omitempty"`
	ExecutionID string `json:"execution_id,omitempty"`
}

// WSResponse acknowledges a WSCommand.
type WSResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewWSEvent(eventType, deviceID, executionID string) *WSEvent {
	return &WSEvent{Type: eventType, Timestamp: time.Now(), DeviceID: deviceID, ExecutionID: executionID}
}

func NewSuccessResponse(responseType, message string) *WSResponse {
	return &WSResponse{Type: responseType, Success: true, Message: message}
}

func NewErrorResponse(responseType, errorMsg string) *WSResponse {
	return &WSResponse{Type: responseType, Success: false, Error: errorMsg}
}
