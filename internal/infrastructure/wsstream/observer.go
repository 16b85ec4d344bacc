package wsstream

import (
	"time"

	"hostcp/internal/infrastructure/monitoring"
)

var _ monitoring.ExecutionObserver = (*SocketObserver)(nil)

// SocketObserver pushes monitoring.ExecutionObserver events to
// subscribed WebSocket clients through a Broadcaster.
type SocketObserver struct {
	hub Broadcaster
}

func NewSocketObserver(hub Broadcaster) *SocketObserver {
	return &SocketObserver{hub: hub}
}

func (so *SocketObserver) OnNavigationStarted(deviceID, executionID, treeID string) {
	so.hub.Broadcast(deviceID, executionID, NewWSEvent(EventNavigationStarted, deviceID, executionID))
}

func (so *SocketObserver) OnNavigationCompleted(deviceID, executionID string, duration time.Duration) {
	event := NewWSEvent(EventNavigationCompleted, deviceID, executionID)
	event.DurationMs = duration.Milliseconds()
	so.hub.Broadcast(deviceID, executionID, event)
}

func (so *SocketObserver) OnNavigationFailed(deviceID, executionID string, err error, duration time.Duration) {
	event := NewWSEvent(EventNavigationFailed, deviceID, executionID)
	event.DurationMs = duration.Milliseconds()
	if err != nil {
		event.Error = err.Error()
	}
	so.hub.Broadcast(deviceID, executionID, event)
}

func (so *SocketObserver) OnStepStarted(executionID, nodeID, actionSetID string) {
	event := NewWSEvent(EventStepStarted, "", executionID)
	event.NodeID = nodeID
	event.ActionSetID = actionSetID
	so.hub.Broadcast("", executionID, event)
}

func (so *SocketObserver) OnStepCompleted(executionID, nodeID string, duration time.Duration) {
	event := NewWSEvent(EventStepCompleted, "", executionID)
	event.NodeID = nodeID
	event.DurationMs = duration.Milliseconds()
	so.hub.Broadcast("", executionID, event)
}

func (so *SocketObserver) OnStepFailed(executionID, nodeID string, err error, duration time.Duration, willRetry bool) {
	event := NewWSEvent(EventStepFailed, "", executionID)
	event.NodeID = nodeID
	event.DurationMs = duration.Milliseconds()
	event.WillRetry = willRetry
	if err != nil {
		event.Error = err.Error()
	}
	so.hub.Broadcast("", executionID, event)
}

func (so *SocketObserver) OnExplorationPhase(explorationID, deviceID, phase string) {
	event := NewWSEvent(EventExplorationPhase, deviceID, "")
	event.ExplorationID = explorationID
	event.Phase = phase
	so.hub.Broadcast(deviceID, "", event)
}
