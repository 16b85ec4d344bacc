package monitoring

import (
	"sync"
	"time"
)

// ExecutionObserver reacts to navigation/exploration lifecycle events.
// Implementations can log, collect metrics, or forward to tracing —
// navexec.Executor notifies one of these without knowing which.
// exploration.Executor does not call it, so OnExplorationPhase is
// never triggered.
type ExecutionObserver interface {
	OnNavigationStarted(deviceID, executionID, treeID string)
	OnNavigationCompleted(deviceID, executionID string, duration time.Duration)
	OnNavigationFailed(deviceID, executionID string, err error, duration time.Duration)
	OnStepStarted(executionID, nodeID, actionSetID string)
	OnStepCompleted(executionID, nodeID string, duration time.Duration)
	OnStepFailed(executionID, nodeID string, err error, duration time.Duration, willRetry bool)
	OnExplorationPhase(explorationID, deviceID, phase string)
}

// ObserverManager fans one event out to every registered observer.
type ObserverManager struct {
	observers []ExecutionObserver
	mu        sync.RWMutex
}

func NewObserverManager() *ObserverManager {
	return &ObserverManager{}
}

func (om *ObserverManager) AddObserver(o ExecutionObserver) {
	om.mu.Lock()
	defer om.mu.Unlock()
	om.observers = append(om.observers, o)
}

func (om *ObserverManager) snapshot() []ExecutionObserver {
	om.mu.RLock()
	defer om.mu.RUnlock()
	out := make([]ExecutionObserver, len(om.observers))
	copy(out, om.observers)
	return out
}

func (om *ObserverManager) NotifyNavigationStarted(deviceID, executionID, treeID string) {
	for _, o := range om.snapshot() {
		o.OnNavigationStarted(deviceID, executionID, treeID)
	}
}

func (om *ObserverManager) NotifyNavigationCompleted(deviceID, executionID string, duration time.Duration) {
	for _, o := range om.snapshot() {
		o.OnNavigationCompleted(deviceID, executionID, duration)
	}
}

func (om *ObserverManager) NotifyNavigationFailed(deviceID, executionID string, err error, duration time.Duration) {
	for _, o := range om.snapshot() {
		o.OnNavigationFailed(deviceID, executionID, err, duration)
	}
}

func (om *ObserverManager) NotifyStepStarted(executionID, nodeID, actionSetID string) {
	for _, o := range om.snapshot() {
		o.OnStepStarted(executionID, nodeID, actionSetID)
	}
}

func (om *ObserverManager) NotifyStepCompleted(executionID, nodeID string, duration time.Duration) {
	for _, o := range om.snapshot() {
		o.OnStepCompleted(executionID, nodeID, duration)
	}
}

func (om *ObserverManager) NotifyStepFailed(executionID, nodeID string, err error, duration time.Duration, willRetry bool) {
	for _, o := range om.snapshot() {
		o.OnStepFailed(executionID, nodeID, err, duration, willRetry)
	}
}

func (om *ObserverManager) NotifyExplorationPhase(explorationID, deviceID, phase string) {
	for _, o := range om.snapshot() {
		o.OnExplorationPhase(explorationID, deviceID, phase)
	}
}

// MetricsObserver is the MetricsCollector wired up as an
// ExecutionObserver, so navexec need only hold one ObserverManager to
// feed both metrics and any other registered observer.
type MetricsObserver struct {
	metrics *MetricsCollector
}

func NewMetricsObserver(metrics *MetricsCollector) *MetricsObserver {
	return &MetricsObserver{metrics: metrics}
}

func (m *MetricsObserver) OnNavigationStarted(deviceID, executionID, treeID string) {}

func (m *MetricsObserver) OnNavigationCompleted(deviceID, executionID string, duration time.Duration) {
	m.metrics.RecordNavigationExecution(deviceID, duration, true)
}

func (m *MetricsObserver) OnNavigationFailed(deviceID, executionID string, err error, duration time.Duration) {
	m.metrics.RecordNavigationExecution(deviceID, duration, false)
}

func (m *MetricsObserver) OnStepStarted(executionID, nodeID, actionSetID string) {}

func (m *MetricsObserver) OnStepCompleted(executionID, nodeID string, duration time.Duration) {
	m.metrics.RecordNodeReach(nodeID, true, false)
}

func (m *MetricsObserver) OnStepFailed(executionID, nodeID string, err error, duration time.Duration, willRetry bool) {
	m.metrics.RecordNodeReach(nodeID, false, willRetry)
}

func (m *MetricsObserver) OnExplorationPhase(explorationID, deviceID, phase string) {}
