package monitoring

import (
	"sync"
	"time"
)

// MetricsCollector collects execution metrics for navigation runs,
// per-target-node outcomes, and AI planner usage.
type MetricsCollector struct {
	deviceMetrics map[string]*DeviceMetrics
	nodeMetrics   map[string]*NodeMetrics
	aiMetrics     *AIMetrics
	mu            sync.RWMutex
}

// DeviceMetrics aggregates navigation executions for one device.
type DeviceMetrics struct {
	DeviceID        string        `json:"device_id"`
	ExecutionCount  int           `json:"execution_count"`
	SuccessCount    int           `json:"success_count"`
	FailureCount    int           `json:"failure_count"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	MinDuration     time.Duration `json:"min_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	LastExecutionAt time.Time     `json:"last_execution_at"`
}

// NodeMetrics aggregates outcomes for one target node across runs —
// a node that fails disproportionately often is a maintenance signal.
type NodeMetrics struct {
	NodeID         string `json:"node_id"`
	ReachCount     int    `json:"reach_count"`
	SuccessCount   int    `json:"success_count"`
	FailureCount   int    `json:"failure_count"`
	RetryCount     int    `json:"retry_count"`
	VerifyFailures int    `json:"verify_failures"`
}

// AIMetrics tracks sashabaranov/go-openai usage by the exploration
// planner.
type AIMetrics struct {
	TotalRequests    int           `json:"total_requests"`
	TotalTokens      int           `json:"total_tokens"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	EstimatedCostUSD float64       `json:"estimated_cost_usd"`
	AverageLatency   time.Duration `json:"average_latency"`
	mu               sync.RWMutex
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		deviceMetrics: make(map[string]*DeviceMetrics),
		nodeMetrics:   make(map[string]*NodeMetrics),
		aiMetrics:     &AIMetrics{},
	}
}

func (mc *MetricsCollector) RecordNavigationExecution(deviceID string, duration time.Duration, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.deviceMetrics[deviceID]
	if !ok {
		m = &DeviceMetrics{DeviceID: deviceID, MinDuration: duration, MaxDuration: duration}
		mc.deviceMetrics[deviceID] = m
	}
	m.ExecutionCount++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.ExecutionCount)
	m.LastExecutionAt = time.Now()
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
}

func (mc *MetricsCollector) RecordNodeReach(nodeID string, success bool, isRetry bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, ok := mc.nodeMetrics[nodeID]
	if !ok {
		m = &NodeMetrics{NodeID: nodeID}
		mc.nodeMetrics[nodeID] = m
	}
	m.ReachCount++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}
	if isRetry {
		m.RetryCount++
	}
}

func (mc *MetricsCollector) RecordVerificationFailure(nodeID string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m, ok := mc.nodeMetrics[nodeID]
	if !ok {
		m = &NodeMetrics{NodeID: nodeID}
		mc.nodeMetrics[nodeID] = m
	}
	m.VerifyFailures++
}

// RecordAIRequest records one planner round-trip's token usage and
// latency, with a rough GPT-4o-class cost estimate.
func (mc *MetricsCollector) RecordAIRequest(promptTokens, completionTokens int, latency time.Duration) {
	mc.aiMetrics.mu.Lock()
	defer mc.aiMetrics.mu.Unlock()

	mc.aiMetrics.TotalRequests++
	mc.aiMetrics.PromptTokens += promptTokens
	mc.aiMetrics.CompletionTokens += completionTokens
	mc.aiMetrics.TotalTokens += promptTokens + completionTokens

	promptCost := float64(promptTokens) / 1000.0 * 0.03
	completionCost := float64(completionTokens) / 1000.0 * 0.06
	mc.aiMetrics.EstimatedCostUSD += promptCost + completionCost

	totalLatency := time.Duration(mc.aiMetrics.TotalRequests-1) * mc.aiMetrics.AverageLatency
	mc.aiMetrics.AverageLatency = (totalLatency + latency) / time.Duration(mc.aiMetrics.TotalRequests)
}

func (mc *MetricsCollector) GetDeviceMetrics(deviceID string) *DeviceMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if m, ok := mc.deviceMetrics[deviceID]; ok {
		c := *m
		return &c
	}
	return nil
}

func (mc *MetricsCollector) GetNodeMetrics(nodeID string) *NodeMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if m, ok := mc.nodeMetrics[nodeID]; ok {
		c := *m
		return &c
	}
	return nil
}

func (mc *MetricsCollector) GetAIMetrics() *AIMetrics {
	mc.aiMetrics.mu.RLock()
	defer mc.aiMetrics.mu.RUnlock()
	return &AIMetrics{
		TotalRequests:    mc.aiMetrics.TotalRequests,
		TotalTokens:      mc.aiMetrics.TotalTokens,
		PromptTokens:     mc.aiMetrics.PromptTokens,
		CompletionTokens: mc.aiMetrics.CompletionTokens,
		EstimatedCostUSD: mc.aiMetrics.EstimatedCostUSD,
		AverageLatency:   mc.aiMetrics.AverageLatency,
	}
}

// MetricsSummary is a point-in-time rollup suitable for a status
// endpoint.
type MetricsSummary struct {
	TotalDevices       int     `json:"total_devices"`
	TotalExecutions    int     `json:"total_executions"`
	TotalSuccesses     int     `json:"total_successes"`
	TotalFailures      int     `json:"total_failures"`
	OverallSuccessRate float64 `json:"overall_success_rate"`
	TotalAIRequests    int     `json:"total_ai_requests"`
	TotalAITokens      int     `json:"total_ai_tokens"`
	EstimatedAICostUSD float64 `json:"estimated_ai_cost_usd"`
}

func (mc *MetricsCollector) GetSummary() *MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := &MetricsSummary{TotalDevices: len(mc.deviceMetrics)}
	for _, dm := range mc.deviceMetrics {
		summary.TotalExecutions += dm.ExecutionCount
		summary.TotalSuccesses += dm.SuccessCount
		summary.TotalFailures += dm.FailureCount
	}
	if summary.TotalExecutions > 0 {
		summary.OverallSuccessRate = float64(summary.TotalSuccesses) / float64(summary.TotalExecutions)
	}

	mc.aiMetrics.mu.RLock()
	summary.TotalAIRequests = mc.aiMetrics.TotalRequests
	summary.TotalAITokens = mc.aiMetrics.TotalTokens
	summary.EstimatedAICostUSD = mc.aiMetrics.EstimatedCostUSD
	mc.aiMetrics.mu.RUnlock()

	return summary
}
