// Package asynctask is the shared async-execution fabric navexec and
// exploration both run on: a UUID task id, an in-memory status record
// guarded by a mutex, a background goroutine doing the real work, and
// an optional signed HTTP callback on completion.
package asynctask

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostcp/internal/infrastructure/callback"
	"hostcp/internal/infrastructure/logger"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Record is the polled view of one task's progress.
type Record struct {
	TaskID    string
	Status    Status
	Progress  int
	Message   string
	Result    any
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

func (r Record) clone() Record { return r }

// Manager owns every in-flight and recently-completed task record.
// One Manager is shared process-wide. It does not serialize tasks per
// device, and navexec.Executor starts every navigation it is asked
// for, so keeping one navigation per device at a time is the caller's
// job.
type Manager struct {
	mu      sync.RWMutex
	records map[string]Record
	poster  *callback.Poster
	log     *logger.Logger
}

func NewManager(poster *callback.Poster, log *logger.Logger) *Manager {
	return &Manager{records: make(map[string]Record), poster: poster, log: log}
}

// Work is the long-running body of a task. It reports progress via
// progress() and returns either a result or an error.
type Work func(ctx context.Context, progress func(pct int, message string)) (any, error)

// Start allocates a task id, records it as running, and runs fn on a
// background goroutine. callbackURL, if non-empty, receives a signed
// POST once fn finishes.
func (m *Manager) Start(ctx context.Context, callbackURL string, fn Work) string {
	taskID := uuid.NewString()
	now := time.Now()

	m.mu.Lock()
	m.records[taskID] = Record{TaskID: taskID, Status: StatusRunning, StartedAt: now}
	m.mu.Unlock()

	go func() {
		bgCtx := context.WithoutCancel(ctx)
		result, err := fn(bgCtx, func(pct int, message string) {
			m.mu.Lock()
			rec := m.records[taskID]
			rec.Progress = pct
			rec.Message = message
			m.records[taskID] = rec
			m.mu.Unlock()
		})

		m.mu.Lock()
		rec := m.records[taskID]
		rec.EndedAt = time.Now()
		if err != nil {
			rec.Status = StatusError
			rec.Error = err.Error()
		} else {
			rec.Status = StatusCompleted
			rec.Result = result
			rec.Progress = 100
		}
		m.records[taskID] = rec
		m.mu.Unlock()

		if callbackURL != "" && m.poster != nil {
			payload := callback.Payload{TaskID: taskID, Status: string(rec.Status), Result: rec.Result, Error: rec.Error}
			if cbErr := m.poster.Post(bgCtx, callbackURL, payload); cbErr != nil {
				m.log.Warn("task completion callback failed", "task_id", taskID, "error", cbErr.Error())
			}
		}
	}()

	return taskID
}

// Get returns the current status of a task, if known.
func (m *Manager) Get(taskID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[taskID]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// Sweep drops completed/error records older than maxAge, bounding
// memory growth from long-running deployments. Start does not call it;
// it runs only when a caller invokes it.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	dropped := 0
	for id, rec := range m.records {
		if rec.Status == StatusRunning {
			continue
		}
		if now.Sub(rec.EndedAt) > maxAge {
			delete(m.records, id)
			dropped++
		}
	}
	return dropped
}
