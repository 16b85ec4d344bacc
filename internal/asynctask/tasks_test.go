package asynctask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostcp/internal/infrastructure/callback"
	"hostcp/internal/infrastructure/logger"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManager_StartCompletesSuccessfully(t *testing.T) {
	m := NewManager(callback.New(nil), logger.Nop())

	taskID := m.Start(context.Background(), "", func(ctx context.Context, progress func(int, string)) (any, error) {
		progress(50, "halfway")
		return "done", nil
	})
	require.NotEmpty(t, taskID)

	waitFor(t, time.Second, func() bool {
		rec, _ := m.Get(taskID)
		return rec.Status != StatusRunning
	})

	rec, ok := m.Get(taskID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, "done", rec.Result)
	assert.Equal(t, 100, rec.Progress)
	assert.False(t, rec.EndedAt.Before(rec.StartedAt))
}

func TestManager_StartRecordsError(t *testing.T) {
	m := NewManager(callback.New(nil), logger.Nop())

	taskID := m.Start(context.Background(), "", func(ctx context.Context, progress func(int, string)) (any, error) {
		return nil, errors.New("boom")
	})

	waitFor(t, time.Second, func() bool {
		rec, _ := m.Get(taskID)
		return rec.Status != StatusRunning
	})

	rec, ok := m.Get(taskID)
	require.True(t, ok)
	assert.Equal(t, StatusError, rec.Status)
	assert.Equal(t, "boom", rec.Error)
}

func TestManager_GetUnknownTask(t *testing.T) {
	m := NewManager(callback.New(nil), logger.Nop())
	_, ok := m.Get("does-not-exist")
	assert.False(t, ok)
}

func TestManager_StartPostsCallbackOnCompletion(t *testing.T) {
	received := make(chan callback.Payload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p callback.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		received <- p
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewManager(callback.New(nil), logger.Nop())
	m.Start(context.Background(), srv.URL, func(ctx context.Context, progress func(int, string)) (any, error) {
		return map[string]any{"ok": true}, nil
	})

	select {
	case p := <-received:
		assert.Equal(t, "completed", p.Status)
	case <-time.After(time.Second):
		t.Fatal("expected callback to be posted")
	}
}

func TestManager_SweepDropsOldCompletedRecords(t *testing.T) {
	m := NewManager(callback.New(nil), logger.Nop())

	taskID := m.Start(context.Background(), "", func(ctx context.Context, progress func(int, string)) (any, error) {
		return nil, nil
	})
	waitFor(t, time.Second, func() bool {
		rec, _ := m.Get(taskID)
		return rec.Status != StatusRunning
	})

	dropped := m.Sweep(0)
	assert.Equal(t, 1, dropped)
	_, ok := m.Get(taskID)
	assert.False(t, ok)
}

func TestManager_SweepKeepsRunningRecords(t *testing.T) {
	m := NewManager(callback.New(nil), logger.Nop())
	started := make(chan struct{})
	release := make(chan struct{})

	taskID := m.Start(context.Background(), "", func(ctx context.Context, progress func(int, string)) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	<-started

	dropped := m.Sweep(0)
	assert.Equal(t, 0, dropped)
	close(release)
}
