// Package callback posts a JWT-signed completion notification to an
// external callback URL: mutex-guarded config, context-scoped timeout,
// JSON POST.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTimeout = 30 * time.Second

// Poster sends a signed task-completion callback when an asynchronous
// navigation/exploration task finishes.
type Poster struct {
	mu      sync.RWMutex
	client  *http.Client
	signKey []byte
}

func New(signKey []byte) *Poster {
	return &Poster{client: &http.Client{Timeout: defaultTimeout}, signKey: signKey}
}

// Payload is the body posted to the callback URL.
type Payload struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Post signs Payload's task_id into a short-lived JWT bearer token and
// POSTs the payload to url, with a 30s timeout.
func (p *Poster) Post(ctx context.Context, url string, payload Payload) error {
	if url == "" {
		return nil
	}

	p.mu.RLock()
	client := p.client
	signKey := p.signKey
	p.mu.RUnlock()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(signKey) > 0 {
		token, err := p.signToken(payload.TaskID)
		if err != nil {
			return fmt.Errorf("sign callback token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned non-success status: %d", resp.StatusCode)
	}
	return nil
}

func (p *Poster) signToken(taskID string) (string, error) {
	claims := jwt.MapClaims{
		"task_id": taskID,
		"exp":     time.Now().Add(5 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.signKey)
}
