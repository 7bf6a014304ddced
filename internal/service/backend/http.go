package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// StatusError is returned when the query endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// HTTPBackend calls the Flask agent over HTTP.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend returns a client for baseURL. A nil client uses one without
// a timeout; queries wait until the agent answers.
func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Query implements Backend via POST /ask.
func (b *HTTPBackend) Query(ctx context.Context, text string, mode chat.Mode) (*Response, error) {
	payload := map[string]string{"query": text, "mode": string(mode)}
	body, status, err := b.post(ctx, "/ask", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Body: string(bytes.TrimSpace(body))}
	}
	return DecodeResponse(body)
}

// Submit implements Backend via POST /submit. Error statuses still carry a
// JSON reply, so the body is decoded regardless of status.
func (b *HTTPBackend) Submit(ctx context.Context, req SubmitRequest) (*SubmitReply, error) {
	body, status, err := b.post(ctx, "/submit", req)
	if err != nil {
		return nil, err
	}

	reply := &SubmitReply{}
	if err := json.Unmarshal(body, reply); err != nil {
		return nil, fmt.Errorf("failed to decode submit reply (status %d): %w", status, err)
	}
	return reply, nil
}

// Health pings GET /health.
func (b *HTTPBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
