// Package backend talks to the recipe assistant that answers queries and
// executes structured writes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
)

// Backend is the black-box assistant service.
type Backend interface {
	// Query sends one user query and returns the raw response object.
	Query(ctx context.Context, text string, mode chat.Mode) (*Response, error)
	// Submit posts the values gathered for a collect_input request.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitReply, error)
}

// Response is an unstructured reply from the query call. Fields is empty when
// the body was not a JSON object; Raw always holds the body as received.
type Response struct {
	Fields map[string]any
	Raw    json.RawMessage
}

// DecodeResponse parses body into a Response. Only invalid JSON is an error.
func DecodeResponse(body []byte) (*Response, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode backend response: %w", err)
	}

	fields, ok := decoded.(map[string]any)
	if !ok {
		fields = map[string]any{}
	}
	return &Response{Fields: fields, Raw: json.RawMessage(bytes.TrimSpace(body))}, nil
}

// NewResponse builds a Response from already decoded fields.
func NewResponse(fields map[string]any) *Response {
	raw, _ := json.Marshal(fields)
	return &Response{Fields: fields, Raw: raw}
}

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Operation     string            `json:"operation"`
	Table         string            `json:"table"`
	Fields        map[string]string `json:"fields"`
	Mode          chat.Mode         `json:"mode"`
	OriginalQuery string            `json:"original_query"`
}

// SubmitReply carries either a result or an error text.
type SubmitReply struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Text is the message shown to the user for this reply.
func (r SubmitReply) Text() string {
	switch {
	case r.Result != "":
		return r.Result
	case r.Error != "":
		return r.Error
	default:
		return "Unknown result"
	}
}
