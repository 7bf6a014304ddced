package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	sessionService "github.com/zhouzirui/platepal/frontend/internal/service/session"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

type queuedBackend struct {
	mu      sync.Mutex
	bodies  []string
	submits []backend.SubmitRequest
}

func (b *queuedBackend) Query(context.Context, string, chat.Mode) (*backend.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body := `{"result":"ok"}`
	if len(b.bodies) > 0 {
		body, b.bodies = b.bodies[0], b.bodies[1:]
	}
	return backend.DecodeResponse([]byte(body))
}

func (b *queuedBackend) Submit(_ context.Context, req backend.SubmitRequest) (*backend.SubmitReply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, req)
	return &backend.SubmitReply{Result: "✅ Inserted 1 row"}, nil
}

func setupRouter(b backend.Backend) (*chi.Mux, *view.Workspace) {
	ws := view.NewWorkspace(b, nil, view.Options{})
	r := chi.NewRouter()
	New(ws, nil).RegisterRoutes(r)
	return r, ws
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeTurn(t *testing.T, resp *httptest.ResponseRecorder) TurnResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var out TurnResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func TestTurnReturnsReplyAndView(t *testing.T) {
	r, _ := setupRouter(&queuedBackend{bodies: []string{`{"data":[{"name":"Ramen"}]}`}})

	out := decodeTurn(t, do(t, r, http.MethodPost, "/turns", map[string]string{"text": "noodles"}))

	assert.Equal(t, sessionService.OutcomeAnswered, out.Outcome)
	require.NotNil(t, out.UserMessage)
	assert.Equal(t, "noodles", out.UserMessage.Content)
	require.NotNil(t, out.Reply)
	assert.Contains(t, out.Reply.Content, "Ramen")
	require.NotNil(t, out.View.Active)
	assert.Len(t, out.View.Active.Messages, 2)
	assert.Empty(t, out.View.Active.Messages[1].QueryCode, "user view hides query code")
}

func TestTurnHidesDeveloperFields(t *testing.T) {
	r, _ := setupRouter(&queuedBackend{bodies: []string{`{"data":[{"name":"Soup"}]}`}})

	resp := do(t, r, http.MethodPost, "/turns", map[string]string{"text": "soup"})
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body.String()
	assert.Contains(t, body, "• Soup")
	assert.NotContains(t, body, `"queryCode"`)
	assert.NotContains(t, body, `"rawBackendPayload"`)
}

func TestBlankTurnRejected(t *testing.T) {
	r, _ := setupRouter(&queuedBackend{})

	resp := do(t, r, http.MethodPost, "/turns", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestConfirmFlow(t *testing.T) {
	r, ws := setupRouter(&queuedBackend{bodies: []string{
		`{"action":"confirm_query","prompt":"Run this delete?","query":{"filter":{"name":"Soup"}}}`,
		`{"result":"Deleted 1 recipe"}`,
	}})

	out := decodeTurn(t, do(t, r, http.MethodPost, "/turns", map[string]string{"text": "delete soup"}))
	assert.Equal(t, sessionService.OutcomeConfirming, out.Outcome)
	require.NotNil(t, out.View.Pending)
	assert.Equal(t, "confirm", out.View.Pending.Type)

	resp := do(t, r, http.MethodPost, "/turns", map[string]string{"text": "something else"})
	assert.Equal(t, http.StatusConflict, resp.Code, "free text is blocked while confirming")

	resp = do(t, r, http.MethodPost, "/pending/confirm", map[string]string{"option": "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	out = decodeTurn(t, do(t, r, http.MethodPost, "/pending/confirm", map[string]string{"option": "yes"}))
	assert.Equal(t, sessionService.OutcomeAnswered, out.Outcome)
	assert.Nil(t, out.View.Pending)
	assert.Equal(t, sessionService.Idle, ws.User().State())
}

func TestConfirmWithoutPending(t *testing.T) {
	r, _ := setupRouter(&queuedBackend{})

	resp := do(t, r, http.MethodPost, "/pending/confirm", map[string]string{"option": "yes"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestCollectFlow(t *testing.T) {
	b := &queuedBackend{bodies: []string{
		`{"action":"collect_input","prompt":"Recipe details","operation":"insert","collection":"recipes","fields":["name","calories"]}`,
	}}
	r, _ := setupRouter(b)

	out := decodeTurn(t, do(t, r, http.MethodPost, "/turns", map[string]string{"text": "add a recipe"}))
	assert.Equal(t, sessionService.OutcomeCollecting, out.Outcome)

	resp := do(t, r, http.MethodPut, "/pending/fields", map[string]string{"field": "servings", "value": "2"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodPut, "/pending/fields", map[string]string{"field": "name", "value": "Toast"})
	require.Equal(t, http.StatusOK, resp.Code)
	var state view.State
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &state))
	require.NotNil(t, state.Pending)
	assert.Equal(t, "Toast", state.Pending.Values["name"])

	out = decodeTurn(t, do(t, r, http.MethodPost, "/pending/submit", nil))
	assert.Equal(t, sessionService.OutcomeSubmitted, out.Outcome)
	require.NotNil(t, out.UserMessage)
	assert.Equal(t, "name=Toast, calories=", out.UserMessage.Content)
	require.NotNil(t, out.Reply)
	assert.Equal(t, "✅ Inserted 1 row", out.Reply.Content)

	require.Len(t, b.submits, 1)
	assert.Equal(t, "insert", b.submits[0].Operation)
	assert.Equal(t, "recipes", b.submits[0].Table)
	assert.Equal(t, map[string]string{"name": "Toast", "calories": ""}, b.submits[0].Fields)
	assert.Equal(t, "add a recipe", b.submits[0].OriginalQuery)
}
