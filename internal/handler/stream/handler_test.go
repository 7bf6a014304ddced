package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/zhouzirui/platepal/frontend/internal/model/chat"
	"github.com/zhouzirui/platepal/frontend/internal/service/backend"
	"github.com/zhouzirui/platepal/frontend/internal/service/view"
)

type fixedBackend struct {
	body string
}

func (b fixedBackend) Query(context.Context, string, chat.Mode) (*backend.Response, error) {
	return backend.DecodeResponse([]byte(b.body))
}

func (fixedBackend) Submit(context.Context, backend.SubmitRequest) (*backend.SubmitReply, error) {
	return &backend.SubmitReply{}, nil
}

func events(t *testing.T, body string) []string {
	t.Helper()
	var names []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func get(h http.Handler, message string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stream?message="+url.QueryEscape(message), nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestStreamEmitsMessage(t *testing.T) {
	ws := view.NewWorkspace(fixedBackend{body: `{"result":"Try lentil soup"}`}, nil, view.Options{})
	resp := get(New(ws, nil), "soup")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	got := events(t, resp.Body.String())
	want := []string{"start", "message", "end"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	if !strings.Contains(resp.Body.String(), "Try lentil soup") {
		t.Fatalf("reply missing from stream: %s", resp.Body.String())
	}
}

func TestStreamHidesDeveloperFields(t *testing.T) {
	ws := view.NewWorkspace(fixedBackend{body: `{"data":[{"name":"Soup"}]}`}, nil, view.Options{})
	resp := get(New(ws, nil), "soup")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	for _, key := range []string{`"queryCode"`, `"rawBackendPayload"`} {
		if strings.Contains(resp.Body.String(), key) {
			t.Fatalf("%s leaked into the user stream: %s", key, resp.Body.String())
		}
	}
}

func TestStreamEmitsPending(t *testing.T) {
	ws := view.NewWorkspace(fixedBackend{body: `{"action":"confirm_query","prompt":"Proceed?"}`}, nil, view.Options{})
	resp := get(New(ws, nil), "drop table")

	got := events(t, resp.Body.String())
	if strings.Join(got, ",") != "start,pending,end" {
		t.Fatalf("unexpected events %v", got)
	}
	if !strings.Contains(resp.Body.String(), `"type":"confirm"`) {
		t.Fatalf("pending payload missing: %s", resp.Body.String())
	}
}

func TestStreamRejectsWhilePending(t *testing.T) {
	ws := view.NewWorkspace(fixedBackend{body: `{"action":"confirm_query","prompt":"Proceed?"}`}, nil, view.Options{})
	h := New(ws, nil)
	get(h, "drop table")

	resp := get(h, "another")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	ws := view.NewWorkspace(fixedBackend{body: `{}`}, nil, view.Options{})
	resp := get(New(ws, nil), "")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
