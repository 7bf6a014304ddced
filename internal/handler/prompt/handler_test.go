package prompt

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/platepal/frontend/internal/model/prompt"
)

func setupRouter(items []prompt.Prompt) *chi.Mux {
	r := chi.NewRouter()
	New(prompt.NewMemoryStore(items)).RegisterRoutes(r)
	return r
}

func TestListPrompts(t *testing.T) {
	r := setupRouter(prompt.Seed())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/prompts", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var items []prompt.Prompt
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("expected 6 prompts, got %d", len(items))
	}
}

func TestGetPromptWraps(t *testing.T) {
	r := setupRouter(prompt.Seed())

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/prompts/7", nil))

	var p prompt.Prompt
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Title != "Get Nutritional Information" {
		t.Fatalf("unexpected prompt %q", p.Title)
	}
}

func TestGetPromptErrors(t *testing.T) {
	r := setupRouter(nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/prompts/x", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/prompts/0", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
