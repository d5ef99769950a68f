package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
)

const testOpenAPI = `openapi: 3.0.3
info:
  title: taskboard
  version: 1.0.0
paths:
  /api/v1/dashboard:
    get:
      responses:
        '200':
          description: ok
`

func TestOpenAPIHandler(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "openapi.yaml")
	if err := os.WriteFile(path, []byte(testOpenAPI), 0o600); err != nil {
		t.Fatalf("failed to write spec: %v", err)
	}

	r := mux.NewRouter()
	NewOpenAPIHandler(path).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
	if w.Code != http.StatusOK || w.Body.String() != testOpenAPI {
		t.Errorf("Expected raw YAML, got %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var doc map[string]any
	if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
		t.Fatalf("Failed to decode JSON spec: %v", err)
	}
	if doc["openapi"] != "3.0.3" {
		t.Errorf("Expected openapi 3.0.3, got %v", doc["openapi"])
	}
}

func TestOpenAPIHandler_Missing(t *testing.T) {
	t.Parallel()

	h := NewOpenAPIHandler(filepath.Join(t.TempDir(), "missing.yaml"))
	w := httptest.NewRecorder()
	h.ServeJSON(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
