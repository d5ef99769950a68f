package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/database/memory"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// recordingHooks counts invalidations and scheduled refreshes per owner
type recordingHooks struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	scheduled   []uuid.UUID
}

func (h *recordingHooks) Invalidate(_ context.Context, ownerID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = append(h.invalidated, ownerID)
	return nil
}

func (h *recordingHooks) Schedule(_ context.Context, ownerID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheduled = append(h.scheduled, ownerID)
	return nil
}

func (h *recordingHooks) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.invalidated), len(h.scheduled)
}

type testEnv struct {
	store  *memory.Store
	owner  *models.User
	other  *models.User
	hooks  *recordingHooks
	router *mux.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		store: memory.New(memory.WithClock(func() time.Time { return testNow })),
		owner: &models.User{ID: uuid.New(), Email: "owner@example.com"},
		other: &models.User{ID: uuid.New(), Email: "other@example.com"},
		hooks: &recordingHooks{},
	}
	e.store.Seed([]*models.User{e.owner, e.other}, nil, nil)

	e.router = mux.NewRouter()
	api := e.router.PathPrefix("/api/v1").Subrouter()
	NewTaskHandler(e.store.Tasks(), e.store.Categories(), zap.NewNop(),
		WithTaskInvalidator(e.hooks),
		WithTaskRefreshScheduler(e.hooks),
		WithTaskClock(func() time.Time { return testNow }),
	).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	NewCategoryHandler(e.store.Categories(), e.hooks, e.hooks, zap.NewNop()).
		RegisterRoutes(api.PathPrefix("/categories").Subrouter())
	return e
}

// do sends a request as user (nil = anonymous) and returns the recorded response
func (e *testEnv) do(user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	req := newTestRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(middleware.SetUserInContext(req.Context(), user))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// newTestRequest creates a test request with an optional JSON (or raw string) body
func newTestRequest(method, path string, body any) *http.Request {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	return httptest.NewRequest(method, path, reader)
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v (body %s)", err, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("Expected success envelope, got %s", w.Body.String())
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode error envelope: %v (body %s)", err, w.Body.String())
	}
	if env.Success {
		t.Fatal("Expected success to be false")
	}
	return env
}

func TestRespondJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		data   any
		want   string
	}{
		{name: "object", status: http.StatusOK, data: map[string]string{"message": "hello"}, want: `{"message":"hello"}`},
		{name: "nil data", status: http.StatusCreated, data: nil, want: `null`},
		{name: "array", status: http.StatusOK, data: []string{"a", "b", "c"}, want: `["a","b","c"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %q", ct)
			}

			var body struct {
				Success   bool            `json:"success"`
				Data      json.RawMessage `json:"data"`
				Timestamp string          `json:"timestamp"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if !body.Success {
				t.Error("Expected success to be true")
			}
			if string(body.Data) != tt.want {
				t.Errorf("Expected data %s, got %s", tt.want, body.Data)
			}
			if _, err := time.Parse(time.RFC3339, body.Timestamp); err != nil {
				t.Errorf("Timestamp %q is not RFC3339: %v", body.Timestamp, err)
			}
		})
	}
}

func TestRespondJSONError(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid input")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	env := decodeError(t, w)
	if env.Error != "Bad Request" || env.Message != "Invalid input" {
		t.Errorf("Unexpected envelope %+v", env)
	}

	long := strings.Repeat("x", maxErrorMessageLength+50)
	w = httptest.NewRecorder()
	respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", long)
	if got := decodeError(t, w).Message; len(got) != maxErrorMessageLength+3 {
		t.Errorf("Expected truncated message, got length %d", len(got))
	}
}

func TestRespondStoreError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("failed to get task: %w", database.ErrNotFound), want: http.StatusNotFound},
		{err: fmt.Errorf("failed to create category: %w", database.ErrDuplicate), want: http.StatusConflict},
		{err: fmt.Errorf("failed to count tasks: %w", database.ErrUnavailable), want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.want), func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondStoreError(w, zap.NewNop(), tt.err, "task")
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}
