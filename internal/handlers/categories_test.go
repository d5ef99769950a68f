package handlers

import (
	"net/http"
	"testing"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

func (e *testEnv) createCategory(t *testing.T, user *models.User, body map[string]any) *models.Category {
	t.Helper()
	w := e.do(user, http.MethodPost, "/api/v1/categories", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating category, got %d: %s", w.Code, w.Body.String())
	}
	var category models.Category
	decodeData(t, w, &category)
	return &category
}

func TestCategoryHandler_CreateAndList(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	work := e.createCategory(t, e.owner, map[string]any{"name": "Work", "color": "#AABBCC"})
	home := e.createCategory(t, e.owner, map[string]any{"name": "Home"})
	e.createCategory(t, e.other, map[string]any{"name": "Work"})

	if work.Color != "#aabbcc" {
		t.Errorf("Expected lowercased color, got %q", work.Color)
	}
	if home.Color != models.DefaultCategoryColor {
		t.Errorf("Expected default color, got %q", home.Color)
	}

	w := e.do(e.owner, http.MethodGet, "/api/v1/categories", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var listed []models.Category
	decodeData(t, w, &listed)
	if len(listed) != 2 || listed[0].Name != "Home" || listed[1].Name != "Work" {
		t.Errorf("Expected [Home Work], got %+v", listed)
	}
}

func TestCategoryHandler_CreateCategory_Invalid(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	e.createCategory(t, e.owner, map[string]any{"name": "Work"})

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{name: "duplicate name", body: map[string]any{"name": "Work"}, wantStatus: http.StatusConflict},
		{name: "missing name", body: map[string]any{"color": "#000000"}, wantStatus: http.StatusBadRequest},
		{name: "bad color", body: map[string]any{"name": "Errands", "color": "blue"}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := e.do(e.owner, http.MethodPost, "/api/v1/categories", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	work := e.createCategory(t, e.owner, map[string]any{"name": "Work"})
	e.createCategory(t, e.owner, map[string]any{"name": "Home"})
	path := "/api/v1/categories/" + work.ID.String()

	w := e.do(e.owner, http.MethodPatch, path, map[string]any{"name": "Office", "color": "#123456"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated models.Category
	decodeData(t, w, &updated)
	if updated.Name != "Office" || updated.Color != "#123456" {
		t.Errorf("Unexpected update result %+v", updated)
	}

	if w := e.do(e.owner, http.MethodPatch, path, map[string]any{"name": "Home"}); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 renaming onto an existing name, got %d", w.Code)
	}
	if w := e.do(e.other, http.MethodPatch, path, map[string]any{"name": "Mine now"}); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for another owner, got %d", w.Code)
	}
	if w := e.do(e.owner, http.MethodPatch, "/api/v1/categories/"+uuid.NewString(), map[string]any{"name": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing category, got %d", w.Code)
	}
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	work := e.createCategory(t, e.owner, map[string]any{"name": "Work"})
	task := e.createTask(t, e.owner, map[string]any{"title": "Filed", "category_id": work.ID})
	path := "/api/v1/categories/" + work.ID.String()

	if w := e.do(e.other, http.MethodDelete, path, nil); w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for another owner, got %d", w.Code)
	}

	w := e.do(e.owner, http.MethodDelete, path, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	w = e.do(e.owner, http.MethodGet, "/api/v1/tasks/"+task.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected task to survive category delete, got %d", w.Code)
	}
	var detached models.Task
	decodeData(t, w, &detached)
	if detached.CategoryID != nil {
		t.Errorf("Expected task to be uncategorized, got %v", detached.CategoryID)
	}
}
