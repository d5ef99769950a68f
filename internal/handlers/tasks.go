package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/request"
	"github.com/benvon/taskboard/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// MaxTaskTitleLength is the maximum length for task titles
	MaxTaskTitleLength = 500
	// MaxTaskDescriptionLength is the maximum length for task descriptions
	MaxTaskDescriptionLength = 10000
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	tasks      database.TaskRepositoryInterface
	categories database.CategoryRepositoryInterface
	hooks      writeHooks
	logger     *zap.Logger
	now        func() time.Time
}

// TaskHandlerOption configures a TaskHandler
type TaskHandlerOption func(*TaskHandler)

// WithTaskInvalidator drops cached dashboards after task writes
func WithTaskInvalidator(inv DashboardInvalidator) TaskHandlerOption {
	return func(h *TaskHandler) { h.hooks.invalidator = inv }
}

// WithTaskRefreshScheduler enqueues background dashboard rebuilds after task writes
func WithTaskRefreshScheduler(s RefreshScheduler) TaskHandlerOption {
	return func(h *TaskHandler) { h.hooks.scheduler = s }
}

// WithTaskClock overrides the clock used for overdue filtering
func WithTaskClock(now func() time.Time) TaskHandlerOption {
	return func(h *TaskHandler) { h.now = now }
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks database.TaskRepositoryInterface, categories database.CategoryRepositoryInterface, logger *zap.Logger, opts ...TaskHandlerOption) *TaskHandler {
	h := &TaskHandler{
		tasks:      tasks,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
	h.hooks.logger = logger
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers task routes on a router that already carries the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title       string           `json:"title" validate:"required,min=1,max=500"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	Priority    *models.Priority `json:"priority,omitempty" validate:"omitempty,priority"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Tags        []string         `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Progress    *int             `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
}

// UpdateTaskRequest represents a partial task update. Clear* flags unset nullable fields.
type UpdateTaskRequest struct {
	Title         *string          `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueAt         *time.Time       `json:"due_at,omitempty"`
	ClearDueAt    bool             `json:"clear_due_at,omitempty"`
	Priority      *models.Priority `json:"priority,omitempty" validate:"omitempty,priority"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	ClearCategory bool             `json:"clear_category,omitempty"`
	Tags          []string         `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Progress      *int             `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	Completed     *bool            `json:"completed,omitempty"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// ListTasks lists the authenticated user's tasks with filters and pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	page, pageSize, err := request.Page(r)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	query := r.URL.Query()
	filter := models.TaskFilter{
		Status:  models.TaskStatusAll,
		Now:     h.now(),
		OrderBy: models.OrderCreatedDesc,
		Tag:     validation.SanitizeText(query.Get("tag")),
	}
	if status := query.Get("status"); status != "" {
		if err := validation.ValidateTaskStatus(status); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		filter.Status = models.TaskStatus(status)
	}
	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category_id")
			return
		}
		filter.CategoryID = &categoryID
	}

	ctx := r.Context()
	total, err := h.tasks.CountTasks(ctx, user.ID, filter)
	if err != nil {
		respondStoreError(w, h.logger, err, "tasks")
		return
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize
	tasks, err := h.tasks.ListTasks(ctx, user.ID, filter)
	if err != nil {
		respondStoreError(w, h.logger, err, "tasks")
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	title := validation.SanitizeText(req.Title)
	if title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	if req.CategoryID != nil && !h.checkCategory(ctx, w, user.ID, *req.CategoryID) {
		return
	}

	now := h.now()
	task := &models.Task{
		ID:         uuid.New(),
		UserID:     user.ID,
		Title:      title,
		Priority:   models.PriorityMedium,
		CategoryID: req.CategoryID,
		Tags:       validation.SanitizeTags(req.Tags),
	}
	if req.Description != nil {
		description := validation.SanitizeText(*req.Description)
		task.Description = &description
	}
	if req.DueAt != nil {
		due := req.DueAt.UTC()
		task.DueAt = &due
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.Progress != nil {
		// validated above, cannot fail
		_ = task.SetProgress(*req.Progress, now)
	}

	if err := h.tasks.Create(ctx, task); err != nil {
		respondStoreError(w, h.logger, err, "task")
		return
	}

	h.logger.Debug("task_created",
		logpkg.UserID(user.ID),
		zap.String("task_id", task.ID.String()),
		logpkg.Title(task.Title),
	)
	h.hooks.afterWrite(ctx, user.ID)
	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Progress != nil && req.Completed != nil && (*req.Progress == 100) != *req.Completed {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "progress and completed disagree")
		return
	}

	ctx := r.Context()
	now := h.now()

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty after sanitization")
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		description := validation.SanitizeText(*req.Description)
		task.Description = &description
	}
	switch {
	case req.ClearDueAt:
		task.DueAt = nil
	case req.DueAt != nil:
		due := req.DueAt.UTC()
		task.DueAt = &due
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	switch {
	case req.ClearCategory:
		task.CategoryID = nil
	case req.CategoryID != nil:
		if !h.checkCategory(ctx, w, user.ID, *req.CategoryID) {
			return
		}
		task.CategoryID = req.CategoryID
	}
	if req.Tags != nil {
		task.Tags = validation.SanitizeTags(req.Tags)
	}
	if req.Progress != nil {
		_ = task.SetProgress(*req.Progress, now)
	}
	if req.Completed != nil {
		if *req.Completed {
			task.MarkCompleted(now)
		} else if task.Completed {
			task.MarkIncomplete()
		}
	}
	task.Category = nil

	if err := h.tasks.Update(ctx, task); err != nil {
		respondStoreError(w, h.logger, err, "task")
		return
	}

	h.hooks.afterWrite(ctx, user.ID)
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.tasks.Delete(ctx, user.ID, task.ID); err != nil {
		respondStoreError(w, h.logger, err, "task")
		return
	}

	h.hooks.afterWrite(ctx, user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task as completed. Completing an already completed task keeps its completion time.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	task, ok := h.ownedTask(w, r, user.ID)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.tasks.Complete(ctx, user.ID, task.ID); err != nil {
		respondStoreError(w, h.logger, err, "task")
		return
	}

	completed, err := h.tasks.GetByID(ctx, task.ID)
	if err != nil {
		respondStoreError(w, h.logger, err, "task")
		return
	}

	h.hooks.afterWrite(ctx, user.ID)
	respondJSON(w, http.StatusOK, completed)
}

// ownedTask loads the {id} task and enforces ownership. It writes the error response itself.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) (*models.Task, bool) {
	id, ok := pathID(w, r, "task")
	if !ok {
		return nil, false
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, h.logger, err, "task")
		return nil, false
	}

	if task.UserID != ownerID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Task does not belong to user")
		return nil, false
	}

	return task, true
}

// checkCategory verifies that categoryID exists and belongs to ownerID
func (h *TaskHandler) checkCategory(ctx context.Context, w http.ResponseWriter, ownerID, categoryID uuid.UUID) bool {
	category, err := h.categories.GetByID(ctx, categoryID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Unknown category")
		return false
	}
	if err != nil {
		respondStoreError(w, h.logger, err, "category")
		return false
	}
	if category.UserID != ownerID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Category does not belong to user")
		return false
	}
	return true
}
