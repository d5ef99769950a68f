package handlers

import (
	"net/http"
	"strings"

	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categories database.CategoryRepositoryInterface
	hooks      writeHooks
	logger     *zap.Logger
}

// NewCategoryHandler creates a new category handler. inv and scheduler may be nil.
func NewCategoryHandler(categories database.CategoryRepositoryInterface, inv DashboardInvalidator, scheduler RefreshScheduler, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		hooks:      writeHooks{invalidator: inv, scheduler: scheduler, logger: logger},
		logger:     logger,
	}
}

// RegisterRoutes registers category routes on a router that already carries the /categories prefix
func (h *CategoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCategories).Methods("GET")
	r.HandleFunc("", h.CreateCategory).Methods("POST")
	r.HandleFunc("/{id}", h.UpdateCategory).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteCategory).Methods("DELETE")
}

// CreateCategoryRequest represents a create category request
type CreateCategoryRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Color string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateCategoryRequest represents a partial category update
type UpdateCategoryRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ListCategories lists the authenticated user's categories by name
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	categories, err := h.categories.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, h.logger, err, "categories")
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a category. A duplicate name for the same owner is a 409.
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := validation.SanitizeText(req.Name)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
		return
	}

	category := &models.Category{
		ID:     uuid.New(),
		UserID: user.ID,
		Name:   name,
		Color:  models.DefaultCategoryColor,
	}
	if req.Color != "" {
		category.Color = strings.ToLower(req.Color)
	}

	ctx := r.Context()
	if err := h.categories.Create(ctx, category); err != nil {
		respondStoreError(w, h.logger, err, "category")
		return
	}

	h.logger.Debug("category_created",
		logpkg.UserID(user.ID),
		zap.String("category_id", category.ID.String()),
		logpkg.Title(category.Name),
	)
	h.hooks.afterWrite(ctx, user.ID)
	respondJSON(w, http.StatusCreated, category)
}

// UpdateCategory renames or recolors a category
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	category, ok := h.ownedCategory(w, r, user.ID)
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		category.Name = name
	}
	if req.Color != nil {
		category.Color = strings.ToLower(*req.Color)
	}

	ctx := r.Context()
	if err := h.categories.Update(ctx, category); err != nil {
		respondStoreError(w, h.logger, err, "category")
		return
	}

	h.hooks.afterWrite(ctx, user.ID)
	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory deletes a category. Its tasks are kept and become uncategorized.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	category, ok := h.ownedCategory(w, r, user.ID)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.categories.Delete(ctx, user.ID, category.ID); err != nil {
		respondStoreError(w, h.logger, err, "category")
		return
	}

	h.hooks.afterWrite(ctx, user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoryHandler) ownedCategory(w http.ResponseWriter, r *http.Request, ownerID uuid.UUID) (*models.Category, bool) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return nil, false
	}

	category, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		respondStoreError(w, h.logger, err, "category")
		return nil, false
	}

	if category.UserID != ownerID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Category does not belong to user")
		return nil, false
	}

	return category, true
}
