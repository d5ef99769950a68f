package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/benvon/taskboard/internal/dashboard"
	"github.com/benvon/taskboard/internal/database"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/middleware"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DashboardGetter assembles an owner's dashboard
type DashboardGetter interface {
	GetDashboard(ctx context.Context, ownerID uuid.UUID, opts dashboard.GetOptions) (*models.DashboardView, error)
}

// DashboardHandler serves the aggregated dashboard
type DashboardHandler struct {
	service DashboardGetter
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardGetter, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

// RegisterRoutes registers the dashboard route on a router that already carries the /dashboard prefix
func (h *DashboardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetDashboard).Methods("GET")
}

// GetDashboard returns the dashboard, served from cache unless ?refresh=true
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var opts dashboard.GetOptions
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		refresh, err := strconv.ParseBool(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "refresh must be a boolean")
			return
		}
		opts.ForceRefresh = refresh
	}

	view, err := h.service.GetDashboard(r.Context(), user.ID, opts)
	if err != nil {
		if errors.Is(err, database.ErrUnavailable) {
			h.logger.Error("dashboard_storage_unavailable",
				logpkg.UserID(user.ID),
				zap.Error(err),
			)
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Storage is unavailable")
			return
		}
		h.logger.Error("dashboard_failed",
			logpkg.UserID(user.ID),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build dashboard")
		return
	}

	respondJSON(w, http.StatusOK, view)
}
