package database

import (
	"context"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// TaskReader is the read side used by the dashboard jobs. Every method is scoped
// to a single owner and never returns another owner's rows.
type TaskReader interface {
	CountTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) (int, error)
	ListTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	CountByPriority(ctx context.Context, ownerID uuid.UUID) (map[models.Priority]int, error)
	CategoryTaskCounts(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.CategorySummary, error)
	ActivityEvents(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.ActivityEvent, error)
}

// TaskRepositoryInterface defines the full task repository
// This interface enables better testability by allowing in-memory implementations
type TaskRepositoryInterface interface {
	TaskReader
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Complete(ctx context.Context, ownerID, id uuid.UUID) error
}

// CategoryRepositoryInterface defines category repository operations
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByUser(ctx context.Context, ownerID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// UserRepositoryInterface defines user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface     = (*TaskRepository)(nil)
	_ CategoryRepositoryInterface = (*CategoryRepository)(nil)
	_ UserRepositoryInterface     = (*UserRepository)(nil)
)
