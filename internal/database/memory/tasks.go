package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/benvon/taskboard/internal/database"
	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// TaskRepository is the in-memory task repository
type TaskRepository struct {
	s *Store
}

var _ database.TaskRepositoryInterface = (*TaskRepository)(nil)

// Create stores a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[task.UserID]; !ok {
		return fmt.Errorf("failed to create task: owner %s does not exist", task.UserID)
	}
	if _, exists := r.s.tasks[task.ID]; exists {
		return fmt.Errorf("failed to create task: %w", database.ErrDuplicate)
	}

	now := r.s.now()
	task.Normalize(now)
	task.CreatedAt = now
	task.UpdatedAt = now
	r.s.tasks[task.ID] = copyTask(task)
	return nil
}

// GetByID returns a task regardless of owner
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	task, ok := r.s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("failed to get task: %w", database.ErrNotFound)
	}
	return r.withCategory(task), nil
}

// Update replaces a task owned by task.UserID
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return fmt.Errorf("failed to update task: %w", database.ErrNotFound)
	}

	now := r.s.now()
	task.Normalize(now)
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = now
	r.s.tasks[task.ID] = copyTask(task)
	return nil
}

// Delete removes a task owned by ownerID
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[id]
	if !ok || existing.UserID != ownerID {
		return fmt.Errorf("failed to delete task: %w", database.ErrNotFound)
	}
	delete(r.s.tasks, id)
	return nil
}

// Complete marks a task owned by ownerID as completed
func (r *TaskRepository) Complete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[id]
	if !ok || existing.UserID != ownerID {
		return fmt.Errorf("failed to complete task: %w", database.ErrNotFound)
	}

	now := r.s.now()
	existing.MarkCompleted(now)
	existing.UpdatedAt = now
	return nil
}

// owned returns copies of the owner's tasks matching the filter. Caller holds the read lock.
func (r *TaskRepository) owned(ownerID uuid.UUID, filter models.TaskFilter) []*models.Task {
	matched := make([]*models.Task, 0)
	for _, task := range r.s.tasks {
		if task.UserID != ownerID {
			continue
		}
		if filter.Matches(task) {
			matched = append(matched, task)
		}
	}
	return matched
}

// withCategory copies a task and attaches its category if the owner still has it.
// Caller holds the read lock.
func (r *TaskRepository) withCategory(task *models.Task) *models.Task {
	c := copyTask(task)
	if task.CategoryID != nil {
		if category, ok := r.s.categories[*task.CategoryID]; ok && category.UserID == task.UserID {
			c.Category = copyCategory(category)
		}
	}
	return c
}

// ListTasks returns a bounded, ordered list of the owner's tasks
func (r *TaskRepository) ListTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.owned(ownerID, filter)
	sortTasks(matched, filter.OrderBy)

	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.EffectiveLimit()
	if end > len(matched) {
		end = len(matched)
	}

	tasks := make([]*models.Task, 0, end-start)
	for _, task := range matched[start:end] {
		tasks = append(tasks, r.withCategory(task))
	}
	return tasks, nil
}

func sortTasks(tasks []*models.Task, order models.TaskOrder) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch order {
		case models.OrderDueAsc:
			switch {
			case a.DueAt == nil && b.DueAt == nil:
			case a.DueAt == nil:
				return false
			case b.DueAt == nil:
				return true
			case !a.DueAt.Equal(*b.DueAt):
				return a.DueAt.Before(*b.DueAt)
			}
		case models.OrderUpdatedDesc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	})
}

// CountTasks counts the owner's tasks matching the filter
func (r *TaskRepository) CountTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) (int, error) {
	if err := r.s.wait(ctx); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.owned(ownerID, filter)), nil
}

// CountByPriority groups the owner's tasks by priority
func (r *TaskRepository) CountByPriority(ctx context.Context, ownerID uuid.UUID) (map[models.Priority]int, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[models.Priority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		counts[p] = 0
	}
	for _, task := range r.owned(ownerID, models.TaskFilter{}) {
		counts[task.Priority]++
	}
	return counts, nil
}

// CategoryTaskCounts returns the owner's top categories by task count
func (r *TaskRepository) CategoryTaskCounts(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.CategorySummary, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	summaries := make([]models.CategorySummary, 0)
	for _, category := range r.s.categories {
		if category.UserID != ownerID {
			continue
		}
		summaries = append(summaries, models.CategorySummary{
			ID:    category.ID,
			Name:  category.Name,
			Color: category.Color,
			TaskCount: len(r.owned(ownerID, models.TaskFilter{
				CategoryID: &category.ID,
			})),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TaskCount != summaries[j].TaskCount {
			return summaries[i].TaskCount > summaries[j].TaskCount
		}
		return summaries[i].Name < summaries[j].Name
	})
	if limit >= 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// ActivityEvents merges created, completed and updated events, newest first
func (r *TaskRepository) ActivityEvents(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.ActivityEvent, error) {
	if err := r.s.wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	events := make([]models.ActivityEvent, 0)
	for _, task := range r.owned(ownerID, models.TaskFilter{}) {
		events = append(events, models.ActivityEvent{
			Type: models.ActivityCreated, TaskID: task.ID, TaskTitle: task.Title, At: task.CreatedAt,
		})
		if task.CompletedAt != nil {
			events = append(events, models.ActivityEvent{
				Type: models.ActivityCompleted, TaskID: task.ID, TaskTitle: task.Title, At: *task.CompletedAt,
			})
		}
		if task.UpdatedAt.After(task.CreatedAt) && (task.CompletedAt == nil || !task.UpdatedAt.Equal(*task.CompletedAt)) {
			events = append(events, models.ActivityEvent{
				Type: models.ActivityUpdated, TaskID: task.ID, TaskTitle: task.Title, At: task.UpdatedAt,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.TaskID.String() < b.TaskID.String()
	})
	if limit >= 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
