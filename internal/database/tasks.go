package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db  *DB
	now func() time.Time
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		description   sql.NullString
		dueAt         sql.NullTime
		completedAt   sql.NullTime
		categoryID    uuid.NullUUID
		tags          pq.StringArray
		joinedID      uuid.NullUUID
		categoryName  sql.NullString
		categoryColor sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&dueAt,
		&task.Completed,
		&completedAt,
		&task.Priority,
		&categoryID,
		&tags,
		&task.Progress,
		&task.CreatedAt,
		&task.UpdatedAt,
		&joinedID,
		&categoryName,
		&categoryColor,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	if dueAt.Valid {
		task.DueAt = &dueAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if categoryID.Valid {
		id := categoryID.UUID
		task.CategoryID = &id
	}
	if joinedID.Valid {
		task.Category = &models.Category{
			ID:     joinedID.UUID,
			UserID: task.UserID,
			Name:   categoryName.String,
			Color:  categoryColor.String,
		}
	}
	task.Tags = []string(tags)
	if task.Tags == nil {
		task.Tags = []string{}
	}

	return task, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, due_at, completed, completed_at,
			priority, category_id, tags, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING created_at, updated_at
	`

	now := r.now()
	task.Normalize(now)

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		nullTime(task.DueAt),
		task.Completed,
		nullTime(task.CompletedAt),
		task.Priority,
		nullUUID(task.CategoryID),
		pq.Array(task.Tags),
		task.Progress,
		now,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", classify(err))
	}

	return nil
}

// GetByID retrieves a task by ID regardless of owner so callers can reject
// foreign access explicitly
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := "SELECT" + taskColumns + " WHERE t.id = $1"

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", classify(err))
	}

	return task, nil
}

// Update updates an existing task owned by task.UserID
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, due_at = $5, completed = $6, completed_at = $7,
			priority = $8, category_id = $9, tags = $10, progress = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	now := r.now()
	task.Normalize(now)

	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		nullTime(task.DueAt),
		task.Completed,
		nullTime(task.CompletedAt),
		task.Priority,
		nullUUID(task.CategoryID),
		pq.Array(task.Tags),
		task.Progress,
		now,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", classify(err))
	}

	return nil
}

// Delete deletes a task owned by ownerID
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to delete task: %w", ErrNotFound)
	}

	return nil
}

// Complete marks a task owned by ownerID as completed. Completing an already
// completed task keeps its original completion time.
func (r *TaskRepository) Complete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET completed = true, progress = 100,
			completed_at = COALESCE(completed_at, $3), updated_at = $3
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, ownerID, r.now())
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", classify(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to complete task: %w", ErrNotFound)
	}

	return nil
}

// ListTasks returns a bounded list of the owner's tasks matching the filter
func (r *TaskRepository) ListTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	query, args := listTasksQuery(ownerID, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", classify(err))
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", classify(err))
	}

	return tasks, nil
}

// CountTasks counts the owner's tasks matching the filter
func (r *TaskRepository) CountTasks(ctx context.Context, ownerID uuid.UUID, filter models.TaskFilter) (int, error) {
	query, args := countTasksQuery(ownerID, filter)

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", classify(err))
	}

	return count, nil
}

// CountByPriority groups the owner's tasks by priority. Every priority is present
// in the result, zero when the owner has no such tasks.
func (r *TaskRepository) CountByPriority(ctx context.Context, ownerID uuid.UUID) (map[models.Priority]int, error) {
	query := `SELECT priority, COUNT(*) FROM tasks WHERE user_id = $1 GROUP BY priority`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", classify(err))
	}
	defer rows.Close()

	counts := make(map[models.Priority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		counts[p] = 0
	}
	for rows.Next() {
		var priority models.Priority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan priority count: %w", err)
		}
		counts[priority] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating priority counts: %w", classify(err))
	}

	return counts, nil
}

// CategoryTaskCounts returns the owner's top categories by task count
func (r *TaskRepository) CategoryTaskCounts(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.CategorySummary, error) {
	query := `
		SELECT c.id, c.name, c.color, COUNT(t.id) AS task_count
		FROM categories c
		LEFT JOIN tasks t ON t.category_id = c.id AND t.user_id = c.user_id
		WHERE c.user_id = $1
		GROUP BY c.id, c.name, c.color
		ORDER BY task_count DESC, c.name ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", classify(err))
	}
	defer rows.Close()

	summaries := make([]models.CategorySummary, 0, limit)
	for rows.Next() {
		var s models.CategorySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.TaskCount); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", classify(err))
	}

	return summaries, nil
}

// ActivityEvents merges created, completed and updated events for the owner,
// newest first. An update that only recorded the completion is not repeated.
func (r *TaskRepository) ActivityEvents(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.ActivityEvent, error) {
	query := `
		SELECT kind, id, title, at FROM (
			SELECT 'created' AS kind, id, title, created_at AS at
			FROM tasks WHERE user_id = $1
			UNION ALL
			SELECT 'completed', id, title, completed_at
			FROM tasks WHERE user_id = $1 AND completed_at IS NOT NULL
			UNION ALL
			SELECT 'updated', id, title, updated_at
			FROM tasks
			WHERE user_id = $1 AND updated_at > created_at
				AND (completed_at IS NULL OR updated_at <> completed_at)
		) events
		ORDER BY at DESC, kind ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", classify(err))
	}
	defer rows.Close()

	events := make([]models.ActivityEvent, 0, limit)
	for rows.Next() {
		var e models.ActivityEvent
		if err := rows.Scan(&e.Type, &e.TaskID, &e.TaskTitle, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", classify(err))
	}

	return events, nil
}
