package database

import (
	"fmt"
	"strings"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// taskColumns is the select list shared by every task read. The category join is
// owner-scoped so a foreign category can never leak into a task row.
const taskColumns = `
		t.id, t.user_id, t.title, t.description, t.due_at, t.completed, t.completed_at,
		t.priority, t.category_id, t.tags, t.progress, t.created_at, t.updated_at,
		c.id, c.name, c.color
	FROM tasks t
	LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id`

// taskWhere builds the WHERE clause for a filter. The owner predicate is always
// first and always bound to $1.
func taskWhere(ownerID uuid.UUID, f models.TaskFilter) (string, []any) {
	clauses := []string{"t.user_id = $1"}
	args := []any{ownerID}

	bind := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	switch f.Status {
	case models.TaskStatusPending:
		clauses = append(clauses, "t.completed = false")
	case models.TaskStatusCompleted:
		clauses = append(clauses, "t.completed = true")
	case models.TaskStatusOverdue:
		clauses = append(clauses, "t.completed = false", "t.due_at IS NOT NULL")
		bind("t.due_at < $%d", f.Now)
	}

	if f.HasDueDate != nil {
		if *f.HasDueDate {
			clauses = append(clauses, "t.due_at IS NOT NULL")
		} else {
			clauses = append(clauses, "t.due_at IS NULL")
		}
	}
	if f.DueAfter != nil {
		bind("t.due_at >= $%d", *f.DueAfter)
	}
	if f.DueBefore != nil {
		bind("t.due_at < $%d", *f.DueBefore)
	}
	if f.CreatedBefore != nil {
		bind("t.created_at <= $%d", *f.CreatedBefore)
	}
	if f.CompletedBefore != nil {
		bind("t.completed_at <= $%d", *f.CompletedBefore)
	}
	if f.CategoryID != nil {
		bind("t.category_id = $%d", *f.CategoryID)
	}
	if f.Tag != "" {
		bind("$%d = ANY(t.tags)", f.Tag)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

// taskOrder maps a filter ordering onto SQL. Ties break on id for stable pages.
func taskOrder(order models.TaskOrder) string {
	switch order {
	case models.OrderDueAsc:
		return " ORDER BY t.due_at ASC NULLS LAST, t.id ASC"
	case models.OrderUpdatedDesc:
		return " ORDER BY t.updated_at DESC, t.id ASC"
	default:
		return " ORDER BY t.created_at DESC, t.id ASC"
	}
}

// listTasksQuery assembles a bounded task listing for one owner
func listTasksQuery(ownerID uuid.UUID, f models.TaskFilter) (string, []any) {
	where, args := taskWhere(ownerID, f)
	query := "SELECT" + taskColumns + where + taskOrder(f.OrderBy)

	args = append(args, f.EffectiveLimit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

// countTasksQuery assembles a count over one owner's tasks
func countTasksQuery(ownerID uuid.UUID, f models.TaskFilter) (string, []any) {
	where, args := taskWhere(ownerID, f)
	return "SELECT COUNT(*) FROM tasks t" + where, args
}
