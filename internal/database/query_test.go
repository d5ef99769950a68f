package database

import (
	"strings"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/models"
	"github.com/google/uuid"
)

// TestTaskWhere_OwnerPredicateAlwaysFirst guards tenant isolation: no filter
// combination may drop or reorder the owner predicate.
func TestTaskWhere_OwnerPredicateAlwaysFirst(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	categoryID := uuid.New()
	no := false

	filters := map[string]models.TaskFilter{
		"empty":     {},
		"pending":   {Status: models.TaskStatusPending},
		"overdue":   {Status: models.TaskStatusOverdue, Now: now},
		"undated":   {HasDueDate: &no},
		"due range": {DueAfter: &now, DueBefore: &now},
		"category":  {CategoryID: &categoryID},
		"tag":       {Tag: "work"},
		"everything": {
			Status: models.TaskStatusCompleted, DueAfter: &now, CreatedBefore: &now,
			CompletedBefore: &now, CategoryID: &categoryID, Tag: "home",
		},
	}

	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			where, args := taskWhere(owner, f)
			if !strings.HasPrefix(where, " WHERE t.user_id = $1") {
				t.Errorf("Expected owner predicate first, got %q", where)
			}
			if len(args) == 0 || args[0] != owner {
				t.Fatalf("Expected owner bound to $1, got %v", args)
			}
			placeholders := strings.Count(where, "$")
			if placeholders != len(args) {
				t.Errorf("Expected %d placeholders, got %d in %q", len(args), placeholders, where)
			}
		})
	}
}

func TestListTasksQuery_LimitAndOffset(t *testing.T) {
	t.Parallel()

	owner := uuid.New()

	query, args := listTasksQuery(owner, models.TaskFilter{Tag: "work", Limit: 10, Offset: 20, OrderBy: models.OrderDueAsc})
	if !strings.Contains(query, "ORDER BY t.due_at ASC NULLS LAST") {
		t.Errorf("Expected due ordering, got %q", query)
	}
	if !strings.HasSuffix(query, "LIMIT $3 OFFSET $4") {
		t.Errorf("Expected limit/offset placeholders at the end, got %q", query)
	}
	if args[2] != 10 || args[3] != 20 {
		t.Errorf("Expected limit 10 offset 20, got %v", args[2:])
	}

	query, args = listTasksQuery(owner, models.TaskFilter{Limit: 100000})
	if strings.Contains(query, "OFFSET") {
		t.Errorf("Expected no offset clause, got %q", query)
	}
	if args[len(args)-1] != models.MaxTaskLimit {
		t.Errorf("Expected limit capped at %d, got %v", models.MaxTaskLimit, args[len(args)-1])
	}
}

func TestCountTasksQuery(t *testing.T) {
	t.Parallel()

	query, args := countTasksQuery(uuid.New(), models.TaskFilter{Status: models.TaskStatusPending})
	expected := "SELECT COUNT(*) FROM tasks t WHERE t.user_id = $1 AND t.completed = false"
	if query != expected {
		t.Errorf("Expected %q, got %q", expected, query)
	}
	if len(args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(args))
	}
}
