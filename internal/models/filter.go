package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus selects tasks by completion state
type TaskStatus string

const (
	TaskStatusAll       TaskStatus = "all"
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusOverdue matches incomplete tasks due before TaskFilter.Now
	TaskStatusOverdue TaskStatus = "overdue"
)

// TaskOrder selects the ordering of listed tasks
type TaskOrder string

const (
	OrderCreatedDesc TaskOrder = "created_desc"
	OrderDueAsc      TaskOrder = "due_asc"
	OrderUpdatedDesc TaskOrder = "updated_desc"
)

const (
	// DefaultTaskLimit is applied when a filter has no limit
	DefaultTaskLimit = 50
	// MaxTaskLimit caps the number of rows a single read may return
	MaxTaskLimit = 500
)

// TaskFilter narrows a read against one owner's tasks. The owner is never part
// of the filter; readers take it as a separate argument.
type TaskFilter struct {
	Status          TaskStatus
	Now             time.Time
	DueAfter        *time.Time
	DueBefore       *time.Time
	CreatedBefore   *time.Time
	CompletedBefore *time.Time
	HasDueDate      *bool
	CategoryID      *uuid.UUID
	Tag             string
	OrderBy         TaskOrder
	Limit           int
	Offset          int
}

// EffectiveLimit returns the bounded row limit for the filter
func (f TaskFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultTaskLimit
	case f.Limit > MaxTaskLimit:
		return MaxTaskLimit
	default:
		return f.Limit
	}
}

// Matches applies the filter to a single task in memory
func (f TaskFilter) Matches(t *Task) bool {
	switch f.Status {
	case TaskStatusPending:
		if t.Completed {
			return false
		}
	case TaskStatusCompleted:
		if !t.Completed {
			return false
		}
	case TaskStatusOverdue:
		if !t.IsOverdue(f.Now) {
			return false
		}
	}
	if f.HasDueDate != nil && (t.DueAt != nil) != *f.HasDueDate {
		return false
	}
	if f.DueAfter != nil && (t.DueAt == nil || t.DueAt.Before(*f.DueAfter)) {
		return false
	}
	if f.DueBefore != nil && (t.DueAt == nil || !t.DueAt.Before(*f.DueBefore)) {
		return false
	}
	if f.CreatedBefore != nil && t.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.CompletedBefore != nil && (t.CompletedAt == nil || t.CompletedAt.After(*f.CompletedBefore)) {
		return false
	}
	if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	return true
}
