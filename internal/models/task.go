package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority is the ordinal importance of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in ascending order
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Rank returns the ordinal value of the priority (low=1, medium=2, high=3), 0 if unknown
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	default:
		return 0
	}
}

// Valid reports whether p is a known priority
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Task represents a task owned by a single user
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Priority    Priority   `json:"priority"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarkCompleted completes the task at the given time. Progress is pinned to 100.
func (t *Task) MarkCompleted(now time.Time) {
	t.Completed = true
	t.Progress = 100
	if t.CompletedAt == nil {
		completedAt := now
		t.CompletedAt = &completedAt
	}
}

// MarkIncomplete reopens the task. Progress drops below 100 if it was pinned there.
func (t *Task) MarkIncomplete() {
	t.Completed = false
	t.CompletedAt = nil
	if t.Progress >= 100 {
		t.Progress = 0
	}
}

// SetProgress updates progress, completing or reopening the task at the 100 boundary
func (t *Task) SetProgress(progress int, now time.Time) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100, got %d", progress)
	}
	if progress == 100 {
		t.MarkCompleted(now)
		return nil
	}
	if t.Completed {
		t.MarkIncomplete()
	}
	t.Progress = progress
	return nil
}

// Normalize restores the completion invariants before a write:
// completed implies progress 100 and a completion time, and vice versa.
func (t *Task) Normalize(now time.Time) {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Completed || t.Progress >= 100 {
		t.MarkCompleted(now)
		return
	}
	t.CompletedAt = nil
	if t.Progress < 0 {
		t.Progress = 0
	}
}

// IsOverdue reports whether the task is incomplete and past its due time
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueAt != nil && t.DueAt.Before(now)
}

// HasTag reports whether the task carries the given tag
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}
