package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies what happened to a task
type ActivityType string

const (
	ActivityCreated   ActivityType = "created"
	ActivityCompleted ActivityType = "completed"
	ActivityUpdated   ActivityType = "updated"
)

// ActivityEvent is one entry in a user's recent activity feed
type ActivityEvent struct {
	Type      ActivityType `json:"type"`
	TaskID    uuid.UUID    `json:"task_id"`
	TaskTitle string       `json:"task_title"`
	At        time.Time    `json:"at"`
}

// CategorySummary is a category with the number of tasks assigned to it
type CategorySummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TaskCount int       `json:"task_count"`
}
