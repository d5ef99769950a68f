package models

import (
	"time"

	"github.com/google/uuid"
)

// Section is one named part of a dashboard. The set of implementations is closed
// to this package so the assembler can switch over them exhaustively.
type Section interface {
	isSection()
}

// Stats holds headline task counts for a user
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completion_rate"`
}

// CategoryBreakdown lists categories ordered by task count
type CategoryBreakdown []CategorySummary

// CategoryRef is the category embedded in a task summary
type CategoryRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// TaskSummary is the trimmed task shape used on the dashboard
type TaskSummary struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Priority  Priority     `json:"priority"`
	Progress  int          `json:"progress"`
	Completed bool         `json:"completed"`
	DueAt     *time.Time   `json:"due_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Category  *CategoryRef `json:"category,omitempty"`
}

// TaskSummaryList is an ordered list of task summaries
type TaskSummaryList []TaskSummary

// ActivityFeed is a list of activity events, most recent first
type ActivityFeed []ActivityEvent

// TrendPoint is the completion percentage at the end of one day
type TrendPoint struct {
	Date string `json:"date"`
	Rate int    `json:"rate"`
}

// TrendSeries is a fixed-length daily series, oldest first
type TrendSeries []TrendPoint

// PriorityDistribution counts tasks per priority
type PriorityDistribution map[Priority]int

func (Stats) isSection()                {}
func (CategoryBreakdown) isSection()    {}
func (TaskSummaryList) isSection()      {}
func (ActivityFeed) isSection()         {}
func (TrendSeries) isSection()          {}
func (PriorityDistribution) isSection() {}

// DashboardView is the public dashboard response
type DashboardView struct {
	Stats                  Stats                `json:"stats"`
	Categories             CategoryBreakdown    `json:"categories"`
	RecentTasks            TaskSummaryList      `json:"recentTasks"`
	UpcomingDeadlines      TaskSummaryList      `json:"upcomingDeadlines"`
	RecentActivity         ActivityFeed         `json:"recentActivity"`
	CompletionRateOverTime TrendSeries          `json:"completionRateOverTime"`
	PriorityDistribution   PriorityDistribution `json:"priorityDistribution"`
	GeneratedAt            time.Time            `json:"generatedAt"`
}

// NewTaskSummary trims a task to its dashboard shape. Times are normalized to UTC.
func NewTaskSummary(t *Task) TaskSummary {
	s := TaskSummary{
		ID:        t.ID,
		Title:     t.Title,
		Priority:  t.Priority,
		Progress:  t.Progress,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC(),
	}
	if t.DueAt != nil {
		due := t.DueAt.UTC()
		s.DueAt = &due
	}
	if t.Category != nil {
		s.Category = &CategoryRef{ID: t.Category.ID, Name: t.Category.Name, Color: t.Category.Color}
	}
	return s
}
