package domain

import (
	"time"
)

const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"

	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

type Task struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	WorkspaceID int64         `json:"workspace_id"`
	CreatorID   int64         `json:"creator_id"`
	DueDate     *time.Time    `json:"due_date"`
	CompletedAt *time.Time    `json:"completed_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at"`
	Assignees   []UserSummary `json:"assignees"`
}

type Comment struct {
	ID        int64      `json:"id"`
	Content   string     `json:"content"`
	TaskID    int64      `json:"task_id"`
	AuthorID  int64      `json:"author_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	// Joined fields
	Author *UserSummary `json:"author,omitempty"`
}
