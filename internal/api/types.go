package api

import (
	"slices"
	"time"
)

const apiTimestampLayout = "2006-01-02 15:04:05"

// TaskListResponse mirrors /api/tasks.
type TaskListResponse struct {
	Items []Task `json:"items"`
}

// Task describes a task row in transport-friendly form.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Completed   bool     `json:"completed"`
	Priority    string   `json:"priority"`
	CategoryID  string   `json:"categoryId"`
	Tags        []string `json:"tags"`
	DueDate     string   `json:"dueDate"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	return t
}

// ParsedDueDate returns the parsed DueDate.
func (t Task) ParsedDueDate() time.Time {
	return parseTime(t.DueDate)
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (t Task) ParsedCreatedAt() time.Time {
	return parseTime(t.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (t Task) ParsedUpdatedAt() time.Time {
	return parseTime(t.UpdatedAt)
}

// CloneTasks deep-copies a result set. Nil and empty inputs both yield nil.
func CloneTasks(items []Task) []Task {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Task, len(items))
	for i, item := range items {
		dup[i] = item.Clone()
	}
	return dup
}

// TaskInput is the writable subset of a task used by create and update.
type TaskInput struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
}

type batchRequest struct {
	IDs       []int64 `json:"ids"`
	Completed bool    `json:"completed"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(apiTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
