package model

import (
	"strings"
	"time"
)

// Task statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidStatuses and ValidPriorities are the single source of truth for the
// enum constraints. The Mongo collection validator is derived from them too.
var (
	ValidStatuses   = []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}
	ValidPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
)

// IsValidStatus reports whether s is one of the allowed status values.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsValidPriority reports whether p is one of the allowed priority values.
func IsValidPriority(p string) bool {
	for _, v := range ValidPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Field defaults applied on creation.
const (
	DefaultCategory       = "general"
	DefaultAssignee       = "unassigned"
	DefaultEstimatedHours = 1
)

// Task is a single unit of work tracked by the system. The store assigns the
// ID on creation; CreatedAt is immutable afterwards and UpdatedAt is
// refreshed on every mutation. CompletedAt is stamped the first time Status
// reaches "completed" and never overwritten by later saves.
type Task struct {
	ID             string     `json:"id" bson:"_id"`
	Title          string     `json:"title" bson:"title"`
	Description    string     `json:"description" bson:"description"`
	Status         string     `json:"status" bson:"status"`
	Priority       string     `json:"priority" bson:"priority"`
	Category       string     `json:"category" bson:"category"`
	AssignedTo     string     `json:"assignedTo" bson:"assignedTo"`
	DueDate        time.Time  `json:"dueDate" bson:"dueDate"`
	EstimatedHours float64    `json:"estimatedHours" bson:"estimatedHours"`
	Tags           []string   `json:"tags" bson:"tags"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updatedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// Overdue reports whether the task's due date has passed while the task is
// neither completed nor cancelled.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != StatusCompleted && t.Status != StatusCancelled
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// CreateTaskRequest is the request body for creating a task. Optional fields
// fall back to the documented defaults.
type CreateTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         string     `json:"status,omitempty"`
	Priority       string     `json:"priority,omitempty"`
	Category       string     `json:"category,omitempty"`
	AssignedTo     string     `json:"assignedTo,omitempty"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
}

// UpdateTaskRequest is an explicit partial update: nil means "leave the
// field alone". Tags follows the same convention with a nil slice.
type UpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	Category       *string    `json:"category"`
	AssignedTo     *string    `json:"assignedTo"`
	DueDate        *time.Time `json:"dueDate"`
	EstimatedHours *float64   `json:"estimatedHours"`
	Tags           []string   `json:"tags"`
}

// Validation messages returned by ValidateCreate.
const (
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgDueDateRequired     = "Due date is required"
	MsgDueDatePast         = "Due date cannot be in the past"
	MsgEstimatedNegative   = "Estimated hours cannot be negative"
)

// ValidateCreate checks a create payload against the business rules. Every
// check runs independently and all violations are reported. The request is
// not mutated. An empty slice means the payload is valid.
func ValidateCreate(req *CreateTaskRequest, now time.Time) []string {
	var errs []string

	if strings.TrimSpace(req.Title) == "" {
		errs = append(errs, MsgTitleRequired)
	}
	if strings.TrimSpace(req.Description) == "" {
		errs = append(errs, MsgDescriptionRequired)
	}
	if req.DueDate == nil {
		errs = append(errs, MsgDueDateRequired)
	} else if req.DueDate.Before(now) {
		errs = append(errs, MsgDueDatePast)
	}
	if req.EstimatedHours != nil && *req.EstimatedHours < 0 {
		errs = append(errs, MsgEstimatedNegative)
	}

	return errs
}
