package repository

import (
	"context"
	"time"

	"github.com/taskboard/taskboard/internal/model"
)

// TaskStore is the persistence boundary for task records. Every call is
// atomic with respect to the single document it touches; no multi-document
// transactions are used. Replace applies whole-document last-write-wins
// semantics for updates.
type TaskStore interface {
	// Create persists a new task under a freshly assigned id; any id already
	// set on task is discarded. CreatedAt/UpdatedAt are stamped by the
	// caller before the call.
	Create(ctx context.Context, task *model.Task) error

	// GetByID returns the task with the given id, model.ErrTaskNotFound when
	// absent, or model.ErrMalformedID when the id does not match the store's
	// id format.
	GetByID(ctx context.Context, id string) (*model.Task, error)

	// Replace overwrites the stored document with task (matched by task.ID)
	// and returns the stored result.
	Replace(ctx context.Context, task *model.Task) (*model.Task, error)

	// Delete removes the task and returns its prior snapshot.
	Delete(ctx context.Context, id string) (*model.Task, error)

	// List returns one page of tasks matching the filter plus counts over
	// the full matching set. The filter must be normalized.
	List(ctx context.Context, filter model.ListFilter) (*model.TaskPage, error)

	// Recent returns the limit most-recently-created tasks, newest first.
	Recent(ctx context.Context, limit int) ([]*model.Task, error)

	// Stats computes the per-status totals and grouped breakdowns.
	Stats(ctx context.Context) (*model.SystemStats, error)

	// Analytics computes the reporting metrics relative to now.
	Analytics(ctx context.Context, now time.Time) (*model.Analytics, error)

	// Count returns the current number of tasks, for the tasks gauge.
	Count() int64

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's connection resources.
	Close(ctx context.Context) error
}
