package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/taskboard/taskboard/internal/service")

// TaskService composes validation, the query/update rules, and the store.
// It owns timestamp stamping and the partial-update merge; the store only
// persists whole documents.
type TaskService struct {
	store  repository.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a TaskService on top of a store.
func NewTaskService(store repository.TaskStore, logger *slog.Logger) *TaskService {
	return &TaskService{
		store:  store,
		logger: logger,
	}
}

// Create validates the payload, applies defaults, stamps timestamps, and
// persists the task. Validation failures come back as the second return
// value and nothing is persisted.
func (s *TaskService) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, []string, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Create")
	defer span.End()

	now := time.Now().UTC()

	if errs := model.ValidateCreate(req, now); len(errs) > 0 {
		span.SetAttributes(attribute.Int("validation.errors", len(errs)))
		return nil, errs, nil
	}

	task := &model.Task{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Status:         model.StatusPending,
		Priority:       model.PriorityMedium,
		Category:       model.DefaultCategory,
		AssignedTo:     model.DefaultAssignee,
		DueDate:        *req.DueDate,
		EstimatedHours: model.DefaultEstimatedHours,
		Tags:           []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Status != "" {
		if !model.IsValidStatus(req.Status) {
			return nil, nil, model.SchemaError{Field: "status", Value: req.Status}
		}
		task.Status = req.Status
	}
	if req.Priority != "" {
		if !model.IsValidPriority(req.Priority) {
			return nil, nil, model.SchemaError{Field: "priority", Value: req.Priority}
		}
		task.Priority = req.Priority
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		task.Category = c
	}
	if a := strings.TrimSpace(req.AssignedTo); a != "" {
		task.AssignedTo = a
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.Tags != nil {
		task.Tags = trimTags(req.Tags)
	}
	if task.Status == model.StatusCompleted {
		at := now
		task.CompletedAt = &at
	}

	if err := s.store.Create(ctx, task); err != nil {
		return nil, nil, err
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	s.logger.InfoContext(ctx, "task created", slog.String("id", task.ID), slog.String("title", task.Title))
	return task, nil, nil
}

// GetByID returns a single task.
func (s *TaskService) GetByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	return s.store.GetByID(ctx, id)
}

// Update merges the provided fields into the stored task and replaces the
// document as a whole (last-write-wins). UpdatedAt is refreshed;
// CompletedAt is stamped the first time the status reaches "completed" and
// left alone on every later save. A due date in the past is rejected unless
// the resulting status is "completed".
func (s *TaskService) Update(ctx context.Context, id string, req *model.UpdateTaskRequest) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	resulting := task.Status
	if req.Status != nil {
		if !model.IsValidStatus(*req.Status) {
			return nil, model.SchemaError{Field: "status", Value: *req.Status}
		}
		resulting = *req.Status
	}
	if req.DueDate != nil && req.DueDate.Before(now) && resulting != model.StatusCompleted {
		return nil, model.ErrPastDueDate
	}

	// Title and description are required non-empty; a blank value leaves the
	// field unchanged rather than blanking it.
	if req.Title != nil {
		if v := strings.TrimSpace(*req.Title); v != "" {
			task.Title = v
		}
	}
	if req.Description != nil {
		if v := strings.TrimSpace(*req.Description); v != "" {
			task.Description = v
		}
	}
	if req.Status != nil {
		task.Status = resulting
		if resulting == model.StatusCompleted && task.CompletedAt == nil {
			at := now
			task.CompletedAt = &at
		}
	}
	if req.Priority != nil {
		if !model.IsValidPriority(*req.Priority) {
			return nil, model.SchemaError{Field: "priority", Value: *req.Priority}
		}
		task.Priority = *req.Priority
	}
	if req.Category != nil {
		if v := strings.TrimSpace(*req.Category); v != "" {
			task.Category = v
		}
	}
	if req.AssignedTo != nil {
		if v := strings.TrimSpace(*req.AssignedTo); v != "" {
			task.AssignedTo = v
		}
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours < 0 {
			return nil, model.SchemaError{Field: "estimatedHours", Value: "negative"}
		}
		task.EstimatedHours = *req.EstimatedHours
	}
	if req.Tags != nil {
		task.Tags = trimTags(req.Tags)
	}
	task.UpdatedAt = now

	updated, err := s.store.Replace(ctx, task)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "task updated", slog.String("id", id))
	return updated, nil
}

// Delete removes the task and returns its prior snapshot.
func (s *TaskService) Delete(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "task deleted", slog.String("id", id))
	return task, nil
}

// List returns one page of tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter model.ListFilter) (*model.TaskPage, error) {
	ctx, span := tracer.Start(ctx, "TaskService.List")
	defer span.End()

	filter.Normalize()
	page, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("task.count", page.Count))
	return page, nil
}

// Recent returns the most-recently-created tasks, newest first. A
// non-positive limit falls back to the default of 5.
func (s *TaskService) Recent(ctx context.Context, limit int) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Recent")
	defer span.End()

	if limit <= 0 {
		limit = model.DefaultRecent
	}
	return s.store.Recent(ctx, limit)
}

// Stats computes the system stats, fresh on every call.
func (s *TaskService) Stats(ctx context.Context) (*model.SystemStats, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Stats")
	defer span.End()

	return s.store.Stats(ctx)
}

// Analytics computes the reporting metrics, fresh on every call.
func (s *TaskService) Analytics(ctx context.Context) (*model.Analytics, error) {
	ctx, span := tracer.Start(ctx, "TaskService.Analytics")
	defer span.End()

	return s.store.Analytics(ctx, time.Now().UTC())
}

// Ping reports store reachability for the health and status endpoints.
func (s *TaskService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// TaskCount feeds the tasks gauge.
func (s *TaskService) TaskCount() int64 {
	return s.store.Count()
}

func trimTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = strings.TrimSpace(tag)
	}
	return out
}
