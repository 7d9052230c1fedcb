package repository

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskboard/taskboard/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/taskboard/taskboard/internal/repository")

// MemoryTaskStore is an in-memory TaskStore. It backs local development when
// no Mongo URI is configured and serves as the fixture store in tests. Ids
// are uuid strings.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

// NewMemoryTaskStore creates an empty MemoryTaskStore.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*model.Task),
	}
}

// Create adds a new task under a freshly assigned uuid id.
func (s *MemoryTaskStore) Create(ctx context.Context, task *model.Task) error {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = uuid.NewString()
	s.tasks[task.ID] = task.Clone()

	span.SetAttributes(attribute.String("task.id", task.ID))
	return nil
}

// GetByID retrieves a task by its id.
func (s *MemoryTaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrMalformedID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// Replace overwrites the stored task as a whole document.
func (s *MemoryTaskStore) Replace(ctx context.Context, task *model.Task) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Replace",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	s.tasks[task.ID] = task.Clone()
	span.SetAttributes(attribute.Bool("task.found", true))
	return task.Clone(), nil
}

// Delete removes a task and returns its prior snapshot.
func (s *MemoryTaskStore) Delete(ctx context.Context, id string) (*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrMalformedID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}

	delete(s.tasks, id)
	span.SetAttributes(attribute.Bool("task.found", true))
	return task, nil
}

// List returns one page of matching tasks plus counts over the full match.
func (s *MemoryTaskStore) List(ctx context.Context, filter model.ListFilter) (*model.TaskPage, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.List")
	defer span.End()

	s.mu.RLock()
	matched := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if matchesFilter(task, filter) {
			matched = append(matched, task)
		}
	}
	s.mu.RUnlock()

	sortTasks(matched, filter.SortBy, filter.Order)

	total := int64(len(matched))
	page := pageOf(matched, filter.Skip(), filter.Limit)
	out := make([]*model.Task, len(page))
	for i, task := range page {
		out[i] = task.Clone()
	}

	span.SetAttributes(attribute.Int("task.count", len(out)))
	return &model.TaskPage{
		Tasks:       out,
		TotalCount:  total,
		CurrentPage: filter.Page,
		TotalPages:  model.TotalPages(total, filter.Limit),
		Count:       len(out),
	}, nil
}

// Recent returns the limit most-recently-created tasks, newest first.
func (s *MemoryTaskStore) Recent(ctx context.Context, limit int) ([]*model.Task, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Recent")
	defer span.End()

	s.mu.RLock()
	all := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		all = append(all, task)
	}
	s.mu.RUnlock()

	sortTasks(all, model.DefaultSortField, "desc")

	if limit > len(all) {
		limit = len(all)
	}
	out := make([]*model.Task, limit)
	for i := 0; i < limit; i++ {
		out[i] = all[i].Clone()
	}

	span.SetAttributes(attribute.Int("task.count", len(out)))
	return out, nil
}

// Stats computes per-status totals and the category/priority breakdowns.
func (s *MemoryTaskStore) Stats(ctx context.Context) (*model.SystemStats, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Stats")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &model.SystemStats{TotalTasks: int64(len(s.tasks))}
	categories := make(map[string]int64)
	priorities := make(map[string]int64)

	for _, task := range s.tasks {
		switch task.Status {
		case model.StatusPending:
			stats.PendingTasks++
		case model.StatusInProgress:
			stats.InProgressTasks++
		case model.StatusCompleted:
			stats.CompletedTasks++
		case model.StatusCancelled:
			stats.CancelledTasks++
		}
		categories[task.Category]++
		priorities[task.Priority]++
	}

	stats.CategoryBreakdown = groupCounts(categories)
	stats.PriorityBreakdown = groupCounts(priorities)
	return stats, nil
}

// Analytics computes the reporting metrics relative to now.
func (s *MemoryTaskStore) Analytics(ctx context.Context, now time.Time) (*model.Analytics, error) {
	_, span := tracer.Start(ctx, "MemoryTaskStore.Analytics")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := now.AddDate(0, 0, -30)
	perDay := make(map[string]int64)
	var completed int64
	var totalCompletion time.Duration
	out := &model.Analytics{}

	for _, task := range s.tasks {
		if !task.CreatedAt.Before(cutoff) {
			perDay[task.CreatedAt.UTC().Format("2006-01-02")]++
		}
		if task.Status == model.StatusCompleted && task.CompletedAt != nil {
			completed++
			totalCompletion += task.CompletedAt.Sub(task.CreatedAt)
		}
		if task.Overdue(now) {
			out.OverdueTasks++
		}
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		out.TasksOverTime = append(out.TasksOverTime, model.GroupCount{Key: day, Count: perDay[day]})
	}

	if completed > 0 {
		avgDays := totalCompletion.Hours() / 24 / float64(completed)
		out.AvgCompletionTime = math.Round(avgDays*100) / 100
	}
	out.TotalCompleted = completed

	return out, nil
}

// Count returns the current number of tasks.
func (s *MemoryTaskStore) Count() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks))
}

// Ping always succeeds for the in-memory store.
func (s *MemoryTaskStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryTaskStore) Close(ctx context.Context) error {
	return nil
}

func matchesFilter(t *model.Task, f model.ListFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && !containsFold(t.Category, f.Category) {
		return false
	}
	if f.AssignedTo != "" && !containsFold(t.AssignedTo, f.AssignedTo) {
		return false
	}
	if f.DueAfter != nil && t.DueDate.Before(*f.DueAfter) {
		return false
	}
	if f.DueBefore != nil && t.DueDate.After(*f.DueBefore) {
		return false
	}
	if f.Search != "" && !containsFold(t.Title, f.Search) && !containsFold(t.Description, f.Search) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// sortTasks orders tasks by the requested field and direction with id
// ascending as the tie-break, so pagination stays stable.
func sortTasks(tasks []*model.Task, sortBy, order string) {
	sort.SliceStable(tasks, func(i, j int) bool {
		c := compareField(tasks[i], tasks[j], sortBy)
		if order == "desc" {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func compareField(a, b *model.Task, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "status":
		return strings.Compare(a.Status, b.Status)
	case "priority":
		return strings.Compare(a.Priority, b.Priority)
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "assignedTo":
		return strings.Compare(a.AssignedTo, b.AssignedTo)
	case "dueDate":
		return compareTime(a.DueDate, b.DueDate)
	case "updatedAt":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case "completedAt":
		return compareTime(timeOrZero(a.CompletedAt), timeOrZero(b.CompletedAt))
	case "estimatedHours":
		switch {
		case a.EstimatedHours < b.EstimatedHours:
			return -1
		case a.EstimatedHours > b.EstimatedHours:
			return 1
		}
		return 0
	case "_id", "id":
		return strings.Compare(a.ID, b.ID)
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func pageOf(tasks []*model.Task, skip, limit int) []*model.Task {
	if skip >= len(tasks) {
		return nil
	}
	end := skip + limit
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[skip:end]
}

func groupCounts(counts map[string]int64) []model.GroupCount {
	out := make([]model.GroupCount, 0, len(counts))
	for key, count := range counts {
		out = append(out, model.GroupCount{Key: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
