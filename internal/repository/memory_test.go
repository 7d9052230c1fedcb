package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskboard/taskboard/internal/model"
)

func seed(t *testing.T, s *MemoryTaskStore, tasks ...*model.Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, s.Create(context.Background(), task))
	}
}

func task(mutate func(*model.Task)) *model.Task {
	base := &model.Task{
		Title:          "task",
		Description:    "description",
		Status:         model.StatusPending,
		Priority:       model.PriorityMedium,
		Category:       "general",
		AssignedTo:     "unassigned",
		DueDate:        time.Now().UTC().Add(72 * time.Hour),
		EstimatedHours: 1,
		Tags:           []string{},
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if mutate != nil {
		mutate(base)
	}
	return base
}

func TestMemoryStore_CreateAssignsID(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(nil)
	require.NoError(t, s.Create(context.Background(), created))

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), s.Count())
}

func TestMemoryStore_CreateDiscardsPresetID(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(func(x *model.Task) { x.ID = "caller-chosen" })
	require.NoError(t, s.Create(context.Background(), created))

	assert.NotEqual(t, "caller-chosen", created.ID)

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(func(x *model.Task) {
		x.Title = "Ship release"
		x.Tags = []string{"release", "ops"}
	})
	seed(t, s, created)

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestMemoryStore_GetByID_Errors(t *testing.T) {
	s := NewMemoryTaskStore()

	_, err := s.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrMalformedID)

	_, err = s.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestMemoryStore_Replace(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(nil)
	seed(t, s, created)

	created.Title = "renamed"
	updated, err := s.Replace(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestMemoryStore_Replace_NotFound(t *testing.T) {
	s := NewMemoryTaskStore()
	ghost := task(func(x *model.Task) { x.ID = "11111111-1111-1111-1111-111111111111" })

	_, err := s.Replace(context.Background(), ghost)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestMemoryStore_Delete_ReturnsSnapshot(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(func(x *model.Task) { x.Title = "doomed" })
	seed(t, s, created)

	snapshot, err := s.Delete(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "doomed", snapshot.Title)

	_, err = s.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)

	_, err = s.Delete(context.Background(), created.ID)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func normalized(f model.ListFilter) model.ListFilter {
	f.Normalize()
	return f
}

func TestMemoryStore_List_FilterConjunction(t *testing.T) {
	s := NewMemoryTaskStore()
	match := task(func(x *model.Task) {
		x.Status = model.StatusPending
		x.Priority = model.PriorityHigh
		x.Category = "Engineering"
		x.AssignedTo = "Alice"
	})
	wrongStatus := task(func(x *model.Task) {
		x.Status = model.StatusCompleted
		x.Priority = model.PriorityHigh
		x.Category = "Engineering"
		x.AssignedTo = "Alice"
	})
	wrongPriority := task(func(x *model.Task) {
		x.Status = model.StatusPending
		x.Priority = model.PriorityLow
		x.Category = "Engineering"
		x.AssignedTo = "Alice"
	})
	wrongCategory := task(func(x *model.Task) {
		x.Status = model.StatusPending
		x.Priority = model.PriorityHigh
		x.Category = "marketing"
		x.AssignedTo = "Alice"
	})
	seed(t, s, match, wrongStatus, wrongPriority, wrongCategory)

	page, err := s.List(context.Background(), normalized(model.ListFilter{
		Status:     model.StatusPending,
		Priority:   model.PriorityHigh,
		Category:   "engineer",
		AssignedTo: "alice",
	}))
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, match.ID, page.Tasks[0].ID)
	assert.Equal(t, int64(1), page.TotalCount)
}

func TestMemoryStore_List_SearchTitleOrDescription(t *testing.T) {
	s := NewMemoryTaskStore()
	inTitle := task(func(x *model.Task) { x.Title = "Deploy ROCKET service" })
	inDescription := task(func(x *model.Task) { x.Description = "prepare rocket launch" })
	neither := task(nil)
	seed(t, s, inTitle, inDescription, neither)

	page, err := s.List(context.Background(), normalized(model.ListFilter{Search: "rocket"}))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
}

func TestMemoryStore_List_DueDateRangeInclusive(t *testing.T) {
	s := NewMemoryTaskStore()
	day := func(d int) time.Time {
		return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC)
	}
	early := task(func(x *model.Task) { x.DueDate = day(1) })
	lower := task(func(x *model.Task) { x.DueDate = day(10) })
	upper := task(func(x *model.Task) { x.DueDate = day(20) })
	late := task(func(x *model.Task) { x.DueDate = day(28) })
	seed(t, s, early, lower, upper, late)

	after := day(10)
	before := day(20)
	page, err := s.List(context.Background(), normalized(model.ListFilter{
		DueAfter:  &after,
		DueBefore: &before,
	}))
	require.NoError(t, err)
	require.Equal(t, 2, page.Count)
	ids := []string{page.Tasks[0].ID, page.Tasks[1].ID}
	assert.Contains(t, ids, lower.ID)
	assert.Contains(t, ids, upper.ID)
}

func TestMemoryStore_List_SortAndTieBreak(t *testing.T) {
	s := NewMemoryTaskStore()
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	first := task(func(x *model.Task) { x.CreatedAt = at.Add(1 * time.Hour) })
	second := task(func(x *model.Task) { x.CreatedAt = at.Add(2 * time.Hour) })
	tiedA := task(func(x *model.Task) { x.CreatedAt = at })
	tiedB := task(func(x *model.Task) { x.CreatedAt = at })
	seed(t, s, first, second, tiedA, tiedB)

	asc, err := s.List(context.Background(), normalized(model.ListFilter{SortBy: "createdAt", Order: "asc"}))
	require.NoError(t, err)
	require.Equal(t, 4, asc.Count)
	// Tied pair first, ordered by id ascending.
	wantTied := []string{tiedA.ID, tiedB.ID}
	if wantTied[0] > wantTied[1] {
		wantTied[0], wantTied[1] = wantTied[1], wantTied[0]
	}
	assert.Equal(t, wantTied[0], asc.Tasks[0].ID)
	assert.Equal(t, wantTied[1], asc.Tasks[1].ID)
	assert.Equal(t, first.ID, asc.Tasks[2].ID)
	assert.Equal(t, second.ID, asc.Tasks[3].ID)

	desc, err := s.List(context.Background(), normalized(model.ListFilter{SortBy: "createdAt", Order: "desc"}))
	require.NoError(t, err)
	assert.Equal(t, second.ID, desc.Tasks[0].ID)
	assert.Equal(t, first.ID, desc.Tasks[1].ID)
	// Tie-break stays id ascending regardless of direction.
	assert.Equal(t, wantTied[0], desc.Tasks[2].ID)
	assert.Equal(t, wantTied[1], desc.Tasks[3].ID)
}

func TestMemoryStore_List_PaginationConsistency(t *testing.T) {
	s := NewMemoryTaskStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	const total = 23
	const limit = 5
	for i := 0; i < total; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		seed(t, s, task(func(x *model.Task) { x.CreatedAt = created }))
	}

	seen := make(map[string]bool)
	pages := 0
	for p := 1; ; p++ {
		page, err := s.List(context.Background(), normalized(model.ListFilter{Limit: limit, Page: p}))
		require.NoError(t, err)
		assert.Equal(t, int64(total), page.TotalCount)
		assert.Equal(t, model.TotalPages(total, limit), page.TotalPages)
		if page.Count == 0 {
			break
		}
		pages++
		for _, got := range page.Tasks {
			assert.False(t, seen[got.ID], "task %s appeared twice", got.ID)
			seen[got.ID] = true
		}
	}

	assert.Len(t, seen, total)
	assert.Equal(t, model.TotalPages(total, limit), pages)
}

func TestMemoryStore_List_PageBeyondEnd(t *testing.T) {
	s := NewMemoryTaskStore()
	seed(t, s, task(nil), task(nil))

	page, err := s.List(context.Background(), normalized(model.ListFilter{Limit: 10, Page: 99}))
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
	assert.Empty(t, page.Tasks)
	assert.Equal(t, int64(2), page.TotalCount)
	assert.Equal(t, 99, page.CurrentPage)
}

func TestMemoryStore_Recent_NewestFirst(t *testing.T) {
	s := NewMemoryTaskStore()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 7; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		x := task(func(x *model.Task) { x.CreatedAt = created })
		seed(t, s, x)
		ids = append(ids, x.ID)
	}

	recent, err := s.Recent(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, ids[6], recent[0].ID)
	assert.Equal(t, ids[5], recent[1].ID)
	assert.Equal(t, ids[4], recent[2].ID)
}

func TestMemoryStore_Stats(t *testing.T) {
	s := NewMemoryTaskStore()
	seed(t, s,
		task(func(x *model.Task) {
			x.Status = model.StatusPending
			x.Category = "ops"
			x.Priority = model.PriorityHigh
		}),
		task(func(x *model.Task) {
			x.Status = model.StatusPending
			x.Category = "ops"
			x.Priority = model.PriorityHigh
		}),
		task(func(x *model.Task) {
			x.Status = model.StatusInProgress
			x.Category = "ops"
			x.Priority = model.PriorityLow
		}),
		task(func(x *model.Task) {
			x.Status = model.StatusCompleted
			x.Category = "dev"
			x.Priority = model.PriorityHigh
		}),
		task(func(x *model.Task) {
			x.Status = model.StatusCancelled
			x.Category = "dev"
			x.Priority = model.PriorityUrgent
		}),
	)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalTasks)
	assert.Equal(t, int64(2), stats.PendingTasks)
	assert.Equal(t, int64(1), stats.InProgressTasks)
	assert.Equal(t, int64(1), stats.CompletedTasks)
	assert.Equal(t, int64(1), stats.CancelledTasks)

	assert.Equal(t, []model.GroupCount{
		{Key: "ops", Count: 3},
		{Key: "dev", Count: 2},
	}, stats.CategoryBreakdown)
	assert.Equal(t, []model.GroupCount{
		{Key: "high", Count: 3},
		{Key: "low", Count: 1},
		{Key: "urgent", Count: 1},
	}, stats.PriorityBreakdown)
}

func TestMemoryStore_Analytics(t *testing.T) {
	s := NewMemoryTaskStore()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	completedAt := func(created time.Time, days int) *time.Time {
		at := created.AddDate(0, 0, days)
		return &at
	}

	dayOne := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	seed(t, s,
		// Completed 2 days after creation.
		task(func(x *model.Task) {
			x.Status = model.StatusCompleted
			x.CreatedAt = dayOne
			x.CompletedAt = completedAt(dayOne, 2)
		}),
		// Completed 4 days after creation, same creation day as above.
		task(func(x *model.Task) {
			x.Status = model.StatusCompleted
			x.CreatedAt = dayOne.Add(time.Hour)
			x.CompletedAt = completedAt(dayOne.Add(time.Hour), 4)
		}),
		// Overdue: due in the past, still pending.
		task(func(x *model.Task) {
			x.CreatedAt = dayTwo
			x.DueDate = now.Add(-time.Hour)
		}),
		// Past due but cancelled, so not overdue.
		task(func(x *model.Task) {
			x.Status = model.StatusCancelled
			x.CreatedAt = dayTwo
			x.DueDate = now.Add(-time.Hour)
		}),
		// Created outside the 30-day window, due in the future.
		task(func(x *model.Task) {
			x.CreatedAt = now.AddDate(0, 0, -45)
			x.DueDate = now.Add(time.Hour)
		}),
	)

	analytics, err := s.Analytics(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, []model.GroupCount{
		{Key: "2026-08-20", Count: 2},
		{Key: "2026-08-25", Count: 2},
	}, analytics.TasksOverTime)
	assert.Equal(t, 3.0, analytics.AvgCompletionTime)
	assert.Equal(t, int64(1), analytics.OverdueTasks)
	assert.Equal(t, int64(2), analytics.TotalCompleted)
}

func TestMemoryStore_Analytics_NoCompletedTasks(t *testing.T) {
	s := NewMemoryTaskStore()
	seed(t, s, task(nil))

	analytics, err := s.Analytics(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0.0, analytics.AvgCompletionTime)
	assert.Equal(t, int64(0), analytics.TotalCompleted)
}

func TestMemoryStore_ListDoesNotAliasInternalState(t *testing.T) {
	s := NewMemoryTaskStore()
	created := task(func(x *model.Task) { x.Title = "original" })
	seed(t, s, created)

	page, err := s.List(context.Background(), normalized(model.ListFilter{}))
	require.NoError(t, err)
	page.Tasks[0].Title = "mutated"

	got, err := s.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
}
