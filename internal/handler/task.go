package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskboard/taskboard/internal/model"
	"github.com/taskboard/taskboard/internal/service"
	"github.com/taskboard/taskboard/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/taskboard/taskboard/internal/handler")

// endpoints is the capability list advertised by the health endpoint.
var endpoints = []string{
	"GET /api/health",
	"GET /api/status",
	"GET /api/tasks",
	"POST /api/tasks",
	"PUT /api/tasks/:id",
	"DELETE /api/tasks/:id",
	"GET /api/tasks/:id",
	"GET /api/tasks/recent",
	"GET /api/analytics",
}

// TaskHandler handles HTTP requests for tasks. Every response uses the
// {success: bool, ...} envelope the dashboard expects.
type TaskHandler struct {
	svc      *service.TaskService
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	requests *RequestCounter
	devMode  bool
}

// NewTaskHandler creates a new TaskHandler. When devMode is set, 500
// responses include the underlying error detail.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics, requests *RequestCounter, devMode bool) *TaskHandler {
	return &TaskHandler{
		svc:      svc,
		logger:   logger,
		metrics:  metrics,
		requests: requests,
		devMode:  devMode,
	}
}

// Routes returns the chi router with the full API surface.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
	r.Get("/analytics", h.Analytics)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/recent", h.Recent)
		r.Get("/{id}", h.GetByID)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "API endpoint not found",
		})
	})

	return r
}

// List returns a page of tasks matching the query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	filter := parseListFilter(r)
	h.logger.InfoContext(ctx, "listing tasks",
		slog.String("status", filter.Status),
		slog.String("priority", filter.Priority),
		slog.String("search", filter.Search),
	)

	page, err := h.svc.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tasks", slog.Any("error", err))
		h.respondServerError(w, "Failed to retrieve tasks", err)
		h.recordMetrics(ctx, "GET", "/api/tasks", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", page.Count))
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"count":       page.Count,
		"totalCount":  page.TotalCount,
		"currentPage": page.CurrentPage,
		"totalPages":  page.TotalPages,
		"data":        page.Tasks,
	})
	h.recordMetrics(ctx, "GET", "/api/tasks", http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	var req model.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		h.recordMetrics(ctx, "POST", "/api/tasks", http.StatusBadRequest, start)
		return
	}

	task, validationErrs, err := h.svc.Create(ctx, &req)
	if len(validationErrs) > 0 {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("errors", validationErrs))
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Validation error",
			"errors":  validationErrs,
		})
		h.recordMetrics(ctx, "POST", "/api/tasks", http.StatusBadRequest, start)
		return
	}
	if err != nil {
		var schemaErr model.SchemaError
		if errors.As(err, &schemaErr) {
			h.logger.WarnContext(ctx, "schema violation", slog.Any("error", err))
			h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Validation error",
				"error":   schemaErr.Error(),
			})
			h.recordMetrics(ctx, "POST", "/api/tasks", http.StatusBadRequest, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create task", slog.Any("error", err))
		h.respondServerError(w, "Failed to create task", err)
		h.recordMetrics(ctx, "POST", "/api/tasks", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.String("id", task.ID))
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Task created successfully",
		"data":    task,
	})
	h.recordMetrics(ctx, "POST", "/api/tasks", http.StatusCreated, start)
}

// GetByID returns a task by id.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			h.logger.WarnContext(ctx, "task not found", slog.String("id", id))
			h.respondNotFound(w)
			h.recordMetrics(ctx, "GET", "/api/tasks/{id}", http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get task", slog.Any("error", err))
		h.respondServerError(w, "Failed to retrieve task", err)
		h.recordMetrics(ctx, "GET", "/api/tasks/{id}", http.StatusInternalServerError, start)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    task,
	})
	h.recordMetrics(ctx, "GET", "/api/tasks/{id}", http.StatusOK, start)
}

// Update applies a partial update to an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Invalid request body",
		})
		h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Update(ctx, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTaskNotFound):
			h.logger.WarnContext(ctx, "task not found", slog.String("id", id))
			h.respondNotFound(w)
			h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusNotFound, start)
		case errors.Is(err, model.ErrPastDueDate):
			h.logger.WarnContext(ctx, "due date in the past", slog.String("id", id))
			h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Due date cannot be in the past for non-completed tasks",
			})
			h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusBadRequest, start)
		default:
			var schemaErr model.SchemaError
			if errors.As(err, &schemaErr) {
				h.logger.WarnContext(ctx, "schema violation", slog.Any("error", err))
				h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
					"success": false,
					"message": "Validation error",
					"error":   schemaErr.Error(),
				})
				h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusBadRequest, start)
				return
			}
			h.logger.ErrorContext(ctx, "failed to update task", slog.Any("error", err))
			h.respondServerError(w, "Failed to update task", err)
			h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusInternalServerError, start)
		}
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.String("id", id))
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task updated successfully",
		"data":    task,
	})
	h.recordMetrics(ctx, "PUT", "/api/tasks/{id}", http.StatusOK, start)
}

// Delete removes a task and returns its prior snapshot.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			h.logger.WarnContext(ctx, "task not found", slog.String("id", id))
			h.respondNotFound(w)
			h.recordMetrics(ctx, "DELETE", "/api/tasks/{id}", http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete task", slog.Any("error", err))
		h.respondServerError(w, "Failed to delete task", err)
		h.recordMetrics(ctx, "DELETE", "/api/tasks/{id}", http.StatusInternalServerError, start)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Task deleted successfully",
		"data":    task,
	})
	h.recordMetrics(ctx, "DELETE", "/api/tasks/{id}", http.StatusOK, start)
}

// Recent returns the most-recently-created tasks for the dashboard.
func (h *TaskHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Recent")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tasks, err := h.svc.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent tasks", slog.Any("error", err))
		h.respondServerError(w, "Failed to retrieve recent tasks", err)
		h.recordMetrics(ctx, "GET", "/api/tasks/recent", http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    tasks,
	})
	h.recordMetrics(ctx, "GET", "/api/tasks/recent", http.StatusOK, start)
}

// Status reports server and database state together with the system stats.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Status")
	defer span.End()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get system status", slog.Any("error", err))
		h.respondServerError(w, "Failed to get system status", err)
		h.recordMetrics(ctx, "GET", "/api/status", http.StatusInternalServerError, start)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"server":       "online",
			"database":     h.databaseStatus(ctx),
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"requestCount": h.requests.Total(),
			"stats":        stats,
		},
	})
	h.recordMetrics(ctx, "GET", "/api/status", http.StatusOK, start)
}

// Analytics returns the reporting metrics.
func (h *TaskHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Analytics")
	defer span.End()

	analytics, err := h.svc.Analytics(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to compute analytics", slog.Any("error", err))
		h.respondServerError(w, "Failed to retrieve analytics", err)
		h.recordMetrics(ctx, "GET", "/api/analytics", http.StatusInternalServerError, start)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    analytics,
	})
	h.recordMetrics(ctx, "GET", "/api/analytics", http.StatusOK, start)
}

// Health returns the liveness and capability descriptor.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Task management API is running",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"status":       "online",
		"database":     h.databaseStatus(r.Context()),
		"requestCount": h.requests.Total(),
		"endpoints":    endpoints,
	})
}

func (h *TaskHandler) databaseStatus(ctx context.Context) string {
	if err := h.svc.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TaskHandler) respondNotFound(w http.ResponseWriter) {
	h.respondJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"message": "Task not found",
	})
}

func (h *TaskHandler) respondServerError(w http.ResponseWriter, message string, err error) {
	payload := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if h.devMode && err != nil {
		payload["error"] = err.Error()
	}
	h.respondJSON(w, http.StatusInternalServerError, payload)
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}

// parseListFilter reads the list query parameters. Unparseable numbers fall
// back to the defaults; dates accept RFC3339 or plain YYYY-MM-DD.
func parseListFilter(r *http.Request) model.ListFilter {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))

	return model.ListFilter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		Category:   q.Get("category"),
		AssignedTo: q.Get("assignedTo"),
		Search:     q.Get("search"),
		DueBefore:  parseDate(q.Get("dueBefore")),
		DueAfter:   parseDate(q.Get("dueAfter")),
		SortBy:     q.Get("sortBy"),
		Order:      q.Get("order"),
		Limit:      limit,
		Page:       page,
	}
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
