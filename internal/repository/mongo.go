package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/taskboard/taskboard/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const taskCollection = "tasks"

// MongoTaskStore is the production TaskStore backed by a MongoDB collection.
// Ids are ObjectID hex strings; a non-hex id is reported as
// model.ErrMalformedID before any round trip.
type MongoTaskStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoTaskStore connects to MongoDB, verifies the connection, and
// ensures the collection's schema validator and indexes exist.
func NewMongoTaskStore(ctx context.Context, uri, database string) (*MongoTaskStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &MongoTaskStore{
		client: client,
		coll:   client.Database(database).Collection(taskCollection),
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure task schema: %w", err)
	}
	return s, nil
}

// taskValidator is the store-side constraint declaration, derived from the
// same enum lists the validation module uses.
func taskValidator() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": []string{"title", "description", "dueDate"},
			"properties": bson.M{
				"title":          bson.M{"bsonType": "string", "maxLength": 200},
				"description":    bson.M{"bsonType": "string", "maxLength": 1000},
				"status":         bson.M{"enum": model.ValidStatuses},
				"priority":       bson.M{"enum": model.ValidPriorities},
				"estimatedHours": bson.M{"bsonType": []string{"double", "int", "long"}, "minimum": 0},
			},
		},
	}
}

func (s *MongoTaskStore) ensureSchema(ctx context.Context) error {
	db := s.coll.Database()
	err := db.CreateCollection(ctx, taskCollection,
		options.CreateCollection().SetValidator(taskValidator()),
	)
	if err != nil {
		var cmdErr mongo.CommandError
		// 48 = NamespaceExists
		if !errors.As(err, &cmdErr) || cmdErr.Code != 48 {
			return err
		}
	}

	_, err = s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserts the task with a freshly generated ObjectID hex id.
func (s *MongoTaskStore) Create(ctx context.Context, task *model.Task) error {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	task.ID = primitive.NewObjectID().Hex()
	if _, err := s.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	span.SetAttributes(attribute.String("task.id", task.ID))
	return nil
}

// GetByID retrieves a task by its id.
func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, model.ErrMalformedID
	}

	var task model.Task
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &task, nil
}

// Replace overwrites the stored document as a whole.
func (s *MongoTaskStore) Replace(ctx context.Context, task *model.Task) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Replace",
		trace.WithAttributes(attribute.String("task.id", task.ID)),
	)
	defer span.End()

	var replaced model.Task
	err := s.coll.FindOneAndReplace(ctx, bson.M{"_id": task.ID}, task,
		options.FindOneAndReplace().SetReturnDocument(options.After),
	).Decode(&replaced)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to replace task: %w", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &replaced, nil
}

// Delete removes the task and returns its prior snapshot.
func (s *MongoTaskStore) Delete(ctx context.Context, id string) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, model.ErrMalformedID
	}

	var deleted model.Task
	err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&deleted)
	if errors.Is(err, mongo.ErrNoDocuments) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return &deleted, nil
}

// List runs the composed filter with sort/skip/limit options and counts the
// full matching set separately.
func (s *MongoTaskStore) List(ctx context.Context, filter model.ListFilter) (*model.TaskPage, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.List")
	defer span.End()

	query := buildListQuery(filter)
	opts := options.Find().
		SetSort(buildSort(filter.SortBy, filter.Order)).
		SetSkip(int64(filter.Skip())).
		SetLimit(int64(filter.Limit))

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return &model.TaskPage{
		Tasks:       tasks,
		TotalCount:  total,
		CurrentPage: filter.Page,
		TotalPages:  model.TotalPages(total, filter.Limit),
		Count:       len(tasks),
	}, nil
}

// Recent returns the limit most-recently-created tasks, newest first.
func (s *MongoTaskStore) Recent(ctx context.Context, limit int) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Recent")
	defer span.End()

	opts := options.Find().
		SetSort(buildSort(model.DefaultSortField, "desc")).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent tasks: %w", err)
	}
	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode recent tasks: %w", err)
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Stats computes per-status totals plus category and priority breakdowns via
// $group aggregations.
func (s *MongoTaskStore) Stats(ctx context.Context) (*model.SystemStats, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Stats")
	defer span.End()

	stats := &model.SystemStats{}
	counts := []struct {
		status string
		dest   *int64
	}{
		{"", &stats.TotalTasks},
		{model.StatusPending, &stats.PendingTasks},
		{model.StatusInProgress, &stats.InProgressTasks},
		{model.StatusCompleted, &stats.CompletedTasks},
		{model.StatusCancelled, &stats.CancelledTasks},
	}
	for _, c := range counts {
		query := bson.M{}
		if c.status != "" {
			query["status"] = c.status
		}
		n, err := s.coll.CountDocuments(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
		*c.dest = n
	}

	var err error
	if stats.CategoryBreakdown, err = s.groupBy(ctx, "category"); err != nil {
		return nil, err
	}
	if stats.PriorityBreakdown, err = s.groupBy(ctx, "priority"); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *MongoTaskStore) groupBy(ctx context.Context, field string) ([]model.GroupCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by %s: %w", field, err)
	}
	groups := []model.GroupCount{}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode %s breakdown: %w", field, err)
	}
	return groups, nil
}

// Analytics computes the per-day creation series, average completion time,
// overdue count, and total completed relative to now.
func (s *MongoTaskStore) Analytics(ctx context.Context, now time.Time) (*model.Analytics, error) {
	ctx, span := tracer.Start(ctx, "MongoTaskStore.Analytics")
	defer span.End()

	out := &model.Analytics{}

	cutoff := now.AddDate(0, 0, -30)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: cutoff}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tasks over time: %w", err)
	}
	if err := cursor.All(ctx, &out.TasksOverTime); err != nil {
		return nil, fmt.Errorf("failed to decode tasks over time: %w", err)
	}

	completedCursor, err := s.coll.Find(ctx, bson.M{
		"status":      model.StatusCompleted,
		"completedAt": bson.M{"$exists": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query completed tasks: %w", err)
	}
	var completed []*model.Task
	if err := completedCursor.All(ctx, &completed); err != nil {
		return nil, fmt.Errorf("failed to decode completed tasks: %w", err)
	}
	if len(completed) > 0 {
		var total time.Duration
		for _, task := range completed {
			total += task.CompletedAt.Sub(task.CreatedAt)
		}
		avgDays := total.Hours() / 24 / float64(len(completed))
		out.AvgCompletionTime = math.Round(avgDays*100) / 100
	}
	out.TotalCompleted = int64(len(completed))

	out.OverdueTasks, err = s.coll.CountDocuments(ctx, bson.M{
		"dueDate": bson.M{"$lt": now},
		"status":  bson.M{"$nin": []string{model.StatusCompleted, model.StatusCancelled}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	return out, nil
}

// Count returns the current number of tasks, for the tasks gauge. Gauge
// observation has no caller context, so a short background timeout is used;
// an unreachable store observes as zero.
func (s *MongoTaskStore) Count() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := s.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0
	}
	return n
}

// Ping reports whether the primary is reachable.
func (s *MongoTaskStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoTaskStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// buildListQuery composes the conjunctive bson filter for a list request.
// Absent parameters impose no constraint; search matches title OR
// description case-insensitively.
func buildListQuery(f model.ListFilter) bson.M {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Priority != "" {
		query["priority"] = f.Priority
	}
	if f.Category != "" {
		query["category"] = primitive.Regex{Pattern: f.Category, Options: "i"}
	}
	if f.AssignedTo != "" {
		query["assignedTo"] = primitive.Regex{Pattern: f.AssignedTo, Options: "i"}
	}
	if f.DueBefore != nil || f.DueAfter != nil {
		due := bson.M{}
		if f.DueBefore != nil {
			due["$lte"] = *f.DueBefore
		}
		if f.DueAfter != nil {
			due["$gte"] = *f.DueAfter
		}
		query["dueDate"] = due
	}
	if f.Search != "" {
		query["$or"] = bson.A{
			bson.M{"title": primitive.Regex{Pattern: f.Search, Options: "i"}},
			bson.M{"description": primitive.Regex{Pattern: f.Search, Options: "i"}},
		}
	}
	return query
}

// buildSort orders by the requested field with _id ascending as the
// tie-break, keeping pagination stable.
func buildSort(sortBy, order string) bson.D {
	dir := -1
	if order == "asc" {
		dir = 1
	}
	if sortBy == "" {
		sortBy = model.DefaultSortField
	}
	return bson.D{{Key: sortBy, Value: dir}, {Key: "_id", Value: 1}}
}
