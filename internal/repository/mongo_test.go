package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/taskboard/taskboard/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildListQuery_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, buildListQuery(model.ListFilter{}))
}

func TestBuildListQuery_ExactMatches(t *testing.T) {
	query := buildListQuery(model.ListFilter{
		Status:   model.StatusPending,
		Priority: model.PriorityUrgent,
	})

	assert.Equal(t, bson.M{
		"status":   "pending",
		"priority": "urgent",
	}, query)
}

func TestBuildListQuery_CaseInsensitivePatterns(t *testing.T) {
	query := buildListQuery(model.ListFilter{
		Category:   "Eng",
		AssignedTo: "ali",
	})

	assert.Equal(t, primitive.Regex{Pattern: "Eng", Options: "i"}, query["category"])
	assert.Equal(t, primitive.Regex{Pattern: "ali", Options: "i"}, query["assignedTo"])
}

func TestBuildListQuery_DueDateRange(t *testing.T) {
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter model.ListFilter
		want   bson.M
	}{
		{
			name:   "both bounds",
			filter: model.ListFilter{DueAfter: &after, DueBefore: &before},
			want:   bson.M{"$gte": after, "$lte": before},
		},
		{
			name:   "only after",
			filter: model.ListFilter{DueAfter: &after},
			want:   bson.M{"$gte": after},
		},
		{
			name:   "only before",
			filter: model.ListFilter{DueBefore: &before},
			want:   bson.M{"$lte": before},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := buildListQuery(tt.filter)
			assert.Equal(t, tt.want, query["dueDate"])
		})
	}
}

func TestBuildListQuery_SearchMatchesTitleOrDescription(t *testing.T) {
	query := buildListQuery(model.ListFilter{Search: "report"})

	assert.Equal(t, bson.A{
		bson.M{"title": primitive.Regex{Pattern: "report", Options: "i"}},
		bson.M{"description": primitive.Regex{Pattern: "report", Options: "i"}},
	}, query["$or"])
}

func TestBuildListQuery_Conjunction(t *testing.T) {
	after := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	query := buildListQuery(model.ListFilter{
		Status:   model.StatusInProgress,
		Search:   "x",
		DueAfter: &after,
	})

	assert.Len(t, query, 3)
	assert.Contains(t, query, "status")
	assert.Contains(t, query, "dueDate")
	assert.Contains(t, query, "$or")
}

func TestBuildSort(t *testing.T) {
	tests := []struct {
		name   string
		sortBy string
		order  string
		want   bson.D
	}{
		{
			name:   "descending with id tie-break",
			sortBy: "createdAt",
			order:  "desc",
			want:   bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
		},
		{
			name:   "ascending",
			sortBy: "dueDate",
			order:  "asc",
			want:   bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}},
		},
		{
			name:   "empty field falls back to createdAt",
			sortBy: "",
			order:  "desc",
			want:   bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSort(tt.sortBy, tt.order))
		})
	}
}

func TestTaskValidator_EnumsMatchModel(t *testing.T) {
	schema := taskValidator()["$jsonSchema"].(bson.M)
	props := schema["properties"].(bson.M)

	assert.Equal(t, model.ValidStatuses, props["status"].(bson.M)["enum"])
	assert.Equal(t, model.ValidPriorities, props["priority"].(bson.M)["enum"])
	assert.ElementsMatch(t, []string{"title", "description", "dueDate"}, schema["required"])
}
