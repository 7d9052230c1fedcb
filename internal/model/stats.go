package model

// GroupCount is one bucket of a grouped count, keyed the way the dashboard
// consumes aggregation output.
type GroupCount struct {
	Key   string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// SystemStats summarizes the whole task collection: per-status totals plus
// category and priority breakdowns sorted by descending count.
type SystemStats struct {
	TotalTasks        int64        `json:"totalTasks"`
	InProgressTasks   int64        `json:"inProgressTasks"`
	CompletedTasks    int64        `json:"completedTasks"`
	PendingTasks      int64        `json:"pendingTasks"`
	CancelledTasks    int64        `json:"cancelledTasks"`
	CategoryBreakdown []GroupCount `json:"categoryBreakdown"`
	PriorityBreakdown []GroupCount `json:"priorityBreakdown"`
}

// Analytics carries the reporting metrics computed over the full record set.
// TasksOverTime is sparse: only days with at least one created task appear,
// keyed YYYY-MM-DD in ascending order. AvgCompletionTime is in days, rounded
// to two decimal places, 0 when nothing has completed.
type Analytics struct {
	TasksOverTime     []GroupCount `json:"tasksOverTime"`
	AvgCompletionTime float64      `json:"avgCompletionTime"`
	OverdueTasks      int64        `json:"overdueTasks"`
	TotalCompleted    int64        `json:"totalCompleted"`
}
