package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of a scheduled task. The context
// provided by the scheduler must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns the map of scheduled tasks, keyed
// by the name the scheduler configuration refers to.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance":    newSQLMaintenanceTask(deps),
		"idle_session_sweep": newIdleSessionSweepTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
