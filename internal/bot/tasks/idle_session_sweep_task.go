package tasks

import (
	"context"
	"fmt"
	"time"
)

// newIdleSessionSweepTask creates the scheduled task that resets the state of
// chats with no activity inside the retention window. Conversation logs stay;
// only the working state document is cleared.
func newIdleSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "idle_session_sweep")

	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-deps.Session.IdleRetention)
		log.InfoContext(ctx, "Starting idle session sweep", "cutoff", cutoff)

		swept, err := deps.Store.ResetIdleSessions(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Idle session sweep failed", "error", err)
			return fmt.Errorf("idle session sweep failed: %w", err)
		}

		log.InfoContext(ctx, "Idle session sweep completed", "sessions_reset", swept)
		return nil
	}
}
