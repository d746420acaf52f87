// Package tasks implements the scheduled background tasks of the bot:
// database maintenance and the idle session sweep.
package tasks

import (
	"log/slog"

	"github.com/clarahexa/clarabot/internal/config"
	"github.com/clarahexa/clarabot/internal/database"
)

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Session config.SessionConfig
}
