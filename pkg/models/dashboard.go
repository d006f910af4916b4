package models

import (
	"time"

	"github.com/google/uuid"
)

// Dashboard groups charts for a team and optionally carries a scheduled
// refresh cadence that refreshes every chart on it.
type Dashboard struct {
	ID               uuid.UUID  `json:"id"`
	TeamID           uuid.UUID  `json:"team_id"`
	Name             string     `json:"name"`
	Schedule         *Schedule  `json:"schedule,omitempty"`
	LastSchedulerRun *time.Time `json:"last_scheduler_run,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
