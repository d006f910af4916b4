package models

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is a named, user-facing grouping of data requests. A dataset
// belongs to exactly one team; axis and formatting configuration downstream
// of the fetched rows lives with the chart renderer, not here.
type Dataset struct {
	ID          uuid.UUID `json:"id"`
	TeamID      uuid.UUID `json:"team_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
