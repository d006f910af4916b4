package models

import (
	"time"

	"github.com/google/uuid"
)

// Chart owns one or more dataset bindings and an auto-update interval. The
// assembler mutates it after each successful refresh (timestamp + computed
// payload).
type Chart struct {
	ID          uuid.UUID `json:"id"`
	DashboardID uuid.UUID `json:"dashboard_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // "line", "bar", "pie", "table", ...

	// AutoUpdate is the refresh interval in seconds; 0 disables interval
	// refresh for this chart.
	AutoUpdate     int        `json:"auto_update"`
	LastAutoUpdate *time.Time `json:"last_auto_update,omitempty"`

	// ChartData is the last computed payload from the plot collaborator.
	ChartData   map[string]any `json:"chart_data,omitempty"`
	ChartDataAt *time.Time     `json:"chart_data_at,omitempty"`

	Datasets []ChartDatasetBinding `json:"datasets,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTable reports whether the chart renders as a table. Table charts skip
// alert evaluation after refresh.
func (c *Chart) IsTable() bool {
	return c.Type == "table"
}

// ChartDatasetBinding attaches one dataset to a chart, in order. Variable
// overrides fill only keys the caller did not supply at fetch time.
type ChartDatasetBinding struct {
	ID                uuid.UUID         `json:"id"`
	ChartID           uuid.UUID         `json:"chart_id"`
	DatasetID         uuid.UUID         `json:"dataset_id"`
	Position          int               `json:"position"`
	VariableOverrides map[string]string `json:"variable_overrides,omitempty"`
}
