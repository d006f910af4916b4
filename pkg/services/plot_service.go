package services

import (
	"time"

	"github.com/chartops/chart-engine/pkg/assembler"
	"github.com/chartops/chart-engine/pkg/models"
)

// ChartPlotter is the default plot collaborator: it shapes the merged binding
// results into the chart's stored payload. Visual series computation proper
// happens client-side; the payload just carries the per-dataset rows in
// binding order.
type ChartPlotter struct{}

// NewChartPlotter creates the default plotter.
func NewChartPlotter() *ChartPlotter {
	return &ChartPlotter{}
}

// Plot builds the computed payload for a chart.
func (p *ChartPlotter) Plot(chart *models.Chart, results []assembler.BindingResult) (map[string]any, error) {
	datasets := make([]any, len(results))
	for i, result := range results {
		rows := make([]any, len(result.Rows))
		for j, row := range result.Rows {
			rows[j] = row
		}
		datasets[i] = map[string]any{
			"dataset_id": result.DatasetID.String(),
			"position":   result.Position,
			"rows":       rows,
			"from_cache": result.FromCache,
		}
	}

	return map[string]any{
		"chart_type":   chart.Type,
		"datasets":     datasets,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

var _ assembler.Plotter = (*ChartPlotter)(nil)
