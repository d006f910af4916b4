package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/assembler"
	"github.com/chartops/chart-engine/pkg/models"
)

// AlertService is the alert collaborator invoked after non-table chart
// refreshes. Rule storage and delivery live in a separate system; this
// service inspects the fresh payload and emits the evaluation events that
// system consumes.
type AlertService struct {
	logger *zap.Logger
}

// NewAlertService creates an alert service.
func NewAlertService(logger *zap.Logger) *AlertService {
	return &AlertService{logger: logger.Named("alerts")}
}

// CheckChart evaluates the freshly computed payload. An empty refresh (every
// dataset returned zero rows) is surfaced as a warning; normal refreshes emit
// a debug event with per-dataset row counts.
func (s *AlertService) CheckChart(ctx context.Context, chart *models.Chart, chartData map[string]any) error {
	datasets, _ := chartData["datasets"].([]any)

	total := 0
	counts := make([]int, 0, len(datasets))
	for _, ds := range datasets {
		obj, ok := ds.(map[string]any)
		if !ok {
			continue
		}
		rows, _ := obj["rows"].([]any)
		counts = append(counts, len(rows))
		total += len(rows)
	}

	if len(datasets) > 0 && total == 0 {
		s.logger.Warn("chart refreshed with no data",
			zap.String("chart_id", chart.ID.String()),
			zap.String("chart_type", chart.Type))
		return nil
	}

	s.logger.Debug("alert evaluation",
		zap.String("chart_id", chart.ID.String()),
		zap.Ints("dataset_rows", counts))

	return nil
}

var _ assembler.AlertChecker = (*AlertService)(nil)
