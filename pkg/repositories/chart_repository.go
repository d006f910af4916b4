package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/database"
	"github.com/chartops/chart-engine/pkg/models"
)

// ChartRepository defines the interface for chart data access.
type ChartRepository interface {
	// GetWithBindings retrieves a chart and its dataset bindings ordered by
	// position.
	GetWithBindings(ctx context.Context, id uuid.UUID) (*models.Chart, error)

	// ListAutoUpdating returns charts with a non-zero auto-update interval,
	// bindings included.
	ListAutoUpdating(ctx context.Context) ([]*models.Chart, error)

	// ListByDashboard returns the dashboard's charts, bindings included.
	ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*models.Chart, error)

	// UpdateRefreshResult persists the computed payload and its timestamp
	// after a successful refresh.
	UpdateRefreshResult(ctx context.Context, id uuid.UUID, chartData map[string]any, at time.Time) error

	// UpdateLastAutoUpdate stamps the interval-refresh bookkeeping time.
	UpdateLastAutoUpdate(ctx context.Context, id uuid.UUID, at time.Time) error
}

type chartRepository struct {
	db *database.DB
}

// NewChartRepository creates a new chart repository.
func NewChartRepository(db *database.DB) ChartRepository {
	return &chartRepository{db: db}
}

const chartColumns = `id, dashboard_id, name, chart_type, auto_update, last_auto_update,
		chart_data, chart_data_at, created_at, updated_at`

func (r *chartRepository) GetWithBindings(ctx context.Context, id uuid.UUID) (*models.Chart, error) {
	query := fmt.Sprintf(`SELECT %s FROM engine_charts WHERE id = $1`, chartColumns)

	chart, err := scanChart(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("chart %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get chart: %w", err)
	}

	if err := r.loadBindings(ctx, chart); err != nil {
		return nil, err
	}

	return chart, nil
}

func (r *chartRepository) ListAutoUpdating(ctx context.Context) ([]*models.Chart, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM engine_charts
		WHERE auto_update > 0
		ORDER BY created_at ASC`, chartColumns)

	return r.list(ctx, query)
}

func (r *chartRepository) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*models.Chart, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM engine_charts
		WHERE dashboard_id = $1
		ORDER BY created_at ASC`, chartColumns)

	return r.list(ctx, query, dashboardID)
}

func (r *chartRepository) list(ctx context.Context, query string, args ...any) ([]*models.Chart, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	defer rows.Close()

	var charts []*models.Chart
	for rows.Next() {
		chart, err := scanChart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chart: %w", err)
		}
		charts = append(charts, chart)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating charts: %w", err)
	}

	for _, chart := range charts {
		if err := r.loadBindings(ctx, chart); err != nil {
			return nil, err
		}
	}

	return charts, nil
}

func (r *chartRepository) loadBindings(ctx context.Context, chart *models.Chart) error {
	query := `
		SELECT id, chart_id, dataset_id, position, variable_overrides
		FROM engine_chart_datasets
		WHERE chart_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, chart.ID)
	if err != nil {
		return fmt.Errorf("failed to load chart bindings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var binding models.ChartDatasetBinding
		err := rows.Scan(
			&binding.ID,
			&binding.ChartID,
			&binding.DatasetID,
			&binding.Position,
			&binding.VariableOverrides,
		)
		if err != nil {
			return fmt.Errorf("failed to scan chart binding: %w", err)
		}
		chart.Datasets = append(chart.Datasets, binding)
	}

	return rows.Err()
}

func (r *chartRepository) UpdateRefreshResult(ctx context.Context, id uuid.UUID, chartData map[string]any, at time.Time) error {
	query := `
		UPDATE engine_charts
		SET chart_data = $2, chart_data_at = $3, updated_at = $3
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, chartData, at)
	if err != nil {
		return fmt.Errorf("failed to update chart data: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("chart %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

func (r *chartRepository) UpdateLastAutoUpdate(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE engine_charts
		SET last_auto_update = $2
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update chart auto-update time: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("chart %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// scanChart scans one row in chartColumns order.
func scanChart(row pgx.Row) (*models.Chart, error) {
	var chart models.Chart
	err := row.Scan(
		&chart.ID,
		&chart.DashboardID,
		&chart.Name,
		&chart.Type,
		&chart.AutoUpdate,
		&chart.LastAutoUpdate,
		&chart.ChartData,
		&chart.ChartDataAt,
		&chart.CreatedAt,
		&chart.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &chart, nil
}

var _ ChartRepository = (*chartRepository)(nil)
