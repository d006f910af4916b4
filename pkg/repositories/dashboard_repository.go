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

// DashboardRepository defines the interface for dashboard data access.
type DashboardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error)

	// ListScheduled returns dashboards that carry a refresh schedule.
	ListScheduled(ctx context.Context) ([]*models.Dashboard, error)

	// UpdateLastSchedulerRun stamps the cadence bookkeeping time.
	UpdateLastSchedulerRun(ctx context.Context, id uuid.UUID, at time.Time) error
}

type dashboardRepository struct {
	db *database.DB
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *database.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

const dashboardColumns = `id, team_id, name, schedule, last_scheduler_run, created_at, updated_at`

func (r *dashboardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dashboard, error) {
	query := fmt.Sprintf(`SELECT %s FROM engine_dashboards WHERE id = $1`, dashboardColumns)

	dashboard, err := scanDashboard(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("dashboard %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}

	return dashboard, nil
}

func (r *dashboardRepository) ListScheduled(ctx context.Context) ([]*models.Dashboard, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM engine_dashboards
		WHERE schedule IS NOT NULL
		ORDER BY created_at ASC`, dashboardColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled dashboards: %w", err)
	}
	defer rows.Close()

	var dashboards []*models.Dashboard
	for rows.Next() {
		dashboard, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		dashboards = append(dashboards, dashboard)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dashboards: %w", err)
	}

	return dashboards, nil
}

func (r *dashboardRepository) UpdateLastSchedulerRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE engine_dashboards
		SET last_scheduler_run = $2
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to update dashboard scheduler run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dashboard %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// scanDashboard scans one row in dashboardColumns order. The schedule JSONB
// column decodes into the nested Schedule struct, staying nil when the column
// is NULL.
func scanDashboard(row pgx.Row) (*models.Dashboard, error) {
	var dashboard models.Dashboard
	err := row.Scan(
		&dashboard.ID,
		&dashboard.TeamID,
		&dashboard.Name,
		&dashboard.Schedule,
		&dashboard.LastSchedulerRun,
		&dashboard.CreatedAt,
		&dashboard.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}

var _ DashboardRepository = (*dashboardRepository)(nil)
