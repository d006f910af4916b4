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

// DataRequestRepository defines the interface for data request access.
type DataRequestRepository interface {
	Create(ctx context.Context, req *models.DataRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataRequest, error)

	// ListByDataset returns the dataset's data requests in creation order.
	ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.DataRequest, error)

	// UpdateConfiguration replaces the stored schema hints for a request.
	UpdateConfiguration(ctx context.Context, id uuid.UUID, configuration map[string]any) error

	Delete(ctx context.Context, id uuid.UUID) error
}

type dataRequestRepository struct {
	db *database.DB
}

// NewDataRequestRepository creates a new data request repository.
func NewDataRequestRepository(db *database.DB) DataRequestRepository {
	return &dataRequestRepository{db: db}
}

const dataRequestColumns = `id, dataset_id, connection_id, query, method, route, headers, body,
		pagination, items_field, offset_field, items_limit, variables, configuration, transform,
		created_at, updated_at`

func (r *dataRequestRepository) Create(ctx context.Context, req *models.DataRequest) error {
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	query := `
		INSERT INTO engine_data_requests (dataset_id, connection_id, query, method, route, headers, body,
			pagination, items_field, offset_field, items_limit, variables, configuration, transform,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		req.DatasetID,
		req.ConnectionID,
		req.Query,
		req.Method,
		req.Route,
		req.Headers,
		req.Body,
		req.Pagination,
		req.ItemsField,
		req.OffsetField,
		req.ItemsLimit,
		req.Variables,
		req.Configuration,
		req.Transform,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID)
	if err != nil {
		return fmt.Errorf("failed to create data request: %w", err)
	}

	return nil
}

func (r *dataRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM engine_data_requests WHERE id = $1`, dataRequestColumns)

	req, err := scanDataRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("data request %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get data request: %w", err)
	}

	return req, nil
}

func (r *dataRequestRepository) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.DataRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM engine_data_requests
		WHERE dataset_id = $1
		ORDER BY created_at ASC`, dataRequestColumns)

	rows, err := r.db.Query(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list data requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.DataRequest
	for rows.Next() {
		req, err := scanDataRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data requests: %w", err)
	}

	return requests, nil
}

func (r *dataRequestRepository) UpdateConfiguration(ctx context.Context, id uuid.UUID, configuration map[string]any) error {
	query := `
		UPDATE engine_data_requests
		SET configuration = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, configuration, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update data request configuration: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("data request %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

func (r *dataRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM engine_data_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("data request %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// scanDataRequest scans one row in dataRequestColumns order. JSONB columns
// decode straight into the model's maps and slices via pgx's JSON codec.
func scanDataRequest(row pgx.Row) (*models.DataRequest, error) {
	var req models.DataRequest
	err := row.Scan(
		&req.ID,
		&req.DatasetID,
		&req.ConnectionID,
		&req.Query,
		&req.Method,
		&req.Route,
		&req.Headers,
		&req.Body,
		&req.Pagination,
		&req.ItemsField,
		&req.OffsetField,
		&req.ItemsLimit,
		&req.Variables,
		&req.Configuration,
		&req.Transform,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

var _ DataRequestRepository = (*dataRequestRepository)(nil)
