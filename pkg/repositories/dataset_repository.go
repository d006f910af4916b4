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

// DatasetRepository defines the interface for dataset data access.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Dataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

func (r *datasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	now := time.Now()
	dataset.CreatedAt = now
	dataset.UpdatedAt = now

	query := `
		INSERT INTO engine_datasets (team_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		dataset.TeamID,
		dataset.Name,
		dataset.Description,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	).Scan(&dataset.ID)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

func (r *datasetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	query := `
		SELECT id, team_id, name, description, created_at, updated_at
		FROM engine_datasets
		WHERE id = $1`

	var dataset models.Dataset
	err := r.db.QueryRow(ctx, query, id).Scan(
		&dataset.ID,
		&dataset.TeamID,
		&dataset.Name,
		&dataset.Description,
		&dataset.CreatedAt,
		&dataset.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}

	return &dataset, nil
}

func (r *datasetRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Dataset, error) {
	query := `
		SELECT id, team_id, name, description, created_at, updated_at
		FROM engine_datasets
		WHERE team_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		var dataset models.Dataset
		err := rows.Scan(
			&dataset.ID,
			&dataset.TeamID,
			&dataset.Name,
			&dataset.Description,
			&dataset.CreatedAt,
			&dataset.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, &dataset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}

	return datasets, nil
}

func (r *datasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM engine_datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

var _ DatasetRepository = (*datasetRepository)(nil)
