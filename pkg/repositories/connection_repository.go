package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/database"
	"github.com/chartops/chart-engine/pkg/models"
)

// ConnectionRepository defines the interface for connection data access.
// Config is stored as encrypted TEXT - encryption/decryption is handled by
// the service layer.
type ConnectionRepository interface {
	// Create inserts a new connection. Returns ErrConflict if the name
	// already exists for the team.
	Create(ctx context.Context, conn *models.Connection, encryptedConfig string) error

	// GetByID retrieves a connection by ID. Returns the model and its
	// encrypted config.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, string, error)

	// List retrieves all connections for a team with their encrypted configs.
	List(ctx context.Context, teamID uuid.UUID) ([]*models.Connection, []string, error)

	// Delete removes a connection by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

// connectionRepository implements ConnectionRepository using PostgreSQL.
type connectionRepository struct {
	db *database.DB
}

// NewConnectionRepository creates a new connection repository.
func NewConnectionRepository(db *database.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) Create(ctx context.Context, conn *models.Connection, encryptedConfig string) error {
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	query := `
		INSERT INTO engine_connections (team_id, name, connection_type, connection_sub_type, connection_config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		conn.TeamID,
		conn.Name,
		conn.Type,
		conn.SubType,
		encryptedConfig,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID)
	if err != nil {
		// Unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}

	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Connection, string, error) {
	query := `
		SELECT id, team_id, name, connection_type, connection_sub_type, connection_config, created_at, updated_at
		FROM engine_connections
		WHERE id = $1`

	var conn models.Connection
	var encryptedConfig string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conn.ID,
		&conn.TeamID,
		&conn.Name,
		&conn.Type,
		&conn.SubType,
		&encryptedConfig,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", fmt.Errorf("connection %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, "", fmt.Errorf("failed to get connection: %w", err)
	}

	return &conn, encryptedConfig, nil
}

func (r *connectionRepository) List(ctx context.Context, teamID uuid.UUID) ([]*models.Connection, []string, error) {
	query := `
		SELECT id, team_id, name, connection_type, connection_sub_type, connection_config, created_at, updated_at
		FROM engine_connections
		WHERE team_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var connections []*models.Connection
	var encryptedConfigs []string
	for rows.Next() {
		var conn models.Connection
		var encryptedConfig string
		err := rows.Scan(
			&conn.ID,
			&conn.TeamID,
			&conn.Name,
			&conn.Type,
			&conn.SubType,
			&encryptedConfig,
			&conn.CreatedAt,
			&conn.UpdatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, &conn)
		encryptedConfigs = append(encryptedConfigs, encryptedConfig)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, encryptedConfigs, nil
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM engine_connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// Ensure connectionRepository implements ConnectionRepository at compile time.
var _ ConnectionRepository = (*connectionRepository)(nil)
