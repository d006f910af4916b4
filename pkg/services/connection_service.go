// Package services holds the service layer between repositories and the
// refresh pipeline: connection config encryption, plotting and alert
// evaluation collaborators.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/crypto"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// ConnectionService manages connections with their config encrypted at rest.
// Repositories only ever see ciphertext; connectors only ever see the
// decrypted map.
type ConnectionService struct {
	repo      repositories.ConnectionRepository
	encryptor *crypto.CredentialEncryptor
	logger    *zap.Logger
}

// NewConnectionService creates a connection service.
func NewConnectionService(repo repositories.ConnectionRepository, encryptor *crypto.CredentialEncryptor, logger *zap.Logger) *ConnectionService {
	return &ConnectionService{
		repo:      repo,
		encryptor: encryptor,
		logger:    logger.Named("connections"),
	}
}

// Create encrypts the connection's config and stores it.
func (s *ConnectionService) Create(ctx context.Context, conn *models.Connection) error {
	plaintext, err := json.Marshal(conn.Config)
	if err != nil {
		return fmt.Errorf("failed to encode connection config: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(string(plaintext))
	if err != nil {
		return fmt.Errorf("failed to encrypt connection config: %w", err)
	}

	return s.repo.Create(ctx, conn, encrypted)
}

// Get retrieves a connection with its config decrypted.
func (s *ConnectionService) Get(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	conn, encrypted, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	config, err := s.decryptConfig(encrypted)
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", id, err)
	}
	conn.Config = config

	return conn, nil
}

// List retrieves a team's connections with their configs decrypted.
func (s *ConnectionService) List(ctx context.Context, teamID uuid.UUID) ([]*models.Connection, error) {
	conns, encrypted, err := s.repo.List(ctx, teamID)
	if err != nil {
		return nil, err
	}

	for i, conn := range conns {
		config, err := s.decryptConfig(encrypted[i])
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", conn.ID, err)
		}
		conn.Config = config
	}

	return conns, nil
}

// Delete removes a connection.
func (s *ConnectionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *ConnectionService) decryptConfig(encrypted string) (map[string]any, error) {
	plaintext, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			// Most likely the process key changed since the config was
			// written.
			return nil, apperrors.ErrCredentialsKeyMismatch
		}
		return nil, err
	}

	var config map[string]any
	if err := json.Unmarshal([]byte(plaintext), &config); err != nil {
		return nil, fmt.Errorf("failed to decode connection config: %w", err)
	}

	return config, nil
}
