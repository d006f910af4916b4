package connectors

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/models"
)

// ConnectorInfo describes a registered connector for UI discovery.
type ConnectorInfo struct {
	Selector    string `json:"selector"`     // "postgres", "mongodb", "api:events"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Event Tracking API"
	Description string `json:"description"`
}

// ConnectorRegistration contains info + the factory for creating connectors.
type ConnectorRegistration struct {
	Info    ConnectorInfo
	Factory func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (Connector, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ConnectorRegistration)
)

// Register is called by each connector's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg ConnectorRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Selector] = reg
}

// RegisteredConnectors returns info for all registered connectors.
func RegisteredConnectors() []ConnectorInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ConnectorInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the factory for a connector selector.
// Returns nil if the selector is not registered.
func GetFactory(selector string) func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (Connector, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[selector]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if a connector selector is available.
func IsRegistered(selector string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[selector]
	return ok
}
