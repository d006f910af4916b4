package connectors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

// ConnectorFactory creates connectors from the registry. The selection
// happens once per connection load; callers hold on to the returned Connector
// for the duration of an assembly instead of re-dispatching per call.
type ConnectorFactory interface {
	// NewConnector creates a connector for the connection's (type, subType)
	// pair. Unsupported pairs fail fast with an explicit error.
	NewConnector(ctx context.Context, conn *models.Connection) (Connector, error)

	// ListTypes returns info for all registered connector types.
	ListTypes() []ConnectorInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewConnectorFactory returns a factory that uses the global registry.
func NewConnectorFactory(logger *zap.Logger) ConnectorFactory {
	return &registryFactory{
		logger: logger.Named("connectors"),
	}
}

func (f *registryFactory) NewConnector(ctx context.Context, conn *models.Connection) (Connector, error) {
	selector := conn.Selector()
	factory := GetFactory(selector)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedConnectionType, selector)
	}
	return factory(ctx, conn, f.logger)
}

func (f *registryFactory) ListTypes() []ConnectorInfo {
	return RegisteredConnectors()
}

// Ensure registryFactory implements ConnectorFactory at compile time.
var _ ConnectorFactory = (*registryFactory)(nil)
