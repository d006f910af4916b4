package rest

import (
	"context"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

func init() {
	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "api",
			DisplayName: "REST API",
			Description: "Connect to any JSON HTTP API",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewRESTConnector(conn, logger)
		},
	})
}
