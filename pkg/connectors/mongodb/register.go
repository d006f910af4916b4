package mongodb

import (
	"context"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

func init() {
	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "mongodb",
			DisplayName: "MongoDB",
			Description: "Connect to MongoDB 4.4+",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewMongoConnector(ctx, conn, logger)
		},
	})
}
