package sqldb

import (
	"context"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

func init() {
	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "postgres",
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewPostgresConnector(ctx, conn, logger)
		},
	})

	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Connect to SQL Server 2017+ or Azure SQL",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewSQLServerConnector(ctx, conn, logger)
		},
	})
}
