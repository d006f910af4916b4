package saas

import (
	"context"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

func init() {
	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "api:events",
			DisplayName: "Event Tracking API",
			Description: "Query event-tracking analytics exports",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewEventsConnector(conn, logger)
		},
	})

	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "api:messaging",
			DisplayName: "Customer Messaging API",
			Description: "Query conversations, contacts and companies",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewMessagingConnector(conn, logger)
		},
	})

	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "api:realtimedb",
			DisplayName: "Realtime Document API",
			Description: "Read nodes from a realtime document database",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewRealtimeDBConnector(conn, logger)
		},
	})

	connectors.Register(connectors.ConnectorRegistration{
		Info: connectors.ConnectorInfo{
			Selector:    "columnar",
			DisplayName: "Columnar Analytics",
			Description: "Query a columnar store over its HTTP SQL interface",
		},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (connectors.Connector, error) {
			return NewColumnarConnector(conn, logger)
		},
	})
}
