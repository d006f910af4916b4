package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/logging"
	"github.com/chartops/chart-engine/pkg/models"
)

// SQLServerConnector executes literal SQL data requests against SQL Server.
type SQLServerConnector struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLServerConnector creates a connector from the connection's decrypted
// config map. The database handle is owned by the connector and released on
// Close.
func NewSQLServerConnector(ctx context.Context, conn *models.Connection, logger *zap.Logger) (*SQLServerConnector, error) {
	cfg, err := FromMap(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid sqlserver connection config: %w", err)
	}

	db, err := sql.Open("sqlserver", buildSQLServerURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %s", logging.SanitizeError(err))
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLServerConnector{
		db:     db,
		logger: logger.Named("sqlserver"),
	}, nil
}

// Fetch runs the request's resolved query text and normalizes the rows.
func (c *SQLServerConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	query := connectors.TrimStatement(req.Query)
	if opts.Limit > 0 {
		query = fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", opts.Limit, query)
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			// database/sql returns []byte for text-ish columns; normalize to
			// string so the payload serializes as JSON text, not base64.
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		data = append(data, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}

	return &connectors.FetchResult{Data: data}, nil
}

// Close releases the database handle.
func (c *SQLServerConnector) Close() error {
	return c.db.Close()
}

// buildSQLServerURL builds a sqlserver:// connection URL from the config.
func buildSQLServerURL(cfg *Config) string {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	query := url.Values{}
	query.Set("database", cfg.Database)
	query.Set("encrypt", fmt.Sprintf("%t", cfg.Encrypt))
	if cfg.TrustServerCertificate {
		query.Set("trustservercertificate", "true")
	}
	if cfg.ConnectTimeout > 0 {
		query.Set("connection timeout", fmt.Sprintf("%d", cfg.ConnectTimeout))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, port),
		RawQuery: query.Encode(),
	}

	return u.String()
}

// Ensure SQLServerConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*SQLServerConnector)(nil)
