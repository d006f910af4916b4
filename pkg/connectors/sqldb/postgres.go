package sqldb

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/logging"
	"github.com/chartops/chart-engine/pkg/models"
)

// PostgresConnector executes literal SQL data requests against PostgreSQL.
type PostgresConnector struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresConnector creates a connector from the connection's decrypted
// config map. The pool is owned by the connector and released on Close.
func NewPostgresConnector(ctx context.Context, conn *models.Connection, logger *zap.Logger) (*PostgresConnector, error) {
	cfg, err := FromMap(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection config: %w", err)
	}

	connStr := buildPostgresURL(cfg)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	return &PostgresConnector{
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

// Fetch runs the request's resolved query text and normalizes the rows.
func (c *PostgresConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	query := connectors.TrimStatement(req.Query)
	if opts.Limit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", query, opts.Limit)
	}

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		data = append(data, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, &connectors.RequestError{Message: logging.SanitizeError(err)}
	}

	return &connectors.FetchResult{Data: data}, nil
}

// Close releases the connection pool.
func (c *PostgresConnector) Close() error {
	c.pool.Close()
	return nil
}

// buildPostgresURL builds a postgres:// connection URL from the config.
func buildPostgresURL(cfg *Config) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", cfg.ConnectTimeout))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Ensure PostgresConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*PostgresConnector)(nil)
