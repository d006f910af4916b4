package saas

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/connectors/rest"
	"github.com/chartops/chart-engine/pkg/models"
)

// ColumnarConnector fetches from a columnar-analytics API over its HTTP SQL
// interface. The query text is a literal SQL statement (the engine resolves
// placeholders before dispatch); results arrive as {meta, data}.
type ColumnarConnector struct {
	client *rest.Client
	logger *zap.Logger
}

// NewColumnarConnector creates a connector from the connection's decrypted
// config map.
func NewColumnarConnector(conn *models.Connection, logger *zap.Logger) (*ColumnarConnector, error) {
	client, err := rest.ClientFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid columnar connection config: %w", err)
	}

	return &ColumnarConnector{
		client: client,
		logger: logger.Named("columnar"),
	}, nil
}

// Fetch posts the resolved SQL with JSON output format and normalizes the
// rows. Column metadata from the response becomes schema hints.
func (c *ColumnarConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	query := connectors.TrimStatement(req.Query)
	if opts.Limit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", query, opts.Limit)
	}

	parsed, err := c.client.Do(ctx, http.MethodPost, req.Route, query+" FORMAT JSON", nil)
	if err != nil {
		return nil, err
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &connectors.RequestError{Message: "columnar API did not return an object"}
	}

	rows, ok := obj["data"].([]any)
	if !ok {
		return nil, &connectors.RequestError{Message: "columnar API response has no data array"}
	}

	data := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if m, ok := row.(map[string]any); ok {
			data = append(data, m)
		} else {
			data = append(data, map[string]any{"value": row})
		}
	}

	return &connectors.FetchResult{
		Data:          data,
		Configuration: columnarHints(obj),
	}, nil
}

// Close is a no-op.
func (c *ColumnarConnector) Close() error {
	return nil
}

// columnarHints converts the response's column metadata into schema hints.
func columnarHints(obj map[string]any) map[string]any {
	meta, ok := obj["meta"].([]any)
	if !ok || len(meta) == 0 {
		return nil
	}

	fields := make(map[string]any, len(meta))
	for _, col := range meta {
		if m, ok := col.(map[string]any); ok {
			name, _ := m["name"].(string)
			colType, _ := m["type"].(string)
			if name != "" {
				fields[name] = colType
			}
		}
	}

	return map[string]any{"fields": fields}
}

// Ensure ColumnarConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*ColumnarConnector)(nil)
