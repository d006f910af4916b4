package saas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/connectors/rest"
	"github.com/chartops/chart-engine/pkg/models"
)

// RealtimeDBConnector fetches from a realtime document API whose REST surface
// returns a node as an object of id-keyed documents.
type RealtimeDBConnector struct {
	client *rest.Client
	secret string
	logger *zap.Logger
}

// NewRealtimeDBConnector creates a connector from the connection's decrypted
// config map. The database secret, if set, is appended as an auth query
// parameter per the provider's convention.
func NewRealtimeDBConnector(conn *models.Connection, logger *zap.Logger) (*RealtimeDBConnector, error) {
	client, err := rest.ClientFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid realtimedb connection config: %w", err)
	}

	secret, _ := conn.Config["secret"].(string)

	return &RealtimeDBConnector{
		client: client,
		secret: secret,
		logger: logger.Named("realtimedb"),
	}, nil
}

// Fetch reads the node at the request's route. Each child document becomes a
// row; its id is exposed under "_key". Document keys are sorted for a stable
// row order.
func (c *RealtimeDBConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	route := strings.Trim(req.Route, "/")
	if !strings.HasSuffix(route, ".json") {
		route += ".json"
	}

	query := url.Values{}
	if c.secret != "" {
		query.Set("auth", c.secret)
	}

	parsed, err := c.client.Do(ctx, http.MethodGet, route, "", query)
	if err != nil {
		return nil, err
	}

	var data []map[string]any
	switch node := parsed.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if doc, ok := node[k].(map[string]any); ok {
				row := make(map[string]any, len(doc)+1)
				for field, v := range doc {
					row[field] = v
				}
				row["_key"] = k
				data = append(data, row)
			} else {
				data = append(data, map[string]any{"_key": k, "value": node[k]})
			}
		}
	case []any:
		for i, item := range node {
			if doc, ok := item.(map[string]any); ok {
				data = append(data, doc)
			} else if item != nil {
				data = append(data, map[string]any{"_key": fmt.Sprintf("%d", i), "value": item})
			}
		}
	case nil:
		data = []map[string]any{}
	default:
		return nil, &connectors.RequestError{Message: "realtime document API returned a scalar node"}
	}

	if opts.Limit > 0 && len(data) > opts.Limit {
		data = data[:opts.Limit]
	}

	return &connectors.FetchResult{
		Data:          data,
		Configuration: fieldHints(data),
	}, nil
}

// Close is a no-op.
func (c *RealtimeDBConnector) Close() error {
	return nil
}

// Ensure RealtimeDBConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*RealtimeDBConnector)(nil)
