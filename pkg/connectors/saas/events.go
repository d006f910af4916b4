// Package saas implements the narrow SaaS API connectors: event tracking,
// customer messaging, realtime document store and columnar analytics. They
// all speak JSON over HTTP and share the rest package's client.
package saas

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/connectors/rest"
	"github.com/chartops/chart-engine/pkg/models"
)

// EventsConnector fetches from an event-tracking analytics API. The data
// request's query text is posted verbatim as the analysis expression; the
// response is an array of event records.
type EventsConnector struct {
	client *rest.Client
	logger *zap.Logger
}

// NewEventsConnector creates a connector from the connection's decrypted
// config map. The API secret is sent as basic auth, per the provider's
// convention.
func NewEventsConnector(conn *models.Connection, logger *zap.Logger) (*EventsConnector, error) {
	client, err := rest.ClientFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid events connection config: %w", err)
	}

	return &EventsConnector{
		client: client,
		logger: logger.Named("events"),
	}, nil
}

// Fetch posts the query expression and normalizes the returned events.
func (c *EventsConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	route := req.Route
	if route == "" {
		route = "api/2.0/jql"
	}

	var parsed any
	var err error
	if req.Body != "" {
		parsed, err = c.client.Do(ctx, http.MethodPost, route, req.Body, nil)
	} else {
		// The provider's query endpoint takes the expression form-encoded.
		parsed, err = c.client.DoForm(ctx, route, url.Values{"script": {req.Query}})
	}
	if err != nil {
		return nil, err
	}

	events, ok := parsed.([]any)
	if !ok {
		return nil, &connectors.RequestError{Message: "events API did not return an array"}
	}
	if opts.Limit > 0 && len(events) > opts.Limit {
		events = events[:opts.Limit]
	}

	data := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		if obj, ok := ev.(map[string]any); ok {
			data = append(data, obj)
		} else {
			data = append(data, map[string]any{"value": ev})
		}
	}

	return &connectors.FetchResult{
		Data:          data,
		Configuration: fieldHints(data),
	}, nil
}

// Close is a no-op.
func (c *EventsConnector) Close() error {
	return nil
}

// fieldHints derives field name/type hints from a sample of records.
func fieldHints(data []map[string]any) map[string]any {
	if len(data) == 0 {
		return nil
	}

	sample := data
	if len(sample) > 20 {
		sample = sample[:20]
	}

	fields := make(map[string]any)
	for _, record := range sample {
		for k, v := range record {
			if _, seen := fields[k]; seen {
				continue
			}
			switch v.(type) {
			case nil:
				fields[k] = "null"
			case bool:
				fields[k] = "boolean"
			case float64:
				fields[k] = "number"
			case string:
				fields[k] = "string"
			case map[string]any:
				fields[k] = "object"
			case []any:
				fields[k] = "array"
			default:
				fields[k] = fmt.Sprintf("%T", v)
			}
		}
	}

	return map[string]any{"fields": fields}
}

// Ensure EventsConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*EventsConnector)(nil)
