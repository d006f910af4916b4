package saas

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/connectors/rest"
	"github.com/chartops/chart-engine/pkg/models"
)

// MessagingConnector fetches from a customer-messaging API (conversations,
// contacts, companies). Responses wrap their records in a named array keyed
// by the resource; the request's items field names it.
type MessagingConnector struct {
	client *rest.Client
	logger *zap.Logger
}

// NewMessagingConnector creates a connector from the connection's decrypted
// config map.
func NewMessagingConnector(conn *models.Connection, logger *zap.Logger) (*MessagingConnector, error) {
	client, err := rest.ClientFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid messaging connection config: %w", err)
	}

	return &MessagingConnector{
		client: client,
		logger: logger.Named("messaging"),
	}, nil
}

// Fetch requests the route and unwraps the resource array. The resource name
// comes from the request's items field, falling back to the last route
// segment ("/conversations" unwraps "conversations").
func (c *MessagingConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	parsed, err := c.client.Do(ctx, method, req.Route, req.Body, nil)
	if err != nil {
		return nil, err
	}

	resource := req.ItemsField
	if resource == "" {
		segments := strings.Split(strings.Trim(req.Route, "/"), "/")
		resource = segments[len(segments)-1]
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &connectors.RequestError{Message: "messaging API did not return an object"}
	}

	records, ok := obj[resource].([]any)
	if !ok {
		return nil, &connectors.RequestError{
			Message: fmt.Sprintf("messaging API response has no %q array", resource),
		}
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	data := make([]map[string]any, 0, len(records))
	for _, record := range records {
		if m, ok := record.(map[string]any); ok {
			data = append(data, m)
		} else {
			data = append(data, map[string]any{"value": record})
		}
	}

	return &connectors.FetchResult{
		Data:          data,
		Configuration: fieldHints(data),
	}, nil
}

// Close is a no-op.
func (c *MessagingConnector) Close() error {
	return nil
}

// Ensure MessagingConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*MessagingConnector)(nil)
