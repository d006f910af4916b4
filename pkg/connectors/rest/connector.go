package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

// RESTConnector executes data requests against arbitrary JSON HTTP APIs,
// with optional offset pagination.
type RESTConnector struct {
	client *Client
	logger *zap.Logger
}

// NewRESTConnector creates a connector from the connection's decrypted
// config map.
func NewRESTConnector(conn *models.Connection, logger *zap.Logger) (*RESTConnector, error) {
	client, err := ClientFromConfig(conn.Config)
	if err != nil {
		return nil, fmt.Errorf("invalid api connection config: %w", err)
	}

	return &RESTConnector{
		client: client,
		logger: logger.Named("rest"),
	}, nil
}

// Fetch executes the request. When pagination is enabled it iterates pages
// while tracking the request's items/offset field pair; iteration stops on an
// empty page, when the accumulated count reaches the limit, or when a new
// page is structurally identical to the previous one (loop-guard against a
// server that ignores offset).
func (c *RESTConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	limit := opts.Limit
	if limit == 0 {
		limit = req.ItemsLimit
	}

	if !req.Pagination {
		parsed, err := c.client.Do(ctx, method, req.Route, req.Body, c.headerQuery(req))
		if err != nil {
			return nil, err
		}
		itemsField, _ := req.PaginationFields()
		items := extractItems(parsed, itemsField)
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}
		return &connectors.FetchResult{Data: normalizeItems(items)}, nil
	}

	return c.paginate(ctx, method, req, limit)
}

// paginate loops offset-paginated requests, accumulating items.
func (c *RESTConnector) paginate(ctx context.Context, method string, req *models.DataRequest, limit int) (*connectors.FetchResult, error) {
	itemsField, offsetField := req.PaginationFields()

	var accumulated []any
	var previousPage []any
	offset := 0

	for {
		query := c.headerQuery(req)
		query.Set(offsetField, strconv.Itoa(offset))

		parsed, err := c.client.Do(ctx, method, req.Route, req.Body, query)
		if err != nil {
			return nil, err
		}

		page := extractItems(parsed, itemsField)
		if len(page) == 0 {
			break
		}

		// Loop-guard: a server that ignores the offset parameter returns the
		// same page forever. Stop as soon as two consecutive pages are
		// structurally identical.
		if previousPage != nil && reflect.DeepEqual(page, previousPage) {
			c.logger.Debug("pagination halted: identical consecutive pages",
				zap.String("route", req.Route),
				zap.Int("offset", offset))
			break
		}
		previousPage = page

		accumulated = append(accumulated, page...)
		if limit > 0 && len(accumulated) >= limit {
			accumulated = accumulated[:limit]
			break
		}

		offset += len(page)
	}

	return &connectors.FetchResult{Data: normalizeItems(accumulated)}, nil
}

// headerQuery builds the base query values for a request. Data request
// headers prefixed with "query:" are sent as query parameters, which lets a
// request pin static parameters alongside the paginated ones.
func (c *RESTConnector) headerQuery(req *models.DataRequest) url.Values {
	query := url.Values{}
	for k, v := range req.Headers {
		if name, ok := strings.CutPrefix(k, "query:"); ok {
			query.Set(name, v)
		}
	}
	return query
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (c *RESTConnector) Close() error {
	return nil
}

// extractItems locates the array of items in a parsed response. A top-level
// array is used directly; objects are walked along the dotted items field
// path. Anything else yields a single-item result.
func extractItems(parsed any, itemsField string) []any {
	switch v := parsed.(type) {
	case []any:
		return v
	case map[string]any:
		current := any(v)
		for _, part := range strings.Split(itemsField, ".") {
			obj, ok := current.(map[string]any)
			if !ok {
				return []any{parsed}
			}
			current, ok = obj[part]
			if !ok {
				return []any{parsed}
			}
		}
		if arr, ok := current.([]any); ok {
			return arr
		}
		return []any{parsed}
	case nil:
		return nil
	default:
		return []any{parsed}
	}
}

// normalizeItems converts raw items into the connector result shape. Scalar
// items are wrapped under a "value" key.
func normalizeItems(items []any) []map[string]any {
	data := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			data = append(data, obj)
		} else {
			data = append(data, map[string]any{"value": item})
		}
	}
	return data
}

// Ensure RESTConnector implements connectors.Connector at compile time.
var _ connectors.Connector = (*RESTConnector)(nil)
