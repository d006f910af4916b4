// Package connectors defines the execution contract over heterogeneous
// external data sources and the registry used to select an implementation
// per connection dialect.
package connectors

import (
	"context"

	"github.com/chartops/chart-engine/pkg/models"
)

// FetchOptions carries per-invocation options for a fetch.
type FetchOptions struct {
	// Variables are runtime-supplied values for the request's bindings.
	// Literal-statement dialects receive them already substituted into the
	// query text; structured dialects resolve them at the structured-query
	// level inside the connector.
	Variables map[string]string

	// Limit caps the accumulated result count for paginated sources.
	// 0 means unlimited.
	Limit int
}

// FetchResult is the normalized response shape of a fetch.
type FetchResult struct {
	// Data holds the fetched rows, documents or items.
	Data []map[string]any `json:"data"`

	// Configuration carries schema/configuration hints discovered in the
	// response, if the source returned any. Persisting it back onto the data
	// request is the caller's concern and is best-effort.
	Configuration map[string]any `json:"configuration,omitempty"`
}

// Connector executes data requests against one external source. An
// implementation is selected once per connection via the registry; each
// implementation owns its connection and must be closed when done.
//
// Failure policy: a non-2xx response, malformed body or driver-level error is
// surfaced as an error carrying the original diagnostic. Connectors never
// retry - retries are a caller concern.
type Connector interface {
	// Fetch builds a source-native request from the data request and
	// executes it.
	Fetch(ctx context.Context, req *models.DataRequest, opts FetchOptions) (*FetchResult, error)

	// Close releases the underlying connection.
	Close() error
}
