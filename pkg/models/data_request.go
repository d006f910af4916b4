package models

import (
	"time"

	"github.com/google/uuid"
)

// DataRequest is a single fetchable unit: a query (or method/route for HTTP
// sources) bound to one connection, with pagination settings, variable
// bindings and an optional post-fetch transform spec. A data request belongs
// to exactly one dataset and references at most one connection.
type DataRequest struct {
	ID           uuid.UUID  `json:"id"`
	DatasetID    uuid.UUID  `json:"dataset_id"`
	ConnectionID *uuid.UUID `json:"connection_id,omitempty"`

	// Query is the query text for SQL-like and document dialects.
	Query string `json:"query,omitempty"`

	// HTTP request shape for REST-backed sources.
	Method  string            `json:"method,omitempty"`
	Route   string            `json:"route,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`

	// Pagination settings for the generic REST connector.
	Pagination  bool   `json:"pagination"`
	ItemsField  string `json:"items_field,omitempty"`  // defaults to "items"
	OffsetField string `json:"offset_field,omitempty"` // defaults to "offset"
	ItemsLimit  int    `json:"items_limit"`            // 0 = unlimited

	// Variables declared for this request. Binding names are unique within
	// the request.
	Variables []VariableBinding `json:"variables,omitempty"`

	// Configuration holds schema hints discovered opportunistically from
	// responses (document stores, SaaS APIs that return inline schema).
	Configuration map[string]any `json:"configuration,omitempty"`

	// Transform is an optional post-fetch transform spec, applied by the
	// chart renderer.
	Transform map[string]any `json:"transform,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaginationFields returns the items/offset field names, falling back to the
// conventional defaults when unset.
func (dr *DataRequest) PaginationFields() (items, offset string) {
	items = dr.ItemsField
	if items == "" {
		items = "items"
	}
	offset = dr.OffsetField
	if offset == "" {
		offset = "offset"
	}
	return items, offset
}

// Binding returns the variable binding with the given name, or nil.
func (dr *DataRequest) Binding(name string) *VariableBinding {
	for i := range dr.Variables {
		if dr.Variables[i].Name == name {
			return &dr.Variables[i]
		}
	}
	return nil
}
