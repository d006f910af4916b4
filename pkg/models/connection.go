package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection represents credentials and dialect information for one external
// data source. The Config field contains connection details (credentials,
// host, etc.) which are encrypted at rest by the service layer. Identity is
// immutable once created.
type Connection struct {
	ID        uuid.UUID      `json:"id"`
	TeamID    uuid.UUID      `json:"team_id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`               // "postgres", "sqlserver", "mongodb", "api", ...
	SubType   string         `json:"sub_type,omitempty"` // narrows "api": "events", "messaging", ...
	Config    map[string]any `json:"config"`             // Decrypted config, structure varies by type
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Selector returns the connector selection key for this connection.
// Connections with a sub-type select a narrow SaaS connector; the bare type
// selects the generic variant.
func (c *Connection) Selector() string {
	if c.SubType != "" {
		return c.Type + ":" + c.SubType
	}
	return c.Type
}

// IsSQLDialect reports whether the connection's query text is a literal SQL
// statement. Variable placeholders are only resolved for these dialects;
// structured queries resolve at the structured-query level.
func (c *Connection) IsSQLDialect() bool {
	switch c.Type {
	case "postgres", "sqlserver", "mysql", "columnar":
		return true
	default:
		return false
	}
}
