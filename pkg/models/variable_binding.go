package models

// VariableType is the declared type of a variable binding. It drives how the
// resolver coerces the chosen value into the query text.
type VariableType string

const (
	VariableTypeString  VariableType = "string"
	VariableTypeNumber  VariableType = "number"
	VariableTypeBoolean VariableType = "boolean"
	VariableTypeDate    VariableType = "date"
)

// VariableBinding declares one {{name}} placeholder for a data request (or a
// chart-level override). Binding names are unique within their owning entity.
type VariableBinding struct {
	Name     string       `json:"name"`
	Type     VariableType `json:"type,omitempty"`
	Default  string       `json:"default,omitempty"`
	Required bool         `json:"required"`
}
