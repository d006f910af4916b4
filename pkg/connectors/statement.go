package connectors

import "strings"

// TrimStatement normalizes an operator-authored SQL statement for embedding
// as a subquery. Surrounding whitespace and a trailing semicolon are removed;
// a semicolon inside "SELECT * FROM (...)" is a syntax error on every dialect
// we wrap.
func TrimStatement(query string) string {
	query = strings.TrimSpace(query)
	query = strings.TrimSuffix(query, ";")
	return strings.TrimSpace(query)
}
