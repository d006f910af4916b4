// Package variables resolves {{name}} placeholders in literal query text.
package variables

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

// placeholderPattern matches {{name}} placeholders, non-overlapping,
// left-to-right. Optional whitespace inside the braces is tolerated.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Resolve substitutes every placeholder in template. For each placeholder the
// value is chosen in order: non-empty runtime value, then the binding's
// non-empty default, then an error if the binding is required, otherwise the
// placeholder is removed (empty string). The chosen value is coerced into a
// literal according to the binding's declared type.
//
// Resolve only applies to dialects whose query text is a literal statement;
// structured/document queries resolve at the structured-query level.
func Resolve(template string, bindings []models.VariableBinding, runtime map[string]string) (string, error) {
	byName := make(map[string]*models.VariableBinding, len(bindings))
	for i := range bindings {
		byName[bindings[i].Name] = &bindings[i]
	}

	var sb strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		sb.WriteString(template[last:loc[0]])
		last = loc[1]

		name := template[loc[2]:loc[3]]
		binding := byName[name]

		value, ok := chooseValue(name, binding, runtime)
		if !ok {
			if binding != nil && binding.Required {
				return "", fmt.Errorf("%w: %q", apperrors.ErrRequiredVariable, name)
			}
			// Optional with no value: remove the placeholder.
			continue
		}

		var varType models.VariableType
		if binding != nil {
			varType = binding.Type
		}
		sb.WriteString(Coerce(value, varType))
	}
	sb.WriteString(template[last:])

	return sb.String(), nil
}

// chooseValue picks the runtime value if non-empty, else the binding default.
func chooseValue(name string, binding *models.VariableBinding, runtime map[string]string) (string, bool) {
	if v, ok := runtime[name]; ok && v != "" {
		return v, true
	}
	if binding != nil && binding.Default != "" {
		return binding.Default, true
	}
	return "", false
}

// Coerce turns a raw value into a statement literal for the declared type.
func Coerce(value string, varType models.VariableType) string {
	switch varType {
	case models.VariableTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "0"
		}
		return value
	case models.VariableTypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil || !b {
			return "FALSE"
		}
		return "TRUE"
	case models.VariableTypeDate:
		return quote(value)
	case models.VariableTypeString:
		return quote(value)
	default:
		// Unknown/untyped values are treated as strings.
		return quote(value)
	}
}

// quote single-quotes a value, doubling embedded quotes.
func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// ResolveRaw substitutes placeholders without literal coercion. Used for
// HTTP routes and other non-statement text, where quoting would corrupt the
// output. Value choice and required-variable semantics match Resolve.
func ResolveRaw(template string, bindings []models.VariableBinding, runtime map[string]string) (string, error) {
	byName := make(map[string]*models.VariableBinding, len(bindings))
	for i := range bindings {
		byName[bindings[i].Name] = &bindings[i]
	}

	var sb strings.Builder
	last := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		sb.WriteString(template[last:loc[0]])
		last = loc[1]

		name := template[loc[2]:loc[3]]
		binding := byName[name]

		value, ok := chooseValue(name, binding, runtime)
		if !ok {
			if binding != nil && binding.Required {
				return "", fmt.Errorf("%w: %q", apperrors.ErrRequiredVariable, name)
			}
			continue
		}
		sb.WriteString(value)
	}
	sb.WriteString(template[last:])

	return sb.String(), nil
}

// Placeholders returns the distinct placeholder names in template, in order
// of first appearance.
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}
