// Package mongodb implements the document-store connector. Query text is a
// restricted method-chain expression validated against an allow-list of call
// shapes before interpretation; generated query text is never evaluated as
// code.
package mongodb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/variables"
)

// Query is the validated, interpretable form of a document query expression
// such as:
//
//	users.find({"status": "active"}).sort({"createdAt": -1}).limit(100)
//	events.aggregate([{"$group": {"_id": "$type", "n": {"$sum": 1}}}])
//
// Only collection access plus chained read-only operations with literal
// JSON/integer arguments are accepted.
type Query struct {
	Collection string
	Filter     map[string]any
	Projection map[string]any
	Sort       map[string]any
	Pipeline   []any
	Limit      int64
	Skip       int64
	Count      bool
}

type call struct {
	name string
	args []string
}

// allowedCalls is the allow-list of chainable operations and their argument
// arity bounds.
var allowedCalls = map[string]struct{ minArgs, maxArgs int }{
	"find":      {0, 2},
	"aggregate": {1, 1},
	"sort":      {1, 1},
	"project":   {1, 1},
	"limit":     {1, 1},
	"skip":      {1, 1},
	"count":     {0, 0},
}

// ParseQuery parses and validates a document query expression.
func ParseQuery(text string) (*Query, error) {
	collection, calls, err := scanChain(strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, fmt.Errorf("document query must start with a collection name")
	}

	q := &Query{Collection: collection}
	seenRead := false

	for _, c := range calls {
		bounds, ok := allowedCalls[c.name]
		if !ok {
			return nil, fmt.Errorf("operation %q is not allowed in document queries", c.name)
		}
		if len(c.args) < bounds.minArgs || len(c.args) > bounds.maxArgs {
			return nil, fmt.Errorf("operation %q takes %d to %d arguments, got %d",
				c.name, bounds.minArgs, bounds.maxArgs, len(c.args))
		}

		switch c.name {
		case "find":
			if seenRead {
				return nil, fmt.Errorf("only one find/aggregate/count per query")
			}
			seenRead = true
			if len(c.args) >= 1 {
				if q.Filter, err = parseObjectArg(c.name, c.args[0]); err != nil {
					return nil, err
				}
			}
			if len(c.args) == 2 {
				if q.Projection, err = parseObjectArg(c.name, c.args[1]); err != nil {
					return nil, err
				}
			}
		case "aggregate":
			if seenRead {
				return nil, fmt.Errorf("only one find/aggregate/count per query")
			}
			seenRead = true
			if q.Pipeline, err = parseArrayArg(c.name, c.args[0]); err != nil {
				return nil, err
			}
		case "sort":
			if q.Sort, err = parseObjectArg(c.name, c.args[0]); err != nil {
				return nil, err
			}
		case "project":
			if q.Projection, err = parseObjectArg(c.name, c.args[0]); err != nil {
				return nil, err
			}
		case "limit":
			if q.Limit, err = parseIntArg(c.name, c.args[0]); err != nil {
				return nil, err
			}
		case "skip":
			if q.Skip, err = parseIntArg(c.name, c.args[0]); err != nil {
				return nil, err
			}
		case "count":
			if seenRead {
				return nil, fmt.Errorf("only one find/aggregate/count per query")
			}
			seenRead = true
			q.Count = true
		}
	}

	if !seenRead {
		// Bare "collection.sort(...)" chains read nothing; treat as find-all.
		if len(calls) == 0 {
			return nil, fmt.Errorf("document query has no operation")
		}
	}

	return q, nil
}

// scanChain splits "collection.op(args).op(args)" into the collection name
// and its calls, keeping string and bracket nesting intact inside arguments.
func scanChain(text string) (string, []call, error) {
	i := 0
	readIdent := func() string {
		start := i
		for i < len(text) {
			r := rune(text[i])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
				break
			}
			i++
		}
		return text[start:i]
	}

	collection := readIdent()
	var calls []call

	for i < len(text) {
		if text[i] != '.' {
			return "", nil, fmt.Errorf("unexpected character %q at position %d", text[i], i)
		}
		i++ // consume '.'

		name := readIdent()
		if name == "" {
			return "", nil, fmt.Errorf("expected operation name at position %d", i)
		}
		if i >= len(text) || text[i] != '(' {
			return "", nil, fmt.Errorf("operation %q must be a call", name)
		}

		rawArgs, next, err := scanParens(text, i)
		if err != nil {
			return "", nil, err
		}
		i = next

		calls = append(calls, call{name: name, args: splitArgs(rawArgs)})
	}

	return collection, calls, nil
}

// scanParens consumes a balanced parenthesized group starting at open and
// returns its inner text plus the index after the closing paren. Strings and
// nested brackets are respected.
func scanParens(text string, open int) (string, int, error) {
	depth := 0
	inString := false
	var quote byte

	for i := open; i < len(text); i++ {
		ch := text[i]

		if inString {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				inString = false
			}
			continue
		}

		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 && ch == ')' {
				return text[open+1 : i], i + 1, nil
			}
			if depth < 0 {
				return "", 0, fmt.Errorf("unbalanced brackets at position %d", i)
			}
		}
	}

	return "", 0, fmt.Errorf("unterminated call starting at position %d", open)
}

// splitArgs splits a call's inner text at top-level commas.
func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var args []string
	depth := 0
	inString := false
	var quote byte
	start := 0

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(raw[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(raw[start:]))

	return args
}

func parseObjectArg(op, raw string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("argument to %q must be a JSON object literal: %w", op, err)
	}
	return obj, nil
}

func parseArrayArg(op, raw string) ([]any, error) {
	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, fmt.Errorf("argument to %q must be a JSON array literal: %w", op, err)
	}
	return arr, nil
}

func parseIntArg(op, raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("argument to %q must be an integer literal: %w", op, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("argument to %q must not be negative", op)
	}
	return n, nil
}

// resolveValues rewrites {{name}} placeholders inside the parsed argument
// literals. A string that is exactly one placeholder keeps the runtime
// value's native type per the binding's declared type; embedded placeholders
// resolve as plain text.
func resolveValues(value any, bindings []models.VariableBinding, runtime map[string]string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			resolved, err := resolveValues(item, bindings, runtime)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := resolveValues(item, bindings, runtime)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return resolveString(v, bindings, runtime)
	default:
		return value, nil
	}
}

// resolveString handles one string value from a query literal. Document
// values take the chosen value verbatim; the SQL-literal coercion never
// applies here, it would corrupt values containing quotes.
func resolveString(s string, bindings []models.VariableBinding, runtime map[string]string) (any, error) {
	names := variables.Placeholders(s)
	if len(names) == 0 {
		return s, nil
	}

	// Whole-value placeholder: keep the native type of the chosen value.
	if len(names) == 1 && strings.TrimSpace(s) == "{{"+names[0]+"}}" {
		resolved, err := variables.ResolveRaw(strings.TrimSpace(s), bindings, runtime)
		if err != nil {
			return nil, err
		}
		return nativeValue(resolved, bindingType(names[0], bindings)), nil
	}

	// Embedded placeholders resolve as plain text.
	return variables.ResolveRaw(s, bindings, runtime)
}

func bindingType(name string, bindings []models.VariableBinding) models.VariableType {
	for _, b := range bindings {
		if b.Name == name {
			return b.Type
		}
	}
	return ""
}

// nativeValue converts a raw chosen value into a JSON-native value per the
// binding's declared type.
func nativeValue(raw string, varType models.VariableType) any {
	switch varType {
	case models.VariableTypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return float64(0)
	case models.VariableTypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		return err == nil && b
	default:
		return raw
	}
}
