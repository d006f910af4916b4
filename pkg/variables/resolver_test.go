package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

func TestResolve_RuntimeValueWins(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "status", Type: models.VariableTypeString, Default: "inactive"},
	}

	resolved, err := Resolve("SELECT * FROM events WHERE status = {{status}}", bindings,
		map[string]string{"status": "active"})

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events WHERE status = 'active'", resolved)
}

func TestResolve_DefaultUsedWhenRuntimeMissing(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "status", Type: models.VariableTypeString, Default: "inactive"},
	}

	resolved, err := Resolve("status = {{status}}", bindings, nil)

	require.NoError(t, err)
	assert.Equal(t, "status = 'inactive'", resolved)
}

func TestResolve_EmptyRuntimeValueFallsBackToDefault(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "status", Type: models.VariableTypeString, Default: "inactive"},
	}

	resolved, err := Resolve("status = {{status}}", bindings,
		map[string]string{"status": ""})

	require.NoError(t, err)
	assert.Equal(t, "status = 'inactive'", resolved)
}

func TestResolve_RequiredWithoutValueFails(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "status", Type: models.VariableTypeString, Required: true},
	}

	_, err := Resolve("SELECT * FROM events WHERE status = {{status}}", bindings, map[string]string{})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRequiredVariable)
	assert.Contains(t, err.Error(), "status")
}

func TestResolve_OptionalWithoutValueIsRemoved(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "filter", Type: models.VariableTypeString},
	}

	resolved, err := Resolve("SELECT * FROM events {{filter}}", bindings, nil)

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events ", resolved)
}

func TestResolve_UndeclaredPlaceholderIsRemoved(t *testing.T) {
	resolved, err := Resolve("a {{unknown}} b", nil, nil)

	require.NoError(t, err)
	assert.Equal(t, "a  b", resolved)
}

func TestResolve_UndeclaredPlaceholderWithRuntimeValue(t *testing.T) {
	// No binding means no declared type; the value is treated as a string.
	resolved, err := Resolve("a = {{x}}", nil, map[string]string{"x": "1"})

	require.NoError(t, err)
	assert.Equal(t, "a = '1'", resolved)
}

func TestResolve_WhitespaceInsideBraces(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "status", Type: models.VariableTypeString},
	}

	resolved, err := Resolve("s = {{ status }}", bindings, map[string]string{"status": "ok"})

	require.NoError(t, err)
	assert.Equal(t, "s = 'ok'", resolved)
}

func TestResolve_MultiplePlaceholders(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "from", Type: models.VariableTypeDate},
		{Name: "limit", Type: models.VariableTypeNumber},
	}

	resolved, err := Resolve("d >= {{from}} LIMIT {{limit}}", bindings,
		map[string]string{"from": "2024-01-01", "limit": "50"})

	require.NoError(t, err)
	assert.Equal(t, "d >= '2024-01-01' LIMIT 50", resolved)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		varType models.VariableType
		want    string
	}{
		{"string quoted", "abc", models.VariableTypeString, "'abc'"},
		{"string embedded quote doubled", "O'Brien", models.VariableTypeString, "'O''Brien'"},
		{"date quoted", "2024-06-01", models.VariableTypeDate, "'2024-06-01'"},
		{"number passes through", "42.5", models.VariableTypeNumber, "42.5"},
		{"non-numeric number becomes zero", "abc", models.VariableTypeNumber, "0"},
		{"boolean true", "true", models.VariableTypeBoolean, "TRUE"},
		{"boolean mixed case", "True", models.VariableTypeBoolean, "TRUE"},
		{"boolean false", "false", models.VariableTypeBoolean, "FALSE"},
		{"boolean garbage is false", "yes please", models.VariableTypeBoolean, "FALSE"},
		{"untyped treated as string", "x", "", "'x'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.value, tt.varType))
		})
	}
}

func TestResolveRaw_NoCoercion(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "userId", Type: models.VariableTypeString},
	}

	resolved, err := ResolveRaw("users/{{userId}}/events", bindings,
		map[string]string{"userId": "u-42"})

	require.NoError(t, err)
	assert.Equal(t, "users/u-42/events", resolved)
}

func TestResolveRaw_RequiredStillEnforced(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "userId", Required: true},
	}

	_, err := ResolveRaw("users/{{userId}}", bindings, nil)

	assert.ErrorIs(t, err, apperrors.ErrRequiredVariable)
}

func TestPlaceholders(t *testing.T) {
	names := Placeholders("{{a}} {{b}} {{a}} {{ c }}")
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestPlaceholders_None(t *testing.T) {
	assert.Empty(t, Placeholders("SELECT 1"))
}
