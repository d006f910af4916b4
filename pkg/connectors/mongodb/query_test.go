package mongodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartops/chart-engine/pkg/models"
)

func TestParseQuery_Find(t *testing.T) {
	q, err := ParseQuery(`users.find({"status": "active"})`)

	require.NoError(t, err)
	assert.Equal(t, "users", q.Collection)
	assert.Equal(t, map[string]any{"status": "active"}, q.Filter)
	assert.False(t, q.Count)
}

func TestParseQuery_FindAllWhenNoArgs(t *testing.T) {
	q, err := ParseQuery(`users.find()`)

	require.NoError(t, err)
	assert.Equal(t, "users", q.Collection)
	assert.Nil(t, q.Filter)
}

func TestParseQuery_FullChain(t *testing.T) {
	q, err := ParseQuery(`events.find({"type": "click"}).sort({"createdAt": -1}).project({"type": 1}).skip(10).limit(100)`)

	require.NoError(t, err)
	assert.Equal(t, "events", q.Collection)
	assert.Equal(t, map[string]any{"type": "click"}, q.Filter)
	assert.Equal(t, map[string]any{"createdAt": float64(-1)}, q.Sort)
	assert.Equal(t, map[string]any{"type": float64(1)}, q.Projection)
	assert.Equal(t, int64(10), q.Skip)
	assert.Equal(t, int64(100), q.Limit)
}

func TestParseQuery_Aggregate(t *testing.T) {
	q, err := ParseQuery(`events.aggregate([{"$group": {"_id": "$type", "n": {"$sum": 1}}}])`)

	require.NoError(t, err)
	assert.Equal(t, "events", q.Collection)
	require.Len(t, q.Pipeline, 1)
}

func TestParseQuery_Count(t *testing.T) {
	q, err := ParseQuery(`users.find({"active": true}).count()`)
	require.Error(t, err) // count and find are both reads

	q, err = ParseQuery(`users.count()`)
	require.NoError(t, err)
	assert.True(t, q.Count)
}

func TestParseQuery_NestedBracketsAndStrings(t *testing.T) {
	q, err := ParseQuery(`logs.find({"msg": {"$regex": "a).b"}, "tags": {"$in": ["x", "y"]}})`)

	require.NoError(t, err)
	assert.Equal(t, "logs", q.Collection)
	assert.Contains(t, q.Filter, "msg")
	assert.Contains(t, q.Filter, "tags")
}

func TestParseQuery_Rejections(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"disallowed operation", `users.drop()`},
		{"disallowed mutation", `users.insertOne({"a": 1})`},
		{"code instead of literal", `users.find(function() { return true })`},
		{"non-literal argument", `users.find(db.secrets.find())`},
		{"two reads", `users.find({}).aggregate([])`},
		{"missing collection", `.find({})`},
		{"operation without call", `users.find`},
		{"unbalanced parens", `users.find({"a": 1}`},
		{"negative limit", `users.find().limit(-1)`},
		{"limit non-integer", `users.find().limit("10; DROP")`},
		{"trailing garbage", `users.find({}) ; db.dropDatabase()`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestResolveValues_WholeValuePlaceholderKeepsNativeType(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "minAge", Type: models.VariableTypeNumber},
		{Name: "active", Type: models.VariableTypeBoolean},
		{Name: "name", Type: models.VariableTypeString},
	}
	runtime := map[string]string{"minAge": "21", "active": "true", "name": "ada"}

	filter := map[string]any{
		"age":    map[string]any{"$gte": "{{minAge}}"},
		"active": "{{active}}",
		"name":   "{{name}}",
	}

	resolved, err := resolveValues(filter, bindings, runtime)
	require.NoError(t, err)

	obj := resolved.(map[string]any)
	assert.Equal(t, float64(21), obj["age"].(map[string]any)["$gte"])
	assert.Equal(t, true, obj["active"])
	assert.Equal(t, "ada", obj["name"])
}

func TestResolveValues_EmbeddedPlaceholderResolvesAsText(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "prefix", Type: models.VariableTypeString},
	}

	resolved, err := resolveValues(map[string]any{"name": "user-{{prefix}}-x"}, bindings,
		map[string]string{"prefix": "eu"})

	require.NoError(t, err)
	assert.Equal(t, "user-eu-x", resolved.(map[string]any)["name"])
}

func TestResolveValues_QuotesInValuesSurviveVerbatim(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "name", Type: models.VariableTypeString},
		{Name: "city", Type: models.VariableTypeString},
	}
	runtime := map[string]string{"name": "O'Brien", "city": "Paris"}

	// Document values must never pick up SQL-literal quoting: apostrophes in
	// the value stay single, apostrophes around a placeholder stay put.
	filter := map[string]any{
		"name": "{{name}}",
		"note": "it's in {{city}}",
	}

	resolved, err := resolveValues(filter, bindings, runtime)
	require.NoError(t, err)

	obj := resolved.(map[string]any)
	assert.Equal(t, "O'Brien", obj["name"])
	assert.Equal(t, "it's in Paris", obj["note"])
}

func TestResolveValues_RequiredPlaceholderWithoutValueFails(t *testing.T) {
	bindings := []models.VariableBinding{
		{Name: "tenant", Required: true},
	}

	_, err := resolveValues(map[string]any{"tenant": "{{tenant}}"}, bindings, nil)
	assert.Error(t, err)
}
