package saas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
)

func newEventsConnector(t *testing.T, serverURL string) *EventsConnector {
	t.Helper()
	conn := &models.Connection{
		Type:   "mixpanel",
		Config: map[string]any{"host": serverURL},
	}
	connector, err := NewEventsConnector(conn, zap.NewNop())
	require.NoError(t, err)
	return connector
}

func TestEventsFetch_QueryPostedAsForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "function main() { return Events({}) }", r.PostFormValue("script"))
		_ = json.NewEncoder(w).Encode([]any{map[string]any{"event": "signup"}})
	}))
	defer server.Close()

	connector := newEventsConnector(t, server.URL)
	req := &models.DataRequest{Query: "function main() { return Events({}) }"}
	result, err := connector.Fetch(context.Background(), req, connectors.FetchOptions{})

	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "signup", result.Data[0]["event"])
}

func TestEventsFetch_ExplicitBodyPostedAsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode([]any{})
	}))
	defer server.Close()

	connector := newEventsConnector(t, server.URL)
	req := &models.DataRequest{Body: `{"event": "signup"}`}
	result, err := connector.Fetch(context.Background(), req, connectors.FetchOptions{})

	require.NoError(t, err)
	assert.Empty(t, result.Data)
}
