package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// fakeConnector records the request it was handed.
type fakeConnector struct {
	gotQuery string
	gotRoute string
	gotOpts  connectors.FetchOptions
	result   *connectors.FetchResult
	err      error
	closed   bool
}

func (f *fakeConnector) Fetch(ctx context.Context, req *models.DataRequest, opts connectors.FetchOptions) (*connectors.FetchResult, error) {
	f.gotQuery = req.Query
	f.gotRoute = req.Route
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &connectors.FetchResult{Data: []map[string]any{}}, nil
}

func (f *fakeConnector) Close() error {
	f.closed = true
	return nil
}

// fakeFactory hands out one fakeConnector and counts invocations.
type fakeFactory struct {
	connector *fakeConnector
	calls     int
}

func (f *fakeFactory) NewConnector(ctx context.Context, conn *models.Connection) (connectors.Connector, error) {
	f.calls++
	return f.connector, nil
}

func (f *fakeFactory) ListTypes() []connectors.ConnectorInfo { return nil }

// fakeDataRequestRepo records configuration updates.
type fakeDataRequestRepo struct {
	mu      sync.Mutex
	updates map[uuid.UUID]map[string]any
	err     error
}

func newFakeDataRequestRepo() *fakeDataRequestRepo {
	return &fakeDataRequestRepo{updates: make(map[uuid.UUID]map[string]any)}
}

func (f *fakeDataRequestRepo) Create(ctx context.Context, req *models.DataRequest) error { return nil }

func (f *fakeDataRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DataRequest, error) {
	return nil, apperrors.ErrNotFound
}

func (f *fakeDataRequestRepo) ListByDataset(ctx context.Context, datasetID uuid.UUID) ([]*models.DataRequest, error) {
	return nil, nil
}

func (f *fakeDataRequestRepo) UpdateConfiguration(ctx context.Context, id uuid.UUID, configuration map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates[id] = configuration
	return nil
}

func (f *fakeDataRequestRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ repositories.DataRequestRepository = (*fakeDataRequestRepo)(nil)

func sqlConnection() *models.Connection {
	return &models.Connection{ID: uuid.New(), Type: "postgres"}
}

func TestExecute_RequiredVariableFailsBeforeConnector(t *testing.T) {
	factory := &fakeFactory{connector: &fakeConnector{}}
	eng := NewEngine(factory, newFakeDataRequestRepo(), zap.NewNop())

	req := &models.DataRequest{
		ID:    uuid.New(),
		Query: "SELECT * FROM events WHERE status = {{status}}",
		Variables: []models.VariableBinding{
			{Name: "status", Type: models.VariableTypeString, Required: true},
		},
	}

	_, _, err := eng.Execute(context.Background(), req, sqlConnection(), map[string]string{}, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRequiredVariable)
	assert.Equal(t, 0, factory.calls, "connector must not be contacted when resolution fails")
}

func TestExecute_ResolvedQueryReachesConnector(t *testing.T) {
	connector := &fakeConnector{}
	eng := NewEngine(&fakeFactory{connector: connector}, newFakeDataRequestRepo(), zap.NewNop())

	req := &models.DataRequest{
		ID:    uuid.New(),
		Query: "SELECT * FROM events WHERE status = {{status}}",
		Variables: []models.VariableBinding{
			{Name: "status", Type: models.VariableTypeString, Required: true},
		},
	}

	_, _, err := eng.Execute(context.Background(), req, sqlConnection(),
		map[string]string{"status": "active"}, 0)

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events WHERE status = 'active'", connector.gotQuery)
	assert.True(t, connector.closed)
	// The shared model stays untouched.
	assert.Contains(t, req.Query, "{{status}}")
}

func TestExecute_RouteResolvedRawForHTTPDialects(t *testing.T) {
	connector := &fakeConnector{}
	eng := NewEngine(&fakeFactory{connector: connector}, newFakeDataRequestRepo(), zap.NewNop())

	req := &models.DataRequest{
		ID:    uuid.New(),
		Route: "users/{{userId}}/events",
		Variables: []models.VariableBinding{
			{Name: "userId", Type: models.VariableTypeString},
		},
	}
	conn := &models.Connection{ID: uuid.New(), Type: "api"}

	_, _, err := eng.Execute(context.Background(), req, conn,
		map[string]string{"userId": "u-42"}, 0)

	require.NoError(t, err)
	assert.Equal(t, "users/u-42/events", connector.gotRoute, "routes must not be SQL-quoted")
}

func TestExecute_RuntimeVariablesReachConnector(t *testing.T) {
	connector := &fakeConnector{}
	eng := NewEngine(&fakeFactory{connector: connector}, newFakeDataRequestRepo(), zap.NewNop())

	req := &models.DataRequest{ID: uuid.New(), Query: `users.find({"a": "{{a}}"})`}
	conn := &models.Connection{ID: uuid.New(), Type: "mongodb"}

	_, _, err := eng.Execute(context.Background(), req, conn, map[string]string{"a": "1"}, 25)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, connector.gotOpts.Variables)
	assert.Equal(t, 25, connector.gotOpts.Limit)
	// Document query text resolves inside the connector, not here.
	assert.Contains(t, connector.gotQuery, "{{a}}")
}

func TestExecute_ConnectorErrorPropagates(t *testing.T) {
	connector := &fakeConnector{err: errors.New("connection refused")}
	eng := NewEngine(&fakeFactory{connector: connector}, newFakeDataRequestRepo(), zap.NewNop())

	req := &models.DataRequest{ID: uuid.New(), Query: "SELECT 1"}

	_, _, err := eng.Execute(context.Background(), req, sqlConnection(), nil, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, connector.closed)
}

func TestExecute_SchemaConfigurationBecomesSideEffect(t *testing.T) {
	hints := map[string]any{"fields": map[string]any{"id": "int"}}
	connector := &fakeConnector{result: &connectors.FetchResult{
		Data:          []map[string]any{{"id": 1}},
		Configuration: hints,
	}}
	repo := newFakeDataRequestRepo()
	eng := NewEngine(&fakeFactory{connector: connector}, repo, zap.NewNop())

	req := &models.DataRequest{ID: uuid.New(), Query: "SELECT 1"}

	_, effects, err := eng.Execute(context.Background(), req, sqlConnection(), nil, 0)
	require.NoError(t, err)
	require.Len(t, effects, 1)

	// Nothing written until the caller runs the effect.
	repo.mu.Lock()
	assert.Empty(t, repo.updates)
	repo.mu.Unlock()

	RunSideEffects(context.Background(), zap.NewNop(), effects)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, hints, repo.updates[req.ID])
}

func TestExecute_NoConfigurationNoSideEffects(t *testing.T) {
	connector := &fakeConnector{}
	eng := NewEngine(&fakeFactory{connector: connector}, newFakeDataRequestRepo(), zap.NewNop())

	_, effects, err := eng.Execute(context.Background(),
		&models.DataRequest{ID: uuid.New(), Query: "SELECT 1"}, sqlConnection(), nil, 0)

	require.NoError(t, err)
	assert.Empty(t, effects)
}

func TestRunSideEffects_IsolatesFailures(t *testing.T) {
	var ran []string
	effects := []SideEffect{
		{Name: "first", Run: func(ctx context.Context) error {
			ran = append(ran, "first")
			return errors.New("boom")
		}},
		{Name: "second", Run: func(ctx context.Context) error {
			ran = append(ran, "second")
			return nil
		}},
	}

	RunSideEffects(context.Background(), zap.NewNop(), effects)

	assert.Equal(t, []string{"first", "second"}, ran)
}
