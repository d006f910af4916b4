package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

type fakeDatasetRepo struct {
	byID   map[uuid.UUID]*models.Dataset
	byTeam map[uuid.UUID][]*models.Dataset
}

func (f *fakeDatasetRepo) Create(ctx context.Context, dataset *models.Dataset) error { return nil }

func (f *fakeDatasetRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	dataset, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return dataset, nil
}

func (f *fakeDatasetRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*models.Dataset, error) {
	return f.byTeam[teamID], nil
}

func (f *fakeDatasetRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ repositories.DatasetRepository = (*fakeDatasetRepo)(nil)

func newDatasetServer(repo *fakeDatasetRepo) *httptest.Server {
	mux := http.NewServeMux()
	NewDatasetHandler(repo, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestDatasets_GetByID(t *testing.T) {
	dataset := &models.Dataset{ID: uuid.New(), TeamID: uuid.New(), Name: "signups"}
	server := newDatasetServer(&fakeDatasetRepo{byID: map[uuid.UUID]*models.Dataset{dataset.ID: dataset}})
	defer server.Close()

	resp, err := http.Get(server.URL + "/datasets?dataset_id=" + dataset.ID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Dataset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, dataset.ID, got.ID)
	assert.Equal(t, "signups", got.Name)
}

func TestDatasets_GetUnknownID(t *testing.T) {
	server := newDatasetServer(&fakeDatasetRepo{byID: map[uuid.UUID]*models.Dataset{}})
	defer server.Close()

	resp, err := http.Get(server.URL + "/datasets?dataset_id=" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDatasets_ListByTeam(t *testing.T) {
	teamID := uuid.New()
	repo := &fakeDatasetRepo{byTeam: map[uuid.UUID][]*models.Dataset{
		teamID: {
			{ID: uuid.New(), TeamID: teamID, Name: "signups"},
			{ID: uuid.New(), TeamID: teamID, Name: "revenue"},
		},
	}}
	server := newDatasetServer(repo)
	defer server.Close()

	resp, err := http.Get(server.URL + "/datasets?team_id=" + teamID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Datasets []models.Dataset `json:"datasets"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Datasets, 2)
}

func TestDatasets_BadRequests(t *testing.T) {
	server := newDatasetServer(&fakeDatasetRepo{})
	defer server.Close()

	for _, path := range []string{
		"/datasets",
		"/datasets?dataset_id=not-a-uuid",
		"/datasets?team_id=not-a-uuid",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}
