package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/apperrors"
	"github.com/chartops/chart-engine/pkg/models"
)

type stubConnector struct {
	selector string
}

func (s *stubConnector) Fetch(ctx context.Context, req *models.DataRequest, opts FetchOptions) (*FetchResult, error) {
	return &FetchResult{Data: []map[string]any{{"selector": s.selector}}}, nil
}

func (s *stubConnector) Close() error { return nil }

func registerStub(selector string) {
	Register(ConnectorRegistration{
		Info: ConnectorInfo{Selector: selector, DisplayName: selector},
		Factory: func(ctx context.Context, conn *models.Connection, logger *zap.Logger) (Connector, error) {
			return &stubConnector{selector: selector}, nil
		},
	})
}

func TestFactory_SelectsBySelector(t *testing.T) {
	registerStub("test:alpha")
	registerStub("test:beta")

	factory := NewConnectorFactory(zap.NewNop())

	conn := &models.Connection{Type: "test", SubType: "beta"}
	connector, err := factory.NewConnector(context.Background(), conn)
	require.NoError(t, err)
	defer func() { _ = connector.Close() }()

	result, err := connector.Fetch(context.Background(), &models.DataRequest{}, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test:beta", result.Data[0]["selector"])
}

func TestFactory_BareTypeSelector(t *testing.T) {
	registerStub("testbare")

	factory := NewConnectorFactory(zap.NewNop())

	connector, err := factory.NewConnector(context.Background(), &models.Connection{Type: "testbare"})
	require.NoError(t, err)
	_ = connector.Close()
}

func TestFactory_UnsupportedType(t *testing.T) {
	factory := NewConnectorFactory(zap.NewNop())

	_, err := factory.NewConnector(context.Background(), &models.Connection{Type: "carrier-pigeon"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedConnectionType)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestIsRegistered(t *testing.T) {
	registerStub("test:registered")

	assert.True(t, IsRegistered("test:registered"))
	assert.False(t, IsRegistered("test:missing"))
}

func TestRegisteredConnectors_ContainsInfo(t *testing.T) {
	registerStub("test:listed")

	var found bool
	for _, info := range RegisteredConnectors() {
		if info.Selector == "test:listed" {
			found = true
		}
	}
	assert.True(t, found)
}
