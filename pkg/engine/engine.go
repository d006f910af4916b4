// Package engine executes a single data request against its connection:
// resolve variables, dispatch to the right connector, and surface any
// follow-up writes as explicit side effects for the caller to run.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chartops/chart-engine/pkg/connectors"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
	"github.com/chartops/chart-engine/pkg/variables"
)

// Engine runs data requests. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	factory      connectors.ConnectorFactory
	dataRequests repositories.DataRequestRepository
	logger       *zap.Logger
}

// NewEngine creates an execution engine.
func NewEngine(factory connectors.ConnectorFactory, dataRequests repositories.DataRequestRepository, logger *zap.Logger) *Engine {
	return &Engine{
		factory:      factory,
		dataRequests: dataRequests,
		logger:       logger.Named("engine"),
	}
}

// Execute resolves the request's variables, dispatches it to the connector
// for conn, and returns the rows plus any pending side effects. Variable
// resolution happens before any connector is created: a missing required
// variable fails without contacting the source.
//
// Side effects are returned, not run. Callers decide whether and when to run
// them (see RunSideEffects); a refresh that only previews data can drop them.
func (e *Engine) Execute(ctx context.Context, req *models.DataRequest, conn *models.Connection, runtime map[string]string, limit int) (*connectors.FetchResult, []SideEffect, error) {
	resolved, err := e.resolveRequest(req, conn, runtime)
	if err != nil {
		return nil, nil, err
	}

	connector, err := e.factory.NewConnector(ctx, conn)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := connector.Close(); cerr != nil {
			e.logger.Warn("connector close failed",
				zap.String("connection_id", conn.ID.String()),
				zap.Error(cerr))
		}
	}()

	result, err := connector.Fetch(ctx, resolved, connectors.FetchOptions{
		Variables: runtime,
		Limit:     limit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch failed for data request %s: %w", req.ID, err)
	}

	var effects []SideEffect
	if result.Configuration != nil {
		effects = append(effects, e.persistConfiguration(req.ID, result.Configuration))
	}

	return result, effects, nil
}

// resolveRequest returns a copy of req with placeholders substituted. The
// shared model is never mutated; concurrent refreshes of the same request
// each work on their own copy.
func (e *Engine) resolveRequest(req *models.DataRequest, conn *models.Connection, runtime map[string]string) (*models.DataRequest, error) {
	resolved := *req

	if conn.IsSQLDialect() {
		query, err := variables.Resolve(req.Query, req.Variables, runtime)
		if err != nil {
			return nil, err
		}
		resolved.Query = query
		return &resolved, nil
	}

	// Document dialects resolve structurally inside the connector, from the
	// runtime values in FetchOptions. HTTP routes get raw substitution here:
	// quoting would corrupt a URL path.
	if resolved.Route != "" {
		route, err := variables.ResolveRaw(req.Route, req.Variables, runtime)
		if err != nil {
			return nil, err
		}
		resolved.Route = route
	}
	if resolved.Body != "" && conn.Type != "mongodb" {
		body, err := variables.ResolveRaw(req.Body, req.Variables, runtime)
		if err != nil {
			return nil, err
		}
		resolved.Body = body
	}

	return &resolved, nil
}

// persistConfiguration builds the schema-hint write as a named side effect.
// The write is best effort: a failure is logged by RunSideEffects and never
// fails the fetch that produced the hints.
func (e *Engine) persistConfiguration(requestID uuid.UUID, configuration map[string]any) SideEffect {
	return SideEffect{
		Name: fmt.Sprintf("persist_configuration_%s", requestID),
		Run: func(ctx context.Context) error {
			return e.dataRequests.UpdateConfiguration(ctx, requestID, configuration)
		},
	}
}
