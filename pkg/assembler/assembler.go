// Package assembler orchestrates a full chart refresh: fan out every dataset
// binding's fetch, fan in preserving binding order, plot, persist, and hand
// the follow-up writes off as outbound tasks.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chartops/chart-engine/pkg/cache"
	"github.com/chartops/chart-engine/pkg/engine"
	"github.com/chartops/chart-engine/pkg/models"
	"github.com/chartops/chart-engine/pkg/repositories"
)

// ConnectionGetter loads a connection with its config decrypted.
// Implemented by services.ConnectionService.
type ConnectionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Connection, error)
}

// Plotter turns merged binding results into the chart's computed payload.
// The visual computation itself lives outside the refresh pipeline.
type Plotter interface {
	Plot(chart *models.Chart, results []BindingResult) (map[string]any, error)
}

// AlertChecker evaluates alert rules against a freshly computed payload.
type AlertChecker interface {
	CheckChart(ctx context.Context, chart *models.Chart, chartData map[string]any) error
}

// Options controls one assembly run.
type Options struct {
	// UserID scopes the per-user cache write. Nil means no user context and
	// therefore no cache write.
	UserID *uuid.UUID

	// Variables are caller-supplied runtime values, applied to every binding.
	Variables map[string]string

	// NoSource prefers cached per-binding payloads over contacting sources.
	NoSource bool

	// Ephemeral skips persisting the computed payload onto the chart.
	Ephemeral bool
}

// BindingResult is one dataset binding's fetched rows, in binding order.
type BindingResult struct {
	DatasetID uuid.UUID        `json:"dataset_id"`
	Position  int              `json:"position"`
	Rows      []map[string]any `json:"rows"`
	FromCache bool             `json:"from_cache"`
}

// Result is a completed assembly.
type Result struct {
	Chart     *models.Chart
	ChartData map[string]any
	Bindings  []BindingResult
}

// Assembler runs chart refreshes. Safe for concurrent use.
type Assembler struct {
	charts       repositories.ChartRepository
	dataRequests repositories.DataRequestRepository
	connections  ConnectionGetter
	engine       *engine.Engine
	store        *cache.Store
	handoff      cache.HandoffCache
	plotter      Plotter
	alerts       AlertChecker
	logger       *zap.Logger
}

// New creates an assembler. handoff may be nil; fresh payloads are then not
// handed off for interactive reads.
func New(
	charts repositories.ChartRepository,
	dataRequests repositories.DataRequestRepository,
	connections ConnectionGetter,
	eng *engine.Engine,
	store *cache.Store,
	handoff cache.HandoffCache,
	plotter Plotter,
	alerts AlertChecker,
	logger *zap.Logger,
) *Assembler {
	return &Assembler{
		charts:       charts,
		dataRequests: dataRequests,
		connections:  connections,
		engine:       eng,
		store:        store,
		handoff:      handoff,
		plotter:      plotter,
		alerts:       alerts,
		logger:       logger.Named("assembler"),
	}
}

// RefreshChart runs a full, persisted refresh. This is the entry point the
// scheduler's jobs use.
func (a *Assembler) RefreshChart(ctx context.Context, chartID uuid.UUID) error {
	_, err := a.Assemble(ctx, chartID, Options{})
	return err
}

// Assemble refreshes one chart. All bindings are fetched concurrently and
// collected in binding order; if any binding fails the whole assembly fails.
// Follow-up writes (per-request schema hints, cache writes, alert checks)
// run in the background after the assembly succeeds, isolated from each
// other and from the caller.
func (a *Assembler) Assemble(ctx context.Context, chartID uuid.UUID, opts Options) (*Result, error) {
	chart, err := a.charts.GetWithBindings(ctx, chartID)
	if err != nil {
		return nil, err
	}

	results := make([]BindingResult, len(chart.Datasets))
	effectsPerBinding := make([][]engine.SideEffect, len(chart.Datasets))

	g, gctx := errgroup.WithContext(ctx)
	for i, binding := range chart.Datasets {
		g.Go(func() error {
			result, effects, err := a.fetchBinding(gctx, binding, opts)
			if err != nil {
				return fmt.Errorf("binding %d (dataset %s): %w", binding.Position, binding.DatasetID, err)
			}
			results[i] = *result
			effectsPerBinding[i] = effects
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	chartData, err := a.plotter.Plot(chart, results)
	if err != nil {
		return nil, fmt.Errorf("failed to plot chart %s: %w", chartID, err)
	}

	if !opts.Ephemeral {
		if err := a.charts.UpdateRefreshResult(ctx, chartID, chartData, time.Now()); err != nil {
			return nil, err
		}
	}

	var effects []engine.SideEffect
	for _, bindingEffects := range effectsPerBinding {
		effects = append(effects, bindingEffects...)
	}
	if opts.UserID != nil {
		effects = append(effects, a.userCacheEffect(*opts.UserID, chartID, chartData))
	}
	if a.handoff != nil && !opts.Ephemeral {
		effects = append(effects, a.handoffEffect(chartID, chartData))
	}
	if !chart.IsTable() {
		effects = append(effects, a.alertEffect(chart, chartData))
	}

	if len(effects) > 0 {
		go engine.RunSideEffects(context.WithoutCancel(ctx), a.logger, effects)
	}

	return &Result{Chart: chart, ChartData: chartData, Bindings: results}, nil
}

// fetchBinding fetches all data requests of one binding's dataset and
// concatenates their rows. In cache-preferring mode a per-request cache hit
// replaces the fetch entirely.
func (a *Assembler) fetchBinding(ctx context.Context, binding models.ChartDatasetBinding, opts Options) (*BindingResult, []engine.SideEffect, error) {
	variables := bindingVariables(opts.Variables, binding.VariableOverrides)

	requests, err := a.dataRequests.ListByDataset(ctx, binding.DatasetID)
	if err != nil {
		return nil, nil, err
	}

	result := BindingResult{
		DatasetID: binding.DatasetID,
		Position:  binding.Position,
		Rows:      []map[string]any{},
		FromCache: true,
	}

	var effects []engine.SideEffect
	for _, req := range requests {
		if opts.NoSource {
			if payload, ok := a.store.Get(ctx, models.DataRequestCacheKey(req.ID)); ok {
				result.Rows = append(result.Rows, rowsFromPayload(payload)...)
				continue
			}
		}

		if req.ConnectionID == nil {
			return nil, nil, fmt.Errorf("data request %s has no connection", req.ID)
		}

		conn, err := a.connections.Get(ctx, *req.ConnectionID)
		if err != nil {
			return nil, nil, err
		}

		fetched, fetchEffects, err := a.engine.Execute(ctx, req, conn, variables, req.ItemsLimit)
		if err != nil {
			return nil, nil, err
		}

		result.FromCache = false
		result.Rows = append(result.Rows, fetched.Data...)
		effects = append(effects, fetchEffects...)
		effects = append(effects, a.requestCacheEffect(req.ID, fetched.Data))
	}

	if len(requests) == 0 {
		result.FromCache = false
	}

	return &result, effects, nil
}

// bindingVariables merges caller variables with the binding's overrides.
// Overrides fill only keys the caller left unset.
func bindingVariables(callerVars, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(callerVars)+len(overrides))
	for k, v := range callerVars {
		merged[k] = v
	}
	for k, v := range overrides {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}

// requestCacheEffect caches one request's rows under the per-request key, so
// later cache-preferring runs can skip the source.
func (a *Assembler) requestCacheEffect(requestID uuid.UUID, rows []map[string]any) engine.SideEffect {
	return engine.SideEffect{
		Name: fmt.Sprintf("cache_data_request_%s", requestID),
		Run: func(ctx context.Context) error {
			return a.store.Put(ctx, models.DataRequestCacheKey(requestID), payloadFromRows(rows))
		},
	}
}

// userCacheEffect caches the computed payload under the per-user chart key.
func (a *Assembler) userCacheEffect(userID, chartID uuid.UUID, chartData map[string]any) engine.SideEffect {
	return engine.SideEffect{
		Name: fmt.Sprintf("cache_user_chart_%s_%s", userID, chartID),
		Run: func(ctx context.Context) error {
			return a.store.Put(ctx, models.UserChartCacheKey(userID.String(), chartID), chartData)
		},
	}
}

// handoffEffect publishes the fresh payload to the short-lived hand-off
// cache so an interactive read right after a scheduled refresh skips the
// chart table.
func (a *Assembler) handoffEffect(chartID uuid.UUID, chartData map[string]any) engine.SideEffect {
	return engine.SideEffect{
		Name: fmt.Sprintf("handoff_chart_%s", chartID),
		Run: func(ctx context.Context) error {
			payload, err := json.Marshal(chartData)
			if err != nil {
				return err
			}
			return a.handoff.Put(ctx, cache.ChartHandoffKey(chartID), payload)
		},
	}
}

// alertEffect evaluates alerts against the fresh payload.
func (a *Assembler) alertEffect(chart *models.Chart, chartData map[string]any) engine.SideEffect {
	return engine.SideEffect{
		Name: fmt.Sprintf("check_alerts_%s", chart.ID),
		Run: func(ctx context.Context) error {
			return a.alerts.CheckChart(ctx, chart, chartData)
		},
	}
}

// payloadFromRows wraps rows for the cache, which stores a single object.
func payloadFromRows(rows []map[string]any) map[string]any {
	anyRows := make([]any, len(rows))
	for i, row := range rows {
		anyRows[i] = row
	}
	return map[string]any{"data": anyRows}
}

// rowsFromPayload unwraps a cached payload back into rows. Cached JSON comes
// back as []any; anything that is not a row object is dropped.
func rowsFromPayload(payload map[string]any) []map[string]any {
	items, ok := payload["data"].([]any)
	if !ok {
		return nil
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
