// Package estimator recommends operation times for a new production order
// from the history of earlier orders of the same drawing.
package estimator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Source tells which path produced a Result.
type Source string

const (
	// SourceHistory means at least one order matched the drawing number.
	SourceHistory Source = "history"
	// SourceFallback means no order matched and generic statistics were used.
	SourceFallback Source = "fallback"
)

// Request asks for suggestions for a new order.
type Request struct {
	DrawingNumber string
	Quantity      int
	WorkType      string
}

// Validate rejects empty drawing numbers and quantities outside 1..MaxQuantity.
// The drawing number is otherwise used as given.
func (r Request) Validate() error {
	if r.DrawingNumber == "" {
		return &ValidationError{Field: "drawingNumber", Reason: "must not be empty"}
	}
	if r.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if r.Quantity > MaxQuantity {
		return &ValidationError{Field: "quantity", Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	}
	return nil
}

// Result is the outcome of a suggestion request.
//
// Suggestions may be empty for either source. Degraded is set when the
// best-effort fallback query failed and an empty list was returned instead.
type Result struct {
	Source      Source       `json:"source"`
	Suggestions []Suggestion `json:"suggestions"`
	Degraded    error        `json:"-"`
}

// Observer receives per-request measurements.
type Observer interface {
	ObserveSuggest(source Source, elapsed time.Duration, err error)
	ObserveCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveSuggest(Source, time.Duration, error) {}
func (nopObserver) ObserveCache(bool)                           {}

// Engine serves suggestion and history queries over a Store. It keeps no
// per-request state and is safe for concurrent use.
type Engine struct {
	store Store
	log   *zap.Logger
	obs   Observer
	cache *resultCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithCache enables a read-through cache of suggestion results.
// A non-positive size or ttl leaves caching disabled.
func WithCache(size int, ttl time.Duration) Option {
	return func(e *Engine) {
		e.cache = newResultCache(size, ttl)
	}
}

// New returns an Engine reading from store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   zap.NewNop(),
		obs:   nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest returns confidence-sorted suggestions for req.
//
// Store failures while loading the drawing's history are returned. A
// failure of the fallback query is logged and reported in Result.Degraded
// with a nil error.
func (e *Engine) Suggest(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := e.suggest(ctx, req)
	e.obs.ObserveSuggest(res.Source, time.Since(start), err)
	return res, err
}

func (e *Engine) suggest(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	key := cacheKey{drawingNumber: req.DrawingNumber, quantity: req.Quantity, workType: req.WorkType}
	if e.cache != nil {
		if res, ok := e.cache.get(key); ok {
			e.obs.ObserveCache(true)
			return res, nil
		}
		e.obs.ObserveCache(false)
	}

	orders, err := e.store.MatchingOrders(ctx, req.DrawingNumber)
	if err != nil {
		return Result{}, WrapDataAccess("load matching orders", err)
	}

	var res Result
	if len(orders) == 0 {
		e.log.Debug("no history for drawing, using fallback",
			zap.String("drawing_number", req.DrawingNumber),
			zap.String("work_type", req.WorkType))
		res = e.fallback(ctx, req.WorkType)
	} else {
		records, err := e.store.HistoricalOperations(ctx, req.DrawingNumber)
		if err != nil {
			return Result{}, WrapDataAccess("load historical operations", err)
		}
		res = Result{Source: SourceHistory, Suggestions: Assemble(records, req.Quantity)}
		e.log.Debug("built suggestions from history",
			zap.String("drawing_number", req.DrawingNumber),
			zap.Int("orders", len(orders)),
			zap.Int("records", len(records)),
			zap.Int("suggestions", len(res.Suggestions)))
	}

	if e.cache != nil && res.Degraded == nil {
		e.cache.add(key, res)
	}
	return res, nil
}

func (e *Engine) fallback(ctx context.Context, workType string) Result {
	averages, err := e.store.OperationTypeAverages(ctx, workType)
	if err != nil {
		err = WrapDataAccess("load operation type averages", err)
		e.log.Warn("fallback statistics unavailable", zap.String("work_type", workType), zap.Error(err))
		return Result{Source: SourceFallback, Suggestions: []Suggestion{}, Degraded: err}
	}
	return Result{Source: SourceFallback, Suggestions: sortByConfidence(FallbackSuggestions(averages))}
}

// Assemble groups records by operation type and builds one Suggestion per
// group, sorted by descending confidence. Groups tie in first-seen order.
// Records without an execution signal are ignored.
func Assemble(records []HistoricalRecord, targetQty int) []Suggestion {
	usable := make([]HistoricalRecord, 0, len(records))
	for _, rec := range records {
		if rec.Status.HasExecutionSignal() {
			usable = append(usable, rec)
		}
	}

	groups := GroupByType(usable)
	out := make([]Suggestion, 0, groups.Len())
	for _, opType := range groups.Types() {
		group := groups.Records(opType)
		if len(group) == 0 {
			continue
		}
		out = append(out, buildSuggestion(opType, group, targetQty))
	}
	return sortByConfidence(out)
}

func buildSuggestion(opType string, group []HistoricalRecord, targetQty int) Suggestion {
	newest := group[0]
	lastDate := LastOrderInProgress
	if newest.Status == StatusCompleted {
		lastDate = newest.UpdatedAt.Format(time.RFC3339)
	}

	n := min(len(group), MaxHistoricalSamples)
	samples := make([]HistoricalSample, 0, n)
	for _, rec := range group[:n] {
		sample := HistoricalSample{
			OrderID:       rec.OrderID,
			Quantity:      rec.OrderQuantity,
			EstimatedTime: rec.EstimatedTime,
		}
		if rec.Status == StatusCompleted {
			at := rec.UpdatedAt
			sample.CompletedAt = &at
		}
		samples = append(samples, sample)
	}

	return Suggestion{
		OperationType:     opType,
		EstimatedTime:     EstimateTime(group, targetQty),
		Confidence:        Confidence(group),
		BasedOnOperations: len(group),
		BasedOnOrders:     distinctOrders(group),
		LastOrderID:       newest.OrderID,
		LastOrderDate:     lastDate,
		HistoricalData:    samples,
	}
}

func sortByConfidence(s []Suggestion) []Suggestion {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Confidence > s[j].Confidence
	})
	return s
}

// DrawingHistory returns the unscored history rows of a drawing.
func (e *Engine) DrawingHistory(ctx context.Context, drawingNumber string) ([]HistoryRow, error) {
	if err := validateDrawing(drawingNumber); err != nil {
		return nil, err
	}
	rows, err := e.store.DrawingHistory(ctx, drawingNumber)
	if err != nil {
		return nil, WrapDataAccess("load drawing history", err)
	}
	return rows, nil
}

// LastCompletedOrder returns the newest fully completed order of a drawing,
// or nil when there is none.
func (e *Engine) LastCompletedOrder(ctx context.Context, drawingNumber string) (*CompletedOrder, error) {
	if err := validateDrawing(drawingNumber); err != nil {
		return nil, err
	}
	order, err := e.store.LastCompletedOrder(ctx, drawingNumber)
	if err != nil {
		return nil, WrapDataAccess("load last completed order", err)
	}
	return order, nil
}

// LastCompletedOrderDetail is LastCompletedOrder plus that order's operations.
func (e *Engine) LastCompletedOrderDetail(ctx context.Context, drawingNumber string) (*CompletedOrderDetail, error) {
	order, err := e.LastCompletedOrder(ctx, drawingNumber)
	if err != nil || order == nil {
		return nil, err
	}
	ops, err := e.store.OrderOperations(ctx, order.ID)
	if err != nil {
		return nil, WrapDataAccess("load order operations", err)
	}
	return &CompletedOrderDetail{Order: *order, Operations: ops}, nil
}

// DrawingStatistics aggregates the orders and operations of a drawing.
func (e *Engine) DrawingStatistics(ctx context.Context, drawingNumber string) (DrawingStatistics, error) {
	if err := validateDrawing(drawingNumber); err != nil {
		return DrawingStatistics{}, err
	}
	stats, err := e.store.DrawingStatistics(ctx, drawingNumber)
	if err != nil {
		return DrawingStatistics{}, WrapDataAccess("load drawing statistics", err)
	}
	return stats, nil
}

// OperationTimeAnalytics aggregates completed operations, optionally
// filtered by operation type and machine type.
func (e *Engine) OperationTimeAnalytics(ctx context.Context, operationType, machineType string) ([]TimeAnalytics, error) {
	rows, err := e.store.OperationTimeAnalytics(ctx, strings.TrimSpace(operationType), strings.TrimSpace(machineType))
	if err != nil {
		return nil, WrapDataAccess("load operation time analytics", err)
	}
	return rows, nil
}

func validateDrawing(drawingNumber string) error {
	if drawingNumber == "" {
		return &ValidationError{Field: "drawingNumber", Reason: "must not be empty"}
	}
	return nil
}
