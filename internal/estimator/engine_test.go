package estimator

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves fixed orders and records keyed by exact drawing number.
type fakeStore struct {
	records  map[string][]HistoricalRecord
	averages []TypeAverage

	ordersErr   error
	recordsErr  error
	averagesErr error
	lastErr     error

	last       *CompletedOrder
	operations []OrderOperation
	stats      DrawingStatistics
	history    []HistoryRow
	analytics  []TimeAnalytics

	calls          map[string]int
	lastWorkType   string
	analyticsQuery [2]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string][]HistoricalRecord{}, calls: map[string]int{}}
}

func (f *fakeStore) MatchingOrders(_ context.Context, drawing string) ([]OrderSummary, error) {
	f.calls["orders"]++
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	seen := map[int64]bool{}
	var out []OrderSummary
	for _, rec := range f.records[drawing] {
		if !seen[rec.OrderID] {
			seen[rec.OrderID] = true
			out = append(out, OrderSummary{ID: rec.OrderID, DrawingNumber: drawing, Quantity: rec.OrderQuantity})
		}
	}
	return out, nil
}

func (f *fakeStore) HistoricalOperations(_ context.Context, drawing string) ([]HistoricalRecord, error) {
	f.calls["records"]++
	if f.recordsErr != nil {
		return nil, f.recordsErr
	}
	return f.records[drawing], nil
}

func (f *fakeStore) OperationTypeAverages(_ context.Context, workType string) ([]TypeAverage, error) {
	f.calls["averages"]++
	f.lastWorkType = workType
	if f.averagesErr != nil {
		return nil, f.averagesErr
	}
	return f.averages, nil
}

func (f *fakeStore) DrawingHistory(context.Context, string) ([]HistoryRow, error) {
	return f.history, nil
}

func (f *fakeStore) LastCompletedOrder(context.Context, string) (*CompletedOrder, error) {
	return f.last, f.lastErr
}

func (f *fakeStore) OrderOperations(context.Context, int64) ([]OrderOperation, error) {
	return f.operations, nil
}

func (f *fakeStore) DrawingStatistics(context.Context, string) (DrawingStatistics, error) {
	return f.stats, nil
}

func (f *fakeStore) OperationTimeAnalytics(_ context.Context, operationType, machineType string) ([]TimeAnalytics, error) {
	f.analyticsQuery = [2]string{operationType, machineType}
	return f.analytics, nil
}

type recordingObserver struct {
	sources []Source
	errs    []error
	hits    int
	misses  int
}

func (o *recordingObserver) ObserveSuggest(source Source, _ time.Duration, err error) {
	o.sources = append(o.sources, source)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits++
		return
	}
	o.misses++
}

func scenarioAStore() *fakeStore {
	store := newFakeStore()
	store.records["DWG-100"] = []HistoricalRecord{
		record(12, "MILLING", 60, 10, StatusCompleted),
		record(11, "MILLING", 60, 10, StatusCompleted),
		record(10, "MILLING", 60, 10, StatusCompleted),
	}
	store.averages = []TypeAverage{{OperationType: "TURNING", AvgTime: 45, Count: 5}}
	return store
}

func TestSuggestScenarioA(t *testing.T) {
	engine := New(scenarioAStore())

	res, err := engine.Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: 20})
	require.NoError(t, err)

	assert.Equal(t, SourceHistory, res.Source)
	require.Len(t, res.Suggestions, 1)
	s := res.Suggestions[0]
	assert.Equal(t, 120, s.EstimatedTime)
	assert.Equal(t, 100, s.Confidence)
	assert.Equal(t, 3, s.BasedOnOperations)
	assert.Equal(t, 3, s.BasedOnOrders)
	assert.Equal(t, int64(12), s.LastOrderID)
	assert.Nil(t, res.Degraded)
}

func TestSuggestScenarioBFallback(t *testing.T) {
	store := scenarioAStore()
	engine := New(store)

	res, err := engine.Suggest(context.Background(), Request{DrawingNumber: "NEW-999", Quantity: 3, WorkType: "serial"})
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, res.Source)
	require.Len(t, res.Suggestions, 1)
	s := res.Suggestions[0]
	assert.Equal(t, "TURNING", s.OperationType)
	assert.Equal(t, 45, s.EstimatedTime)
	assert.Equal(t, 40, s.Confidence)
	assert.Equal(t, 0, s.BasedOnOrders)
	assert.Empty(t, s.HistoricalData)
	assert.Equal(t, "serial", store.lastWorkType)
	assert.Equal(t, 0, store.calls["records"])
}

func TestSuggestExactDrawingMatch(t *testing.T) {
	for _, variant := range []string{"dwg-100", "DWG-100 ", " DWG-100", "DWG 100"} {
		store := scenarioAStore()
		res, err := New(store).Suggest(context.Background(), Request{DrawingNumber: variant, Quantity: 20})
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, res.Source, "variant %q", variant)
		assert.Equal(t, 1, store.calls["averages"], "variant %q", variant)
	}
}

func TestSuggestOrdersWithoutUsableOperationsSkipsFallback(t *testing.T) {
	store := newFakeStore()
	store.records["DWG-200"] = []HistoricalRecord{record(4, "MILLING", 60, 10, StatusPending)}
	store.averages = []TypeAverage{{OperationType: "TURNING", AvgTime: 45, Count: 5}}

	res, err := New(store).Suggest(context.Background(), Request{DrawingNumber: "DWG-200", Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, SourceHistory, res.Source)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, 0, store.calls["averages"])
}

func TestSuggestPrimaryStoreErrorPropagates(t *testing.T) {
	store := scenarioAStore()
	store.recordsErr = errors.New("connection reset")
	obs := &recordingObserver{}

	_, err := New(store, WithObserver(obs)).Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: 1})

	require.Error(t, err)
	assert.True(t, IsDataAccess(err))
	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "load historical operations", dae.Op)
	assert.EqualError(t, errors.Unwrap(err), "connection reset")
	require.Len(t, obs.errs, 1)
	assert.Equal(t, err, obs.errs[0])
}

func TestSuggestMatchingOrdersErrorPropagates(t *testing.T) {
	store := scenarioAStore()
	store.ordersErr = &DataAccessError{Op: "matching orders", Err: errors.New("timeout")}

	_, err := New(store).Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: 1})

	var dae *DataAccessError
	require.ErrorAs(t, err, &dae)
	assert.Equal(t, "matching orders", dae.Op, "already wrapped errors are not wrapped twice")
}

func TestSuggestFallbackErrorDegrades(t *testing.T) {
	store := newFakeStore()
	store.averagesErr = errors.New("relation does not exist")

	res, err := New(store).Suggest(context.Background(), Request{DrawingNumber: "NEW-1", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.NotNil(t, res.Suggestions)
	assert.Empty(t, res.Suggestions)
	assert.True(t, IsDataAccess(res.Degraded))
}

func TestSuggestValidation(t *testing.T) {
	store := scenarioAStore()
	engine := New(store)

	_, err := engine.Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = engine.Suggest(context.Background(), Request{Quantity: 5})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, store.calls["orders"])
}

func TestSuggestRejectsHugeQuantity(t *testing.T) {
	store := scenarioAStore()

	_, err := New(store).Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: math.MaxInt64 / 2})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
	assert.Equal(t, 0, store.calls["orders"])
}

func TestSuggestLargestQuantityStaysInRange(t *testing.T) {
	res, err := New(scenarioAStore()).Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: MaxQuantity})
	require.NoError(t, err)

	require.Len(t, res.Suggestions, 1)
	assert.GreaterOrEqual(t, res.Suggestions[0].EstimatedTime, 0)
	assert.Equal(t, MaxMinutes, res.Suggestions[0].EstimatedTime)
}

func TestSuggestIdempotent(t *testing.T) {
	store := scenarioAStore()
	store.records["DWG-100"] = append(store.records["DWG-100"],
		record(9, "TURNING", 20, 5, StatusInProgress),
		record(8, "TURNING", 25, 5, StatusCompleted))
	engine := New(store)
	req := Request{DrawingNumber: "DWG-100", Quantity: 7}

	first, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSuggestCacheReadThrough(t *testing.T) {
	store := scenarioAStore()
	obs := &recordingObserver{}
	engine := New(store, WithCache(16, time.Minute), WithObserver(obs))
	req := Request{DrawingNumber: "DWG-100", Quantity: 20}

	first, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)
	first.Suggestions[0].Confidence = -1

	second, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls["orders"])
	assert.Equal(t, 100, second.Suggestions[0].Confidence, "cached entries are not aliased")
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)
	assert.Equal(t, 1, engine.cache.len())

	_, err = engine.Suggest(context.Background(), Request{DrawingNumber: "DWG-100", Quantity: 21})
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls["orders"], "quantity is part of the key")
}

func TestSuggestCacheSkipsDegraded(t *testing.T) {
	store := newFakeStore()
	store.averagesErr = errors.New("down")
	engine := New(store, WithCache(16, time.Minute))
	req := Request{DrawingNumber: "NEW-1", Quantity: 1}

	_, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)
	_, err = engine.Suggest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls["averages"])
}

func TestSuggestCacheExpires(t *testing.T) {
	store := scenarioAStore()
	engine := New(store, WithCache(16, 20*time.Millisecond))
	req := Request{DrawingNumber: "DWG-100", Quantity: 20}

	_, err := engine.Suggest(context.Background(), req)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	_, err = engine.Suggest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, store.calls["orders"])
}

func TestWithCacheDisabled(t *testing.T) {
	assert.Nil(t, New(newFakeStore(), WithCache(0, time.Minute)).cache)
	assert.Nil(t, New(newFakeStore(), WithCache(10, 0)).cache)
}

func TestLastCompletedOrderDetail(t *testing.T) {
	store := newFakeStore()
	store.last = &CompletedOrder{ID: 42, Quantity: 10, TotalOperations: 2, CompletedOperations: 2}
	store.operations = []OrderOperation{
		{ID: 1, OperationNumber: 10, OperationType: "MILLING", Status: StatusCompleted},
		{ID: 2, OperationNumber: 20, OperationType: "TURNING", Status: StatusCompleted},
	}

	detail, err := New(store).LastCompletedOrderDetail(context.Background(), "DWG-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, int64(42), detail.Order.ID)
	assert.Len(t, detail.Operations, 2)
}

func TestLastCompletedOrderNoneAndErrors(t *testing.T) {
	store := newFakeStore()
	engine := New(store)

	detail, err := engine.LastCompletedOrderDetail(context.Background(), "DWG-1")
	require.NoError(t, err)
	assert.Nil(t, detail)

	store.lastErr = errors.New("down")
	_, err = engine.LastCompletedOrder(context.Background(), "DWG-1")
	assert.True(t, IsDataAccess(err))

	_, err = engine.LastCompletedOrder(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOperationTimeAnalyticsTrimsFilters(t *testing.T) {
	store := newFakeStore()
	store.analytics = []TimeAnalytics{{OperationType: "MILLING", MachineType: "CNC"}}

	rows, err := New(store).OperationTimeAnalytics(context.Background(), " MILLING ", "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, [2]string{"MILLING", ""}, store.analyticsQuery)
}

func TestDrawingQueriesRejectEmptyDrawing(t *testing.T) {
	engine := New(newFakeStore())

	_, err := engine.DrawingHistory(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = engine.DrawingStatistics(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}
