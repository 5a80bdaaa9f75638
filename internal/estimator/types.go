package estimator

import (
	"context"
	"math"
	"time"
)

// Status is the lifecycle state of an operation. Transitions only move forward.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// HasExecutionSignal reports whether an operation in this status says
// anything about how long the work takes. Pending operations do not.
func (s Status) HasExecutionSignal() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

const (
	// LastOrderInProgress marks a Suggestion whose newest sample is not completed.
	LastOrderInProgress = "in progress"
	// LastOrderGeneral marks a Suggestion built from cross-drawing statistics.
	LastOrderGeneral = "general statistics"

	// MaxHistoricalSamples caps Suggestion.HistoricalData.
	MaxHistoricalSamples = 5

	// MaxQuantity is the largest order quantity a Request may ask for.
	MaxQuantity = math.MaxInt32

	// MaxMinutes caps every estimated time.
	MaxMinutes = math.MaxInt32
)

// HistoricalRecord is one past operation joined with its order and progress.
type HistoricalRecord struct {
	OperationID        int64
	OperationNumber    int
	OperationType      string
	EstimatedTime      float64
	Status             Status
	OrderID            int64
	OrderQuantity      int
	ProgressPercentage *float64
	CompletedUnits     *int
	UpdatedAt          time.Time
}

// OrderSummary is an order matching a drawing number that has operations.
type OrderSummary struct {
	ID            int64      `json:"id"`
	DrawingNumber string     `json:"drawingNumber"`
	Quantity      int        `json:"quantity"`
	Priority      int        `json:"priority"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	IsCompleted   bool       `json:"isCompleted"`
}

// TypeAverage is the cross-drawing mean estimated time of one operation type.
type TypeAverage struct {
	OperationType string
	AvgTime       float64
	Count         int
}

// HistoricalSample summarizes one record inside a Suggestion.
type HistoricalSample struct {
	OrderID       int64      `json:"orderId"`
	Quantity      int        `json:"quantity"`
	EstimatedTime float64    `json:"estimatedTime"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// Suggestion is a computed time recommendation for one operation type.
// BasedOnOrders is 0 only for suggestions built by the fallback path.
type Suggestion struct {
	OperationType     string             `json:"operationType"`
	EstimatedTime     int                `json:"estimatedTime"`
	Confidence        int                `json:"confidence"`
	BasedOnOperations int                `json:"basedOnOperations"`
	BasedOnOrders     int                `json:"basedOnOrders"`
	LastOrderID       int64              `json:"lastOrderId"`
	LastOrderDate     string             `json:"lastOrderDate"`
	HistoricalData    []HistoricalSample `json:"historicalData"`
}

// IsFallback reports whether s came from generic statistics.
func (s Suggestion) IsFallback() bool {
	return s.BasedOnOrders == 0
}

// HistoryRow is an unscored row of a drawing's history. Operation and
// progress fields are nil for orders that have no operations.
type HistoryRow struct {
	OrderID            int64      `json:"orderId"`
	Quantity           int        `json:"quantity"`
	Priority           int        `json:"priority"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	OperationID        *int64     `json:"operationId"`
	OperationNumber    *int       `json:"operationNumber"`
	OperationType      *string    `json:"operationType"`
	EstimatedTime      *float64   `json:"estimatedTime"`
	Status             *Status    `json:"status"`
	ProgressPercentage *float64   `json:"progressPercentage"`
	CompletedUnits     *int       `json:"completedUnits"`
	TotalUnits         *int       `json:"totalUnits"`
	CompletedAt        *time.Time `json:"completedAt"`
}

// CompletedOrder is an order all of whose operations are completed.
type CompletedOrder struct {
	ID                  int64      `json:"id"`
	Quantity            int        `json:"quantity"`
	Priority            int        `json:"priority"`
	TotalOperations     int        `json:"totalOperations"`
	CompletedOperations int        `json:"completedOperations"`
	LastOperationDate   *time.Time `json:"lastOperationDate,omitempty"`
}

// OrderOperation is one operation of an order together with its progress.
type OrderOperation struct {
	ID                 int64    `json:"id"`
	OperationNumber    int      `json:"operationNumber"`
	OperationType      string   `json:"operationType"`
	EstimatedTime      float64  `json:"estimatedTime"`
	Status             Status   `json:"status"`
	CompletedUnits     *int     `json:"completedUnits"`
	TotalUnits         *int     `json:"totalUnits"`
	ProgressPercentage *float64 `json:"progressPercentage"`
}

// CompletedOrderDetail pairs a completed order with its operations.
type CompletedOrderDetail struct {
	Order      CompletedOrder   `json:"order"`
	Operations []OrderOperation `json:"operations"`
}

// DrawingStatistics aggregates orders and operations of one drawing.
type DrawingStatistics struct {
	OrderCount              int     `json:"orderCount"`
	MinQuantity             int     `json:"minQuantity"`
	MaxQuantity             int     `json:"maxQuantity"`
	AvgQuantity             float64 `json:"avgQuantity"`
	OperationCount          int     `json:"operationCount"`
	CompletedOperationCount int     `json:"completedOperationCount"`
	AvgEstimatedTime        float64 `json:"avgEstimatedTime"`
}

// TimeAnalytics aggregates completed operations per operation and machine type.
// Efficiency is the fraction in [0,1] of operations whose progress reached 100%.
type TimeAnalytics struct {
	OperationType   string  `json:"operationType"`
	MachineType     string  `json:"machineType"`
	AvgTime         float64 `json:"avgTime"`
	MinTime         float64 `json:"minTime"`
	MaxTime         float64 `json:"maxTime"`
	CompletedCount  int     `json:"completedCount"`
	Efficiency      float64 `json:"efficiency"`
	RecommendedTime float64 `json:"recommendedTime"`
}

// Store is the read-only view of the order-management database.
//
// Ordering is part of the contract: MatchingOrders and HistoricalOperations
// return newest orders first (descending order ID, the recency proxy), and
// HistoricalOperations orders records by operation number within an order.
// Drawing numbers are compared exactly, without case folding or trimming.
// Implementations wrap failures in *DataAccessError.
type Store interface {
	MatchingOrders(ctx context.Context, drawingNumber string) ([]OrderSummary, error)
	HistoricalOperations(ctx context.Context, drawingNumber string) ([]HistoricalRecord, error)
	OperationTypeAverages(ctx context.Context, workType string) ([]TypeAverage, error)
	DrawingHistory(ctx context.Context, drawingNumber string) ([]HistoryRow, error)
	LastCompletedOrder(ctx context.Context, drawingNumber string) (*CompletedOrder, error)
	OrderOperations(ctx context.Context, orderID int64) ([]OrderOperation, error)
	DrawingStatistics(ctx context.Context, drawingNumber string) (DrawingStatistics, error)
	OperationTimeAnalytics(ctx context.Context, operationType, machineType string) ([]TimeAnalytics, error)
}
