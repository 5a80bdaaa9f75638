package data

import (
	"context"
	"math"
	"strings"
	"time"

	"shopfloor-estimator/internal/estimator"

	"gorm.io/gorm"
)

// executionStatuses are the statuses that carry a signal about run time.
var executionStatuses = []string{
	string(estimator.StatusCompleted),
	string(estimator.StatusInProgress),
	string(estimator.StatusAssigned),
}

// Store implements estimator.Store with read-only SQL over gorm.
//
// Drawing numbers are compared with plain equality, so exact matching on
// MySQL depends on the binary collation EnsureSchema sets on the column.
// Rows are re-checked in Go. Status filters compare UPPER(TRIM(status)),
// the same normalization coerceStatus applies to the returned rows.
type Store struct {
	db *gorm.DB
}

var _ estimator.Store = (*Store)(nil)

// NewStore wraps an open gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

type matchingOrderRow struct {
	ID             int64      `gorm:"column:id"`
	DrawingNumber  string     `gorm:"column:drawing_number"`
	Quantity       int        `gorm:"column:quantity"`
	Priority       int        `gorm:"column:priority"`
	Deadline       *time.Time `gorm:"column:deadline"`
	OperationCount int        `gorm:"column:operation_count"`
	CompletedCount int        `gorm:"column:completed_count"`
}

// MatchingOrders returns orders of drawingNumber that have operations,
// newest first.
func (s *Store) MatchingOrders(ctx context.Context, drawingNumber string) ([]estimator.OrderSummary, error) {
	query, args := s.matchingOrdersQuery(drawingNumber)
	var rows []matchingOrderRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("matching orders", err)
	}

	out := make([]estimator.OrderSummary, 0, len(rows))
	for _, r := range rows {
		if r.DrawingNumber != drawingNumber || r.OperationCount == 0 {
			continue
		}
		out = append(out, estimator.OrderSummary{
			ID:            r.ID,
			DrawingNumber: r.DrawingNumber,
			Quantity:      r.Quantity,
			Priority:      r.Priority,
			Deadline:      r.Deadline,
			IsCompleted:   r.CompletedCount == r.OperationCount,
		})
	}
	return out, nil
}

func (s *Store) matchingOrdersQuery(drawingNumber string) (string, []interface{}) {
	query := `SELECT o.id, o.drawing_number, o.quantity, o.priority, o.deadline,
		COUNT(op.id) AS operation_count,
		SUM(CASE WHEN UPPER(TRIM(op.status)) = ? THEN 1 ELSE 0 END) AS completed_count
	FROM orders o
	INNER JOIN operations op ON op.order_id = o.id
	WHERE o.drawing_number = ?
	GROUP BY o.id, o.drawing_number, o.quantity, o.priority, o.deadline
	ORDER BY o.id DESC`
	return query, []interface{}{string(estimator.StatusCompleted), drawingNumber}
}

type historicalRow struct {
	OperationID        int64     `gorm:"column:operation_id"`
	OperationNumber    int       `gorm:"column:operation_number"`
	OperationType      string    `gorm:"column:operation_type"`
	EstimatedTime      float64   `gorm:"column:estimated_time"`
	Status             string    `gorm:"column:status"`
	OrderID            int64     `gorm:"column:order_id"`
	DrawingNumber      string    `gorm:"column:drawing_number"`
	OrderQuantity      int       `gorm:"column:order_quantity"`
	ProgressPercentage *float64  `gorm:"column:progress_percentage"`
	CompletedUnits     *int      `gorm:"column:completed_units"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

// HistoricalOperations returns the non-pending operations of every order of
// drawingNumber, newest order first, by operation number within an order.
func (s *Store) HistoricalOperations(ctx context.Context, drawingNumber string) ([]estimator.HistoricalRecord, error) {
	query, args := s.historicalOperationsQuery(drawingNumber)
	var rows []historicalRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("historical operations", err)
	}

	out := make([]estimator.HistoricalRecord, 0, len(rows))
	for _, r := range rows {
		status := coerceStatus(r.Status)
		if r.DrawingNumber != drawingNumber || !status.HasExecutionSignal() {
			continue
		}
		out = append(out, estimator.HistoricalRecord{
			OperationID:        r.OperationID,
			OperationNumber:    r.OperationNumber,
			OperationType:      r.OperationType,
			EstimatedTime:      r.EstimatedTime,
			Status:             status,
			OrderID:            r.OrderID,
			OrderQuantity:      r.OrderQuantity,
			ProgressPercentage: r.ProgressPercentage,
			CompletedUnits:     r.CompletedUnits,
			UpdatedAt:          r.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) historicalOperationsQuery(drawingNumber string) (string, []interface{}) {
	query := `SELECT op.id AS operation_id, op.operation_number, op.operation_type, op.estimated_time, op.status,
		o.id AS order_id, o.drawing_number, o.quantity AS order_quantity,
		p.progress_percentage, p.completed_units, op.updated_at
	FROM operations op
	INNER JOIN orders o ON op.order_id = o.id
	LEFT JOIN operation_execution_progress p ON p.operation_id = op.id
	WHERE o.drawing_number = ? AND UPPER(TRIM(op.status)) IN ?
	ORDER BY o.id DESC, op.operation_number ASC`
	return query, []interface{}{drawingNumber, executionStatuses}
}

type typeAverageRow struct {
	OperationType  string  `gorm:"column:operation_type"`
	AvgTime        float64 `gorm:"column:avg_time"`
	OperationCount int     `gorm:"column:operation_count"`
}

// OperationTypeAverages returns the mean estimated time per operation type
// across all orders, optionally only orders of workType.
func (s *Store) OperationTypeAverages(ctx context.Context, workType string) ([]estimator.TypeAverage, error) {
	query, args := typeAveragesQuery(workType)
	var rows []typeAverageRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("operation type averages", err)
	}

	out := make([]estimator.TypeAverage, 0, len(rows))
	for _, r := range rows {
		out = append(out, estimator.TypeAverage{
			OperationType: r.OperationType,
			AvgTime:       r.AvgTime,
			Count:         r.OperationCount,
		})
	}
	return out, nil
}

func typeAveragesQuery(workType string) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT op.operation_type, AVG(op.estimated_time) AS avg_time, COUNT(*) AS operation_count
	FROM operations op
	INNER JOIN orders o ON op.order_id = o.id`)
	args := []interface{}{}
	if workType != "" {
		sb.WriteString("\n\tWHERE o.work_type = ?")
		args = append(args, workType)
	}
	sb.WriteString("\n\tGROUP BY op.operation_type\n\tORDER BY operation_count DESC")
	return sb.String(), args
}

type historyRow struct {
	OrderID            int64      `gorm:"column:order_id"`
	DrawingNumber      string     `gorm:"column:drawing_number"`
	Quantity           int        `gorm:"column:quantity"`
	Priority           int        `gorm:"column:priority"`
	Deadline           *time.Time `gorm:"column:deadline"`
	OperationID        *int64     `gorm:"column:operation_id"`
	OperationNumber    *int       `gorm:"column:operation_number"`
	OperationType      *string    `gorm:"column:operation_type"`
	EstimatedTime      *float64   `gorm:"column:estimated_time"`
	Status             *string    `gorm:"column:status"`
	ProgressPercentage *float64   `gorm:"column:progress_percentage"`
	CompletedUnits     *int       `gorm:"column:completed_units"`
	TotalUnits         *int       `gorm:"column:total_units"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
}

// DrawingHistory returns every order of drawingNumber joined with its
// operations and progress, newest order first.
func (s *Store) DrawingHistory(ctx context.Context, drawingNumber string) ([]estimator.HistoryRow, error) {
	query := `SELECT o.id AS order_id, o.drawing_number, o.quantity, o.priority, o.deadline,
		op.id AS operation_id, op.operation_number, op.operation_type, op.estimated_time, op.status,
		p.progress_percentage, p.completed_units, p.total_units,
		CASE WHEN UPPER(TRIM(op.status)) = ? THEN op.updated_at ELSE NULL END AS completed_at
	FROM orders o
	LEFT JOIN operations op ON op.order_id = o.id
	LEFT JOIN operation_execution_progress p ON p.operation_id = op.id
	WHERE o.drawing_number = ?
	ORDER BY o.id DESC, op.operation_number ASC`

	var rows []historyRow
	if err := s.db.WithContext(ctx).Raw(query, string(estimator.StatusCompleted), drawingNumber).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("drawing history", err)
	}

	out := make([]estimator.HistoryRow, 0, len(rows))
	for _, r := range rows {
		if r.DrawingNumber != drawingNumber {
			continue
		}
		row := estimator.HistoryRow{
			OrderID:            r.OrderID,
			Quantity:           r.Quantity,
			Priority:           r.Priority,
			Deadline:           r.Deadline,
			OperationID:        r.OperationID,
			OperationNumber:    r.OperationNumber,
			OperationType:      r.OperationType,
			EstimatedTime:      r.EstimatedTime,
			ProgressPercentage: r.ProgressPercentage,
			CompletedUnits:     r.CompletedUnits,
			TotalUnits:         r.TotalUnits,
			CompletedAt:        r.CompletedAt,
		}
		if r.Status != nil {
			st := coerceStatus(*r.Status)
			row.Status = &st
		}
		out = append(out, row)
	}
	return out, nil
}

type completedOrderRow struct {
	ID                  int64      `gorm:"column:id"`
	Quantity            int        `gorm:"column:quantity"`
	Priority            int        `gorm:"column:priority"`
	TotalOperations     int        `gorm:"column:total_operations"`
	CompletedOperations int        `gorm:"column:completed_operations"`
	LastOperationDate   *time.Time `gorm:"column:last_operation_date"`
}

// LastCompletedOrder returns the highest-ID order of drawingNumber whose
// operations are all completed, or nil.
func (s *Store) LastCompletedOrder(ctx context.Context, drawingNumber string) (*estimator.CompletedOrder, error) {
	completed := string(estimator.StatusCompleted)
	query := `SELECT o.id, o.quantity, o.priority,
		COUNT(op.id) AS total_operations,
		SUM(CASE WHEN UPPER(TRIM(op.status)) = ? THEN 1 ELSE 0 END) AS completed_operations,
		MAX(op.updated_at) AS last_operation_date
	FROM orders o
	INNER JOIN operations op ON op.order_id = o.id
	WHERE o.drawing_number = ?
	GROUP BY o.id, o.quantity, o.priority
	HAVING COUNT(op.id) = SUM(CASE WHEN UPPER(TRIM(op.status)) = ? THEN 1 ELSE 0 END)
	ORDER BY o.id DESC
	LIMIT 1`

	var rows []completedOrderRow
	if err := s.db.WithContext(ctx).Raw(query, completed, drawingNumber, completed).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("last completed order", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &estimator.CompletedOrder{
		ID:                  r.ID,
		Quantity:            r.Quantity,
		Priority:            r.Priority,
		TotalOperations:     r.TotalOperations,
		CompletedOperations: r.CompletedOperations,
		LastOperationDate:   r.LastOperationDate,
	}, nil
}

type orderOperationRow struct {
	ID                 int64    `gorm:"column:id"`
	OperationNumber    int      `gorm:"column:operation_number"`
	OperationType      string   `gorm:"column:operation_type"`
	EstimatedTime      float64  `gorm:"column:estimated_time"`
	Status             string   `gorm:"column:status"`
	CompletedUnits     *int     `gorm:"column:completed_units"`
	TotalUnits         *int     `gorm:"column:total_units"`
	ProgressPercentage *float64 `gorm:"column:progress_percentage"`
}

// OrderOperations returns the operations of one order by operation number.
func (s *Store) OrderOperations(ctx context.Context, orderID int64) ([]estimator.OrderOperation, error) {
	query := `SELECT op.id, op.operation_number, op.operation_type, op.estimated_time, op.status,
		p.completed_units, p.total_units, p.progress_percentage
	FROM operations op
	LEFT JOIN operation_execution_progress p ON p.operation_id = op.id
	WHERE op.order_id = ?
	ORDER BY op.operation_number ASC`

	var rows []orderOperationRow
	if err := s.db.WithContext(ctx).Raw(query, orderID).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("order operations", err)
	}

	out := make([]estimator.OrderOperation, 0, len(rows))
	for _, r := range rows {
		out = append(out, estimator.OrderOperation{
			ID:                 r.ID,
			OperationNumber:    r.OperationNumber,
			OperationType:      r.OperationType,
			EstimatedTime:      r.EstimatedTime,
			Status:             coerceStatus(r.Status),
			CompletedUnits:     r.CompletedUnits,
			TotalUnits:         r.TotalUnits,
			ProgressPercentage: r.ProgressPercentage,
		})
	}
	return out, nil
}

type orderStatsRow struct {
	OrderCount  int     `gorm:"column:order_count"`
	MinQuantity int     `gorm:"column:min_quantity"`
	MaxQuantity int     `gorm:"column:max_quantity"`
	AvgQuantity float64 `gorm:"column:avg_quantity"`
}

type operationStatsRow struct {
	OperationCount          int     `gorm:"column:operation_count"`
	CompletedOperationCount int     `gorm:"column:completed_operation_count"`
	AvgEstimatedTime        float64 `gorm:"column:avg_estimated_time"`
}

// DrawingStatistics aggregates orders and operations of drawingNumber.
// Averages are rounded to whole units.
func (s *Store) DrawingStatistics(ctx context.Context, drawingNumber string) (estimator.DrawingStatistics, error) {
	orderQuery := `SELECT COUNT(*) AS order_count,
		COALESCE(MIN(o.quantity), 0) AS min_quantity,
		COALESCE(MAX(o.quantity), 0) AS max_quantity,
		COALESCE(AVG(o.quantity), 0) AS avg_quantity
	FROM orders o
	WHERE o.drawing_number = ?`

	var orders orderStatsRow
	if err := s.db.WithContext(ctx).Raw(orderQuery, drawingNumber).Scan(&orders).Error; err != nil {
		return estimator.DrawingStatistics{}, estimator.WrapDataAccess("drawing order statistics", err)
	}

	opQuery := `SELECT COUNT(op.id) AS operation_count,
		COALESCE(SUM(CASE WHEN UPPER(TRIM(op.status)) = ? THEN 1 ELSE 0 END), 0) AS completed_operation_count,
		COALESCE(AVG(op.estimated_time), 0) AS avg_estimated_time
	FROM operations op
	INNER JOIN orders o ON op.order_id = o.id
	WHERE o.drawing_number = ?`

	var ops operationStatsRow
	if err := s.db.WithContext(ctx).Raw(opQuery, string(estimator.StatusCompleted), drawingNumber).Scan(&ops).Error; err != nil {
		return estimator.DrawingStatistics{}, estimator.WrapDataAccess("drawing operation statistics", err)
	}

	return estimator.DrawingStatistics{
		OrderCount:              orders.OrderCount,
		MinQuantity:             orders.MinQuantity,
		MaxQuantity:             orders.MaxQuantity,
		AvgQuantity:             math.Round(orders.AvgQuantity),
		OperationCount:          ops.OperationCount,
		CompletedOperationCount: ops.CompletedOperationCount,
		AvgEstimatedTime:        math.Round(ops.AvgEstimatedTime),
	}, nil
}

type timeAnalyticsRow struct {
	OperationType     string  `gorm:"column:operation_type"`
	MachineType       string  `gorm:"column:machine_type"`
	AvgTime           float64 `gorm:"column:avg_time"`
	MinTime           float64 `gorm:"column:min_time"`
	MaxTime           float64 `gorm:"column:max_time"`
	CompletedCount    int     `gorm:"column:completed_count"`
	FullProgressCount int     `gorm:"column:full_progress_count"`
}

// OperationTimeAnalytics aggregates completed operations per operation type
// and machine type, most common first.
func (s *Store) OperationTimeAnalytics(ctx context.Context, operationType, machineType string) ([]estimator.TimeAnalytics, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT op.operation_type, COALESCE(m.type, '') AS machine_type,
		AVG(op.estimated_time) AS avg_time,
		MIN(op.estimated_time) AS min_time,
		MAX(op.estimated_time) AS max_time,
		COUNT(*) AS completed_count,
		COALESCE(SUM(CASE WHEN p.progress_percentage >= 100 THEN 1 ELSE 0 END), 0) AS full_progress_count
	FROM operations op
	LEFT JOIN machines m ON op.assigned_machine_id = m.id
	LEFT JOIN operation_execution_progress p ON p.operation_id = op.id
	WHERE UPPER(TRIM(op.status)) = ?`)
	args := []interface{}{string(estimator.StatusCompleted)}
	if operationType != "" {
		sb.WriteString(" AND op.operation_type = ?")
		args = append(args, operationType)
	}
	if machineType != "" {
		sb.WriteString(" AND m.type = ?")
		args = append(args, machineType)
	}
	sb.WriteString("\n\tGROUP BY op.operation_type, m.type\n\tORDER BY completed_count DESC")

	var rows []timeAnalyticsRow
	if err := s.db.WithContext(ctx).Raw(sb.String(), args...).Scan(&rows).Error; err != nil {
		return nil, estimator.WrapDataAccess("operation time analytics", err)
	}

	out := make([]estimator.TimeAnalytics, 0, len(rows))
	for _, r := range rows {
		out = append(out, estimator.NewTimeAnalytics(
			r.OperationType, r.MachineType, r.AvgTime, r.MinTime, r.MaxTime, r.CompletedCount, r.FullProgressCount,
		))
	}
	return out, nil
}

func coerceStatus(raw string) estimator.Status {
	return estimator.Status(strings.ToUpper(strings.TrimSpace(raw)))
}
