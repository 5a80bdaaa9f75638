package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// QueryProfile captures timing and explain output for one loader query.
type QueryProfile struct {
	Name        string
	Description string
	Duration    time.Duration
	RowCount    int64
	Explain     []string
	Err         error
}

type profiledQuery struct {
	name        string
	description string
	query       string
	args        []interface{}
}

// Profile runs the queries behind a suggestion request for drawingNumber and
// reports their duration, row count and EXPLAIN plan.
func (s *Store) Profile(ctx context.Context, drawingNumber, workType string) []QueryProfile {
	matchSQL, matchArgs := s.matchingOrdersQuery(drawingNumber)
	histSQL, histArgs := s.historicalOperationsQuery(drawingNumber)
	avgSQL, avgArgs := typeAveragesQuery(workType)

	queries := []profiledQuery{
		{
			name:        "matching-orders",
			description: "orders of the drawing that have operations, newest first",
			query:       matchSQL,
			args:        matchArgs,
		},
		{
			name:        "historical-operations",
			description: "non-pending operations of the drawing joined with progress",
			query:       histSQL,
			args:        histArgs,
		},
		{
			name:        "fallback-averages",
			description: "mean estimated time per operation type across all orders",
			query:       avgSQL,
			args:        avgArgs,
		},
	}

	results := make([]QueryProfile, 0, len(queries))
	for _, q := range queries {
		res := QueryProfile{Name: q.name, Description: q.description}

		start := time.Now()
		rows, err := s.db.WithContext(ctx).Raw(q.query, q.args...).Rows()
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		var count int64
		for rows.Next() {
			count++
		}
		iterErr := rows.Err()
		rows.Close()

		res.Duration = time.Since(start)
		res.RowCount = count
		if iterErr != nil {
			res.Err = iterErr
			results = append(results, res)
			continue
		}

		explain, err := explainQuery(ctx, s.db, q.query, q.args...)
		if err == nil {
			res.Explain = explain
		} else {
			res.Explain = []string{fmt.Sprintf("failed to collect EXPLAIN: %v", err)}
		}

		results = append(results, res)
	}

	return results
}

func explainQuery(ctx context.Context, db *gorm.DB, query string, args ...interface{}) ([]string, error) {
	lines, err := fetchExplain(ctx, db, "EXPLAIN ANALYZE "+query, args...)
	if err == nil {
		return lines, nil
	}
	return fetchExplain(ctx, db, "EXPLAIN "+query, args...)
}

func fetchExplain(ctx context.Context, db *gorm.DB, sql string, args ...interface{}) ([]string, error) {
	var rows []map[string]interface{}
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines, nil
}
