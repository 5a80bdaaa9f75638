package main

import (
	"fmt"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"shopfloor-estimator/internal/data"
	"shopfloor-estimator/internal/estimator"

	"github.com/olekukonko/tablewriter"
)

func printSuggestions(w io.Writer, res estimator.Result) error {
	fmt.Fprintf(w, "source: %s\n", res.Source)
	if len(res.Suggestions) == 0 {
		fmt.Fprintln(w, "no suggestions")
		return nil
	}

	rows := make([][]string, 0, len(res.Suggestions))
	for _, s := range res.Suggestions {
		rows = append(rows, []string{
			s.OperationType,
			strconv.Itoa(s.EstimatedTime),
			strconv.Itoa(s.Confidence),
			strconv.Itoa(s.BasedOnOperations),
			strconv.Itoa(s.BasedOnOrders),
			strconv.FormatInt(s.LastOrderID, 10),
			s.LastOrderDate,
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Operation", "Minutes", "Confidence", "Samples", "Orders", "Last order", "Last date")
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func printHistory(w io.Writer, stats estimator.DrawingStatistics, last *estimator.CompletedOrder, rows []estimator.HistoryRow) error {
	fmt.Fprintf(w, "orders=%d qty(min/avg/max)=%d/%.0f/%d operations=%d completed=%d avg time=%.0f\n",
		stats.OrderCount, stats.MinQuantity, stats.AvgQuantity, stats.MaxQuantity,
		stats.OperationCount, stats.CompletedOperationCount, stats.AvgEstimatedTime)
	if last != nil {
		fmt.Fprintf(w, "last completed order: %d (qty %d, %d operations)\n", last.ID, last.Quantity, last.TotalOperations)
	} else {
		fmt.Fprintln(w, "last completed order: none")
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		status := ""
		if r.Status != nil {
			status = string(*r.Status)
		}
		out = append(out, []string{
			strconv.FormatInt(r.OrderID, 10),
			strconv.Itoa(r.Quantity),
			optInt(r.OperationNumber),
			truncateText(optString(r.OperationType), 16),
			optFloat(r.EstimatedTime),
			status,
			optFloat(r.ProgressPercentage),
			optTime(r.CompletedAt),
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Order", "Qty", "Op", "Type", "Minutes", "Status", "Progress %", "Completed")
	if err := table.Bulk(out); err != nil {
		return err
	}
	return table.Render()
}

func printAnalytics(w io.Writer, rows []estimator.TimeAnalytics) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.OperationType,
			r.MachineType,
			strconv.FormatFloat(r.AvgTime, 'f', 2, 64),
			strconv.FormatFloat(r.MinTime, 'f', 0, 64),
			strconv.FormatFloat(r.MaxTime, 'f', 0, 64),
			strconv.Itoa(r.CompletedCount),
			strconv.FormatFloat(r.Efficiency*100, 'f', 1, 64) + "%",
			strconv.FormatFloat(r.RecommendedTime, 'f', 2, 64),
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Operation", "Machine", "Avg", "Min", "Max", "Completed", "Efficiency", "Recommended")
	if err := table.Bulk(out); err != nil {
		return err
	}
	return table.Render()
}

func printProfiles(w io.Writer, results []data.QueryProfile) error {
	out := make([][]string, 0, len(results))
	for _, res := range results {
		status := "OK"
		if res.Err != nil {
			status = "ERR: " + res.Err.Error()
		}
		out = append(out, []string{
			res.Name,
			truncateText(res.Description, 40),
			res.Duration.String(),
			strconv.FormatInt(res.RowCount, 10),
			status,
		})
	}

	table := tablewriter.NewWriter(w)
	table.Header("Query", "Description", "Duration", "Rows", "Status")
	if err := table.Bulk(out); err != nil {
		return err
	}
	return table.Render()
}

func truncateText(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit > len(runes) {
		limit = len(runes)
	}
	return string(runes[:limit]) + "…"
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 0, 64)
}

func optTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.RFC3339)
}
