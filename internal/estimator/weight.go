package estimator

import "math"

const (
	baseWeight          = 1.0
	completedBonus      = 0.5
	quantitySimilarity  = 0.3
	minQuantityDivision = 1
)

// TimePerUnit normalizes a record's estimated time to a single unit.
// Non-positive order quantities are treated as 1.
func TimePerUnit(rec HistoricalRecord) float64 {
	qty := rec.OrderQuantity
	if qty < minQuantityDivision {
		qty = minQuantityDivision
	}
	return rec.EstimatedTime / float64(qty)
}

// ProjectedTime scales a record's per-unit time to targetQty.
func ProjectedTime(rec HistoricalRecord, targetQty int) float64 {
	return TimePerUnit(rec) * float64(targetQty)
}

// QuantityRatio is min(q/t, t/q), in (0,1] for positive quantities and 0
// when either side is not positive.
func QuantityRatio(orderQty, targetQty int) float64 {
	if orderQty <= 0 || targetQty <= 0 {
		return 0
	}
	q, t := float64(orderQty), float64(targetQty)
	return math.Min(q/t, t/q)
}

// RecordWeight is the averaging weight of a record. It is always >= 1.
func RecordWeight(rec HistoricalRecord, targetQty int) float64 {
	w := baseWeight
	if rec.Status == StatusCompleted {
		w += completedBonus
	}
	w += QuantityRatio(rec.OrderQuantity, targetQty) * quantitySimilarity
	return w
}

// EstimateTime returns the weighted mean projected time of records for
// targetQty, rounded to the nearest minute and capped at MaxMinutes. It
// returns 0 for no records.
func EstimateTime(records []HistoricalRecord, targetQty int) int {
	var sum, total float64
	for _, rec := range records {
		w := RecordWeight(rec, targetQty)
		sum += ProjectedTime(rec, targetQty) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return roundMinutes(sum / total)
}

// roundMinutes rounds v to whole minutes within 0..MaxMinutes. NaN is 0.
func roundMinutes(v float64) int {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= MaxMinutes:
		return MaxMinutes
	}
	return int(math.Round(v))
}
