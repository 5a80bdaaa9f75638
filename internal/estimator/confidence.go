package estimator

const (
	volumePerSample    = 15
	volumeCap          = 60
	drawingMatchBonus  = 30
	completedPerSample = 5
	completedCap       = 15
	diversityPerOrder  = 5
	diversityCap       = 20
	maxConfidence      = 100

	fallbackPerSample = 10
	fallbackCap       = 40
)

// ConfidenceTerms holds the additive parts of a group's confidence score.
type ConfidenceTerms struct {
	Volume       int
	DrawingMatch int
	Completion   int
	Diversity    int
}

// Total is the capped sum of the terms.
func (t ConfidenceTerms) Total() int {
	return clampConfidence(t.Volume + t.DrawingMatch + t.Completion + t.Diversity)
}

// ScoreTerms computes the confidence terms of one operation-type group.
//
// The drawing-match term is flat because every record reaching this point
// matched the drawing number exactly.
func ScoreTerms(records []HistoricalRecord) ConfidenceTerms {
	completed := 0
	for _, rec := range records {
		if rec.Status == StatusCompleted {
			completed++
		}
	}
	terms := ConfidenceTerms{
		Volume:       min(len(records)*volumePerSample, volumeCap),
		DrawingMatch: drawingMatchBonus,
		Completion:   min(completed*completedPerSample, completedCap),
	}
	if orders := distinctOrders(records); orders > 1 {
		terms.Diversity = min(orders*diversityPerOrder, diversityCap)
	}
	return terms
}

// Confidence returns the 0..100 trust score of a group.
func Confidence(records []HistoricalRecord) int {
	return ScoreTerms(records).Total()
}

// FallbackConfidence scores a generic per-type average built from n samples.
func FallbackConfidence(n int) int {
	return clampConfidence(min(n*fallbackPerSample, fallbackCap))
}

func distinctOrders(records []HistoricalRecord) int {
	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		seen[rec.OrderID] = struct{}{}
	}
	return len(seen)
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}
