package estimator

import "sort"

// minFallbackSamples suppresses operation types seen only once system-wide.
const minFallbackSamples = 2

// FallbackSuggestions turns generic per-type averages into low-trust
// suggestions, most-sampled types first.
func FallbackSuggestions(averages []TypeAverage) []Suggestion {
	kept := make([]TypeAverage, 0, len(averages))
	for _, avg := range averages {
		if avg.Count >= minFallbackSamples {
			kept = append(kept, avg)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Count > kept[j].Count
	})

	out := make([]Suggestion, 0, len(kept))
	for _, avg := range kept {
		out = append(out, Suggestion{
			OperationType:     avg.OperationType,
			EstimatedTime:     roundMinutes(avg.AvgTime),
			Confidence:        FallbackConfidence(avg.Count),
			BasedOnOperations: avg.Count,
			BasedOnOrders:     0,
			LastOrderID:       0,
			LastOrderDate:     LastOrderGeneral,
			HistoricalData:    []HistoricalSample{},
		})
	}
	return out
}
