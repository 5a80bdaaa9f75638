package estimator

import "math"

// NewTimeAnalytics derives efficiency and recommended time from raw
// aggregates of completed operations. fullyProgressed counts operations
// whose recorded progress reached 100%.
func NewTimeAnalytics(operationType, machineType string, avg, minTime, maxTime float64, completed, fullyProgressed int) TimeAnalytics {
	var efficiency float64
	if completed > 0 {
		efficiency = float64(fullyProgressed) / float64(completed)
	}
	return TimeAnalytics{
		OperationType:   operationType,
		MachineType:     machineType,
		AvgTime:         round2(avg),
		MinTime:         minTime,
		MaxTime:         maxTime,
		CompletedCount:  completed,
		Efficiency:      round4(efficiency),
		RecommendedTime: round2(avg * efficiency),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
