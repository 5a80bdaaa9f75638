package estimator

// Groups partitions historical records by operation type. Types are kept in
// the order they were first seen and records keep their loader order.
type Groups struct {
	types   []string
	records map[string][]HistoricalRecord
}

// GroupByType folds records into Groups keyed by the exact operation type.
func GroupByType(records []HistoricalRecord) Groups {
	g := Groups{records: make(map[string][]HistoricalRecord)}
	for _, rec := range records {
		if _, ok := g.records[rec.OperationType]; !ok {
			g.types = append(g.types, rec.OperationType)
		}
		g.records[rec.OperationType] = append(g.records[rec.OperationType], rec)
	}
	return g
}

// Types returns a copy of the group keys in first-seen order.
func (g Groups) Types() []string {
	out := make([]string, len(g.types))
	copy(out, g.types)
	return out
}

// Records returns a copy of the records for operationType.
func (g Groups) Records(operationType string) []HistoricalRecord {
	src := g.records[operationType]
	out := make([]HistoricalRecord, len(src))
	copy(out, src)
	return out
}

// Len is the number of distinct operation types.
func (g Groups) Len() int {
	return len(g.types)
}
