package estimator

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cacheKey struct {
	drawingNumber string
	quantity      int
	workType      string
}

// resultCache is a short-lived read-through cache of suggestion results.
// Stored and returned results are copies so callers cannot alias entries.
type resultCache struct {
	lru *expirable.LRU[cacheKey, Result]
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 || ttl <= 0 {
		return nil
	}
	return &resultCache{lru: expirable.NewLRU[cacheKey, Result](size, nil, ttl)}
}

func (c *resultCache) get(key cacheKey) (Result, bool) {
	res, ok := c.lru.Get(key)
	if !ok {
		return Result{}, false
	}
	return cloneResult(res), true
}

func (c *resultCache) add(key cacheKey, res Result) {
	c.lru.Add(key, cloneResult(res))
}

func (c *resultCache) len() int {
	return c.lru.Len()
}

func cloneResult(res Result) Result {
	out := Result{Source: res.Source, Degraded: res.Degraded}
	out.Suggestions = make([]Suggestion, len(res.Suggestions))
	for i, s := range res.Suggestions {
		s.HistoricalData = append([]HistoricalSample(nil), s.HistoricalData...)
		if s.HistoricalData == nil {
			s.HistoricalData = []HistoricalSample{}
		}
		out.Suggestions[i] = s
	}
	return out
}
