package pipeline

import (
	"client-report-card/internal/model"
	"client-report-card/pkg/utils"
)

// Aggregate merges records that share a URL. The first record for a URL
// seeds the result with its whole response; each later record adds its
// numeric fields onto the running totals. Records without a URL or whose
// response is not a Mapping are skipped. Output keeps the order in which
// each URL was first seen.
func Aggregate(records []model.NormalizedRecord) []model.AggregatedRecord {
	out := make([]model.AggregatedRecord, 0)
	index := make(map[string]int)

	for _, rec := range records {
		if rec.URL == "" || rec.Response.Kind() != model.KindMap {
			continue
		}
		i, seen := index[rec.URL]
		if !seen {
			index[rec.URL] = len(out)
			out = append(out, model.AggregatedRecord{
				URL:      rec.URL,
				Records:  1,
				Response: rec.Response.Clone(),
			})
			continue
		}
		mergeTotals(&out[i].Response, rec.Response)
		out[i].Records++
	}
	return out
}

// mergeTotals adds every numeric field of next onto acc. A non-numeric
// accumulator value counts as zero, so the numeric value replaces it.
func mergeTotals(acc *model.Value, next model.Value) {
	for _, key := range next.Keys() {
		item, _ := next.Get(key)
		n, ok := numeric(item)
		if !ok {
			continue
		}
		if cur, exists := acc.Get(key); exists {
			if total, isNum := numeric(cur); isNum {
				acc.Set(key, model.Number(total+n))
				continue
			}
		}
		acc.Set(key, model.Number(n))
	}
}

// numeric accepts numbers and numeric strings.
func numeric(v model.Value) (float64, bool) {
	if n, ok := v.Num(); ok {
		return n, true
	}
	if s, ok := v.Str(); ok {
		return utils.ParseNumber(s)
	}
	return 0, false
}
