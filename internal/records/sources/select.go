package sources

import (
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"anthemengine/internal/records"
)

// toRecords converts a raw JSON value into a slice of Records.
func toRecords(raw any) []records.Record {
	switch v := raw.(type) {
	case []any:
		out := make([]records.Record, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, records.Record{Data: m})
			}
		}
		return out
	case map[string]any:
		// Single object → single record.
		return []records.Record{{Data: v}}
	default:
		return nil
	}
}

// selectRecords applies q's equality filter, ordering, limit and field
// projection to an in-memory record set.
func selectRecords(recs []records.Record, q records.Query) []records.Record {
	if q.Where != "" {
		want := cast.ToString(q.Equals)
		recs = lo.Filter(recs, func(r records.Record, _ int) bool {
			v, ok := r.Data[q.Where]
			return ok && v != nil && cast.ToString(v) == want
		})
	}

	if len(q.OrderBy) > 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			for _, key := range q.OrderBy {
				if c := compareValues(recs[i].Data[key], recs[j].Data[key]); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[:q.Limit]
	}

	if len(q.Fields) == 0 {
		return recs
	}
	return lo.Map(recs, func(r records.Record, _ int) records.Record {
		return records.Record{Data: lo.PickByKeys(r.Data, q.Fields)}
	})
}

// compareValues orders numbers numerically and everything else by its
// string form. Missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := cast.ToString(a), cast.ToString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
