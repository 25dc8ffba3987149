package aggregator

import "ad-insights-go/internal/types"

type TypeStats struct {
	Total   int `json:"total"`
	OK      int `json:"ok"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// RunStats summarizes one run for the final log line and the API response.
type RunStats struct {
	TypeStats
	ByType map[types.AdType]TypeStats `json:"by_type"`
}

// Stats counts outcomes per ad type. Records without a result count as errors.
func Stats(records []types.AdRecord, results map[string]types.AnalysisResult) RunStats {
	out := RunStats{ByType: map[types.AdType]TypeStats{}}
	for _, rec := range records {
		res, ok := results[rec.ID]
		if !ok {
			res = types.Failed()
		}
		ts := out.ByType[rec.Type]
		ts.Total++
		out.Total++
		switch {
		case res.IsError():
			ts.Errors++
			out.Errors++
		case res.IsSkipped():
			ts.Skipped++
			out.Skipped++
		default:
			ts.OK++
			out.OK++
		}
		out.ByType[rec.Type] = ts
	}
	return out
}
