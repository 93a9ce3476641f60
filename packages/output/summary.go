package output

import (
	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/abdul-hamid-achik/hitdesk/packages/backend"
)

// Summary aggregates a result list. Percentiles cover only results that
// report a duration.
type Summary struct {
	Total   int   `json:"total"`
	Passed  int   `json:"passed"`
	Failed  int   `json:"failed"`
	Skipped int   `json:"skipped"`
	Timed   int   `json:"timed"`
	P50Ms   int64 `json:"p50_ms"`
	P95Ms   int64 `json:"p95_ms"`
	MaxMs   int64 `json:"max_ms"`
}

// Summarize counts results and computes duration percentiles. A nil entry
// counts as failed.
func Summarize(results []*backend.ExecutionResult) Summary {
	s := Summary{Total: len(results)}
	hist := hdrhistogram.New(1, 3_600_000, 3)

	for _, r := range results {
		switch {
		case r == nil:
			s.Failed++
			continue
		case r.Skipped:
			s.Skipped++
		case r.Success:
			s.Passed++
		default:
			s.Failed++
		}
		if r.DurationMs != nil {
			if err := hist.RecordValue(*r.DurationMs); err == nil {
				s.Timed++
			}
		}
	}

	if s.Timed > 0 {
		s.P50Ms = hist.ValueAtQuantile(50)
		s.P95Ms = hist.ValueAtQuantile(95)
		s.MaxMs = hist.Max()
	}
	return s
}
