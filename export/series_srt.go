package export

import (
	"fmt"
	"strings"

	"github.com/soocke/bleedscan-go/domain/metrics"
)

// lastEntrySeconds is the duration of the final entry when no previous interval exists.
const lastEntrySeconds = 0.2

var columnLabels = map[string]string{
	"red_ratio":        "red",
	"delta":            "Δ",
	"smooth_delta":     "Δs",
	"red_expansion":    "exp",
	"smooth_expansion": "exp_s",
	"spread_score":     "spread",
	"smooth_spread":    "spread_s",
}

// DefaultSeriesColumns returns red_ratio plus the variant's smoothed column.
func DefaultSeriesColumns(v metrics.Variant) []string {
	return []string{"red_ratio", SmoothColumn(v)}
}

// SeriesToSRT renders one subtitle per sample showing the chosen columns. Each entry
// lasts until the next sample; the last reuses the previous interval (or 0.2 s).
func SeriesToSRT(s *metrics.Series, columns []string) ([]Entry, error) {
	if len(columns) == 0 {
		columns = DefaultSeriesColumns(s.Variant)
	}
	values := make([][]float64, len(columns))
	for i, c := range columns {
		col, ok := Column(s, c)
		if !ok {
			return nil, fmt.Errorf("column %q not in %s series", c, s.Variant)
		}
		values[i] = col
	}
	n := len(s.Samples)
	out := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		start := s.Samples[i].T
		var end float64
		switch {
		case i+1 < n:
			end = s.Samples[i+1].T
		case i > 0:
			end = start + (start - s.Samples[i-1].T)
		default:
			end = start + lastEntrySeconds
		}
		parts := make([]string, len(columns))
		for j, c := range columns {
			label, ok := columnLabels[c]
			if !ok {
				label = c
			}
			parts[j] = fmt.Sprintf("%s=%.4f", label, values[j][i])
		}
		out = append(out, Entry{Index: i + 1, Start: start, End: end, Lines: []string{strings.Join(parts, "  |  ")}})
	}
	return out, nil
}
