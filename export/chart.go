package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/metrics"
)

// signalColumn is the raw column a variant smooths.
func signalColumn(v metrics.Variant) string {
	switch v {
	case metrics.VariantExpansion:
		return "red_expansion"
	case metrics.VariantSpread:
		return "spread_score"
	default:
		return "delta"
	}
}

func pairs(ts, vs []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(ts))
	for i := range ts {
		items = append(items, opts.LineData{Value: []interface{}{ts[i], vs[i]}})
	}
	return items
}

// eventEnvelope is the event peak inside each event interval and 0 elsewhere.
func eventEnvelope(ts []float64, events []bleed.Event) []float64 {
	out := make([]float64, len(ts))
	for _, ev := range events {
		for i, t := range ts {
			if t >= ev.Start && t <= ev.End && ev.Peak > out[i] {
				out[i] = ev.Peak
			}
		}
	}
	return out
}

// NewChart builds an interactive line chart of a series: red ratio, raw and smoothed
// signal, a threshold mark line and the envelope of detected events.
func NewChart(title string, s *metrics.Series, events []bleed.Event, thr float64) *charts.Line {
	ts := s.Times()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%s (%s), thr=%g", s.Variant, s.Reader, thr),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "t (s)",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	red, _ := Column(s, "red_ratio")
	raw, _ := Column(s, signalColumn(s.Variant))
	line.AddSeries("red_ratio", pairs(ts, red)).
		AddSeries(signalColumn(s.Variant), pairs(ts, raw)).
		AddSeries(SmoothColumn(s.Variant), pairs(ts, s.Smoothed),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "thr", YAxis: thr}),
		).
		AddSeries("events", pairs(ts, eventEnvelope(ts, events)))
	line.SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

// WriteChart renders the chart as a standalone HTML page.
func WriteChart(w io.Writer, title string, s *metrics.Series, events []bleed.Event, thr float64) error {
	if len(s.Smoothed) != len(s.Samples) {
		return fmt.Errorf("series has %d samples but %d smoothed values", len(s.Samples), len(s.Smoothed))
	}
	return NewChart(title, s, events, thr).Render(w)
}
