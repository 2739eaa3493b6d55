package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soocke/bleedscan-go/domain/metrics"
)

// ErrUnknownHeader is returned when a CSV header matches no known series layout.
var ErrUnknownHeader = errors.New("export: unknown series csv header")

var headers = map[metrics.Variant][]string{
	metrics.VariantRatio:     {"t_sec", "t_srt", "red_ratio", "delta", "smooth_delta", "reader"},
	metrics.VariantExpansion: {"t_sec", "t_srt", "red_ratio", "newly_red_ratio", "bg_stability", "red_expansion", "smooth_expansion", "reader"},
	metrics.VariantSpread:    {"t_sec", "t_srt", "red_ratio", "max_cell_delta", "delta_std", "spread_score", "smooth_spread", "n_rising_cells", "reader"},
}

// Header returns the CSV columns for a variant.
func Header(v metrics.Variant) []string { return append([]string(nil), headers[v]...) }

// SmoothColumn returns the name of a variant's smoothed column.
func SmoothColumn(v metrics.Variant) string {
	switch v {
	case metrics.VariantExpansion:
		return "smooth_expansion"
	case metrics.VariantSpread:
		return "smooth_spread"
	default:
		return "smooth_delta"
	}
}

// DetectVariant identifies the series layout from a header row.
func DetectVariant(header []string) (metrics.Variant, error) {
	for v, cols := range headers {
		if equalCols(cols, header) {
			return v, nil
		}
	}
	return metrics.VariantRatio, fmt.Errorf("%w: %s", ErrUnknownHeader, strings.Join(header, ","))
}

func equalCols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

func f6(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// WriteSeries writes one row per sample in the variant's column layout.
func WriteSeries(w io.Writer, s *metrics.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers[s.Variant]); err != nil {
		return err
	}
	for i, x := range s.Samples {
		smooth := 0.0
		if i < len(s.Smoothed) {
			smooth = s.Smoothed[i]
		}
		row := []string{strconv.FormatFloat(x.T, 'f', 3, 64), FormatTime(x.T), f6(x.RedRatio)}
		switch s.Variant {
		case metrics.VariantExpansion:
			row = append(row, f6(x.NewlyRedRatio), f6(x.BgStability), f6(x.RedExpansion), f6(smooth))
		case metrics.VariantSpread:
			row = append(row, f6(x.MaxCellDelta), f6(x.DeltaStd), f6(x.SpreadScore), f6(smooth), strconv.Itoa(x.NRisingCells))
		default:
			row = append(row, f6(x.Delta), f6(smooth))
		}
		row = append(row, s.Reader)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadSeries parses a series CSV strictly: any malformed row fails the whole read, since
// dropping samples would shift every downstream peak and interval. FPS is left 0 for
// the caller to estimate from the timestamps.
func ReadSeries(r io.Reader) (*metrics.Series, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	v, err := DetectVariant(header)
	if err != nil {
		return nil, err
	}
	s := &metrics.Series{Variant: v}
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		x, smooth, reader, err := parseRow(v, rec)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		if s.Reader == "" {
			s.Reader = reader
		}
		s.Samples = append(s.Samples, x)
		s.Smoothed = append(s.Smoothed, smooth)
	}
	return s, nil
}

func parseRow(v metrics.Variant, rec []string) (metrics.Sample, float64, string, error) {
	var x metrics.Sample
	p := rowParser{rec: rec}
	x.T = p.float(0)
	x.RedRatio = p.float(2)
	var smooth float64
	switch v {
	case metrics.VariantExpansion:
		x.NewlyRedRatio = p.float(3)
		x.BgStability = p.float(4)
		x.RedExpansion = p.float(5)
		smooth = p.float(6)
	case metrics.VariantSpread:
		x.MaxCellDelta = p.float(3)
		x.DeltaStd = p.float(4)
		x.SpreadScore = p.float(5)
		smooth = p.float(6)
		x.NRisingCells = p.int(7)
	default:
		x.Delta = p.float(3)
		smooth = p.float(4)
	}
	if p.err != nil {
		return x, 0, "", p.err
	}
	return x, smooth, strings.TrimSpace(rec[len(rec)-1]), nil
}

// rowParser records the first conversion error so a row can be parsed field by field.
type rowParser struct {
	rec []string
	err error
}

func (p *rowParser) float(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.rec[i]), 64)
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

func (p *rowParser) int(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(p.rec[i]))
	if err != nil {
		p.err = fmt.Errorf("column %d: %w", i+1, err)
	}
	return v
}

// Column extracts a named CSV column from a series as float64 values.
func Column(s *metrics.Series, name string) ([]float64, bool) {
	var get func(i int, x metrics.Sample) float64
	switch name {
	case "t_sec":
		get = func(_ int, x metrics.Sample) float64 { return x.T }
	case "red_ratio":
		get = func(_ int, x metrics.Sample) float64 { return x.RedRatio }
	case "delta":
		get = func(_ int, x metrics.Sample) float64 { return x.Delta }
	case "newly_red_ratio":
		get = func(_ int, x metrics.Sample) float64 { return x.NewlyRedRatio }
	case "bg_stability":
		get = func(_ int, x metrics.Sample) float64 { return x.BgStability }
	case "red_expansion":
		get = func(_ int, x metrics.Sample) float64 { return x.RedExpansion }
	case "max_cell_delta":
		get = func(_ int, x metrics.Sample) float64 { return x.MaxCellDelta }
	case "delta_std":
		get = func(_ int, x metrics.Sample) float64 { return x.DeltaStd }
	case "spread_score":
		get = func(_ int, x metrics.Sample) float64 { return x.SpreadScore }
	case "n_rising_cells":
		get = func(_ int, x metrics.Sample) float64 { return float64(x.NRisingCells) }
	case "smooth_delta", "smooth_expansion", "smooth_spread":
		if name != SmoothColumn(s.Variant) {
			return nil, false
		}
		get = func(i int, _ metrics.Sample) float64 {
			if i < len(s.Smoothed) {
				return s.Smoothed[i]
			}
			return 0
		}
	default:
		return nil, false
	}
	if !hasColumn(s.Variant, name) {
		return nil, false
	}
	out := make([]float64, len(s.Samples))
	for i, x := range s.Samples {
		out[i] = get(i, x)
	}
	return out, true
}

func hasColumn(v metrics.Variant, name string) bool {
	for _, c := range headers[v] {
		if c == name {
			return true
		}
	}
	return false
}
