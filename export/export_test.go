package export

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/metrics"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleEvent(start, end, peak float64) bleed.Event {
	return bleed.Event{Type: bleed.EventType, Metric: "red_ratio", Threshold: 0.03, MinDuration: 3, SmoothSeconds: 5, Peak: peak, Start: start, End: end}
}

func TestFormatTime(t *testing.T) {
	cases := map[float64]string{
		0:         "00:00:00,000",
		-3:        "00:00:00,000",
		2.0:       "00:00:02,000",
		5.8:       "00:00:05,800",
		3661.25:   "01:01:01,250",
		59.9996:   "00:00:59,999",
		36000.001: "10:00:00,001",
	}
	for in, want := range cases {
		if got := FormatTime(in); got != want {
			t.Fatalf("FormatTime(%v)=%q, want %q", in, got, want)
		}
	}
}

func TestParseTime(t *testing.T) {
	v, err := ParseTime("01:02:03,450")
	if err != nil || math.Abs(v-3723.45) > 1e-9 {
		t.Fatalf("ParseTime = %v, %v", v, err)
	}
	if v, err := ParseTime("0:00:01.500"); err != nil || v != 1.5 {
		t.Fatalf("dot separator and single hour digit: %v, %v", v, err)
	}
	if _, err := ParseTime("garbage"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWriteEvents_FieldsAndRounding(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEvents(&buf, []bleed.Event{sampleEvent(2, 5.8, 0.0500000004)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	for _, key := range []string{`"type":"bleed_candidate"`, `"metric":"red_ratio"`, `"thr":0.03`, `"k_s":3`, `"smooth_s":5`, `"delta_max":0.05,`, `"start_sec":2`, `"end_sec":5.8`, `"start_srt":"00:00:02,000"`, `"end_srt":"00:00:05,800"`} {
		if !strings.Contains(line, key) {
			t.Fatalf("missing %s in %s", key, line)
		}
	}
}

func TestReadRecords_SkipsMalformedAndSorts(t *testing.T) {
	in := `{"type":"bleed_candidate","start_sec":9,"end_sec":10}
not json at all
{"type":"bleed_candidate","start_sec":1,"end_sec":2}

`
	recs, err := ReadRecords(strings.NewReader(in), discardLogger)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 2 || recs[0].Start != 1 || recs[1].Start != 9 {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestRecordsToSRT_FilterTagAndNumbering(t *testing.T) {
	recs := []Record{
		NewRecord(sampleEvent(10, 12, 0.1)),
		{Event: bleed.Event{Type: "cut", Start: 1, End: 1.04}},
		NewRecord(sampleEvent(3, 4, 0.2)),
	}
	entries := RecordsToSRT(recs, bleed.EventType)
	if len(entries) != 2 {
		t.Fatalf("expected 2 bleed entries, got %d", len(entries))
	}
	if entries[0].Index != 1 || entries[0].Start != 3 || entries[1].Index != 2 {
		t.Fatalf("entries not sorted/numbered: %+v", entries)
	}
	if entries[0].Lines[0] != "[bleed] delta_over_threshold" {
		t.Fatalf("unexpected tag %q", entries[0].Lines[0])
	}
	if strings.Contains(entries[0].Lines[1], "start_sec") || strings.Contains(entries[0].Lines[1], "end_srt") {
		t.Fatalf("time keys must not appear in metadata: %s", entries[0].Lines[1])
	}
	all := RecordsToSRT(recs, "")
	if len(all) != 3 || all[0].Lines[0] != "[cut] transnet" {
		t.Fatalf("unfiltered output wrong: %+v", all)
	}
	if TagFor("other") != "[other] event" {
		t.Fatalf("fallback tag wrong")
	}
}

func TestSRTRoundTrip_BestEffort(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSRT(&buf, RecordsToSRT([]Record{NewRecord(sampleEvent(2, 5.8, 0.05))}, "")); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	edited := buf.String() + `
2
00:00:07,000 --> bogus
[bleed] delta_over_threshold

3
00:00:09,000 --> 00:00:10,500
[bleed] reviewer added
{broken json

4
only two lines
`
	recs, err := SRTToRecords(strings.NewReader(edited), discardLogger)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recovered records, got %d: %+v", len(recs), recs)
	}
	first := recs[0]
	if first.Type != bleed.EventType || first.Metric != "red_ratio" || first.Peak != 0.05 || first.Start != 2 || first.End != 5.8 {
		t.Fatalf("first record lost fields: %+v", first)
	}
	second := recs[1]
	if second.Type != bleed.EventType || second.Metric != "" || second.Start != 9 || second.End != 10.5 || second.EndSRT != "00:00:10,500" {
		t.Fatalf("second record wrong: %+v", second)
	}
}

func TestMergeSRT_SortsAndRenumbers(t *testing.T) {
	a := []Entry{{Index: 1, Start: 5, End: 6, Lines: []string{"a1"}}, {Index: 2, Start: 20, End: 21, Lines: []string{"a2"}}}
	b := []Entry{{Index: 1, Start: 1, End: 2, Lines: []string{"b1"}}, {Index: 2, Start: 5, End: 5.5, Lines: []string{"b2"}}}
	m := MergeSRT(a, b)
	want := []string{"b1", "a1", "b2", "a2"}
	for i, e := range m {
		if e.Index != i+1 || e.Lines[0] != want[i] {
			t.Fatalf("merged[%d] = %+v, want %s", i, e, want[i])
		}
	}
	var buf bytes.Buffer
	_ = WriteSRT(&buf, m)
	back, err := ReadSRT(&buf, nil)
	if err != nil || len(back) != 4 || back[3].Start != 20 {
		t.Fatalf("reparse failed: %v %+v", err, back)
	}
}

func ratioSeries() *metrics.Series {
	return &metrics.Series{
		Variant:  metrics.VariantRatio,
		Reader:   "gstreamer",
		Samples:  []metrics.Sample{{T: 0, RedRatio: 0.1}, {T: 0.2, RedRatio: 0.15, Delta: 0.05}, {T: 0.4, RedRatio: 0.15}},
		Smoothed: []float64{0.025, 0.0166667, 0.025},
	}
}

func TestSeriesCSV_WriteThenRead(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSeries(&buf, ratioSeries()); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "t_sec,t_srt,red_ratio,delta,smooth_delta,reader" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[2] != `0.200,"00:00:00,200",0.150000,0.050000,0.016667,gstreamer` {
		t.Fatalf("unexpected row %q", lines[2])
	}
	s, err := ReadSeries(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Variant != metrics.VariantRatio || s.Reader != "gstreamer" || len(s.Samples) != 3 || s.Samples[1].Delta != 0.05 {
		t.Fatalf("unexpected series %+v", s)
	}
}

func TestReadSeries_StrictFailures(t *testing.T) {
	bad := "t_sec,t_srt,red_ratio,delta,smooth_delta,reader\n0.000,x,0.1,0,0,opencv\n0.200,x,NaNish,0,0,opencv\n"
	if _, err := ReadSeries(strings.NewReader(bad)); err == nil || !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("expected row 3 failure, got %v", err)
	}
	short := "t_sec,t_srt,red_ratio,delta,smooth_delta,reader\n0.000,x,0.1\n"
	if _, err := ReadSeries(strings.NewReader(short)); err == nil {
		t.Fatalf("expected failure on short row")
	}
	if _, err := ReadSeries(strings.NewReader("a,b,c\n1,2,3\n")); !errors.Is(err, ErrUnknownHeader) {
		t.Fatalf("expected ErrUnknownHeader, got %v", err)
	}
}

func TestReadSeries_DetectsSpread(t *testing.T) {
	in := "t_sec,t_srt,red_ratio,max_cell_delta,delta_std,spread_score,smooth_spread,n_rising_cells,reader\n" +
		"0.000,00:00:00,000,0.2,0,0,0,0,0,opencv\n"
	// the unquoted comma in t_srt makes the row too wide and must fail
	if _, err := ReadSeries(strings.NewReader(in)); err == nil {
		t.Fatalf("expected failure on malformed row")
	}
	in = "t_sec,t_srt,red_ratio,max_cell_delta,delta_std,spread_score,smooth_spread,n_rising_cells,reader\n" +
		"0.000,\"00:00:00,000\",0.2,0.1,0.05,0.005,0.004,3,opencv\n"
	s, err := ReadSeries(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.Variant != metrics.VariantSpread || s.Samples[0].NRisingCells != 3 || s.Smoothed[0] != 0.004 {
		t.Fatalf("unexpected spread series %+v", s)
	}
}

func TestSeriesToSRT_Intervals(t *testing.T) {
	entries, err := SeriesToSRT(ratioSeries(), nil)
	if err != nil {
		t.Fatalf("series to srt: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].End != 0.2 || math.Abs(entries[2].End-0.6) > 1e-12 {
		t.Fatalf("unexpected intervals %+v", entries)
	}
	if entries[1].Lines[0] != "red=0.1500  |  Δs=0.0167" {
		t.Fatalf("unexpected text %q", entries[1].Lines[0])
	}
	single := &metrics.Series{Variant: metrics.VariantRatio, Samples: []metrics.Sample{{T: 1}}, Smoothed: []float64{0}}
	one, _ := SeriesToSRT(single, []string{"delta"})
	if one[0].End != 1.2 || one[0].Lines[0] != "Δ=0.0000" {
		t.Fatalf("single entry wrong: %+v", one[0])
	}
	if _, err := SeriesToSRT(single, []string{"spread_score"}); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestArchive_RoundTrip(t *testing.T) {
	s := ratioSeries()
	s.FPS = 5
	a := NewArchive("sid", "video.mp4", s, []bleed.Event{sampleEvent(0, 0.4, 0.05)}, ArchiveParams{Threshold: 0.03, MinDuration: 3, SmoothSeconds: 5})
	var buf bytes.Buffer
	if err := WriteArchive(&buf, a); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadArchive(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	back, err := got.Series()
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if got.SessionID != "sid" || len(got.Events) != 1 || back.Variant != metrics.VariantRatio || len(back.Samples) != 3 || back.FPS != 5 {
		t.Fatalf("archive lost data: %+v", got)
	}
}

func TestWriteChart_HTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, "video.mp4", ratioSeries(), []bleed.Event{sampleEvent(0.2, 0.4, 0.05)}, 0.03); err != nil {
		t.Fatalf("chart: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "echarts") || !strings.Contains(html, "smooth_delta") {
		t.Fatalf("chart html missing content")
	}
	bad := ratioSeries()
	bad.Smoothed = bad.Smoothed[:1]
	if err := WriteChart(&buf, "x", bad, nil, 0.03); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestNamesFor(t *testing.T) {
	n := NamesFor("out", Stem("/videos/case 01.mp4"), metrics.VariantExpansion)
	want := Names{
		CSV:     "out/case 01_bleedlog.csv",
		JSONL:   "out/case 01_bleed_events.jsonl",
		SRT:     "out/case 01_bleed_expansion.srt",
		Archive: "out/case 01_expansion.cbor",
		Plot:    "out/case 01_expansion_plot.html",
	}
	if n != want {
		t.Fatalf("got %+v want %+v", n, want)
	}
	r := NamesFor("", "clip", metrics.VariantRatio)
	if r.CSV != "clip_redlog.csv" || r.JSONL != "clip_events.jsonl" || r.SRT != "clip_bleed.srt" {
		t.Fatalf("unexpected ratio names %+v", r)
	}
	if s := NamesFor("", "clip", metrics.VariantSpread); s.SRT != "clip_bleed_spread.srt" || s.JSONL != "clip_spread_events.jsonl" {
		t.Fatalf("unexpected spread names %+v", s)
	}
	if StemFromCSV("dir/clip_spreadlog.csv") != "clip" || StemFromCSV("other.csv") != "other" {
		t.Fatalf("StemFromCSV failed")
	}
}
