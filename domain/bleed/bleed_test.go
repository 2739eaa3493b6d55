package bleed

import (
	"io"
	"log/slog"
	"math"
	"testing"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

// stepSeries returns n samples at fps with value hi inside [from, to) and lo elsewhere.
func stepSeries(n int, fps float64, lo, hi float64, from, to int) ([]float64, []float64) {
	ts := make([]float64, n)
	vs := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = float64(i) / fps
		vs[i] = lo
		if i >= from && i < to {
			vs[i] = hi
		}
	}
	return ts, vs
}

func ratioParams() Params {
	return Params{Metric: "red_ratio", Threshold: 0.03, MinDuration: 3.0, SmoothSeconds: 5.0, FPS: 5}
}

func TestExtract_SingleLongRun(t *testing.T) {
	ts, vs := stepSeries(50, 5, 0.01, 0.05, 10, 30)
	events := Extract(ts, vs, ratioParams(), discardLogger)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if math.Abs(ev.Start-2.0) > 1e-9 || math.Abs(ev.End-5.8) > 1e-9 {
		t.Fatalf("unexpected bounds start=%v end=%v", ev.Start, ev.End)
	}
	if ev.Peak != 0.05 || ev.Type != EventType || ev.Metric != "red_ratio" || ev.Threshold != 0.03 || ev.MinDuration != 3.0 || ev.SmoothSeconds != 5.0 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestExtract_ShortRunDiscarded(t *testing.T) {
	ts, vs := stepSeries(50, 5, 0.01, 0.05, 10, 15)
	x := NewExtractor(ratioParams(), nil)
	for i := range ts {
		x.Feed(ts[i], vs[i])
	}
	if events := x.Finish(); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if x.Discarded() != 1 {
		t.Fatalf("expected one discarded run, got %d", x.Discarded())
	}
}

func TestExtract_MinSamplesBoundary(t *testing.T) {
	p := ratioParams() // min_samples = 15
	ts, vs := stepSeries(40, 5, 0, 1, 5, 5+14)
	if got := Extract(ts, vs, p, nil); len(got) != 0 {
		t.Fatalf("run of min_samples-1 should not emit, got %d", len(got))
	}
	ts, vs = stepSeries(40, 5, 0, 1, 5, 5+15)
	if got := Extract(ts, vs, p, nil); len(got) != 1 {
		t.Fatalf("run of exactly min_samples should emit once, got %d", len(got))
	}
}

func TestExtract_ThresholdIsOutside(t *testing.T) {
	p := Params{Metric: "m", Threshold: 0.5, MinDuration: 0.2, FPS: 5}
	ts := []float64{0, 0.2, 0.4, 0.6, 0.8}
	if got := Extract(ts, []float64{0.5, 0.5, 0.5, 0.5, 0.5}, p, nil); len(got) != 0 {
		t.Fatalf("value equal to threshold must not enter, got %d events", len(got))
	}
	got := Extract(ts, []float64{0.9, 0.9, 0.5, 0.9, 0.1}, p, nil)
	if len(got) != 2 {
		t.Fatalf("value equal to threshold must end a run, got %d events", len(got))
	}
	if got[0].End != 0.2 || got[1].Start != 0.6 || got[1].End != 0.6 {
		t.Fatalf("unexpected runs %+v", got)
	}
}

func TestExtract_OpenRunClosedAtEnd(t *testing.T) {
	ts, vs := stepSeries(30, 5, 0.0, 0.2, 10, 30)
	got := Extract(ts, vs, Params{Threshold: 0.1, MinDuration: 1, FPS: 5}, nil)
	if len(got) != 1 {
		t.Fatalf("expected one event, got %d", len(got))
	}
	if math.Abs(got[0].End-ts[29]) > 1e-12 {
		t.Fatalf("open run should end at the last timestamp, got %v", got[0].End)
	}
}

func TestExtract_PeakIsRunMax(t *testing.T) {
	ts := []float64{0, 1, 2, 3, 4}
	got := Extract(ts, []float64{0, 0.3, 0.7, 0.4, 0}, Params{Threshold: 0.1, MinDuration: 1, FPS: 1}, nil)
	if len(got) != 1 || got[0].Peak != 0.7 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestExtractor_ListenerSeesTransitions(t *testing.T) {
	x := NewExtractor(Params{Threshold: 0.1, MinDuration: 1, FPS: 1}, discardLogger)
	var seen []State
	x.AddListener(func(prev, next State, _ float64) { seen = append(seen, next) })
	x.Feed(0, 0.5)
	if x.Current() != StateInside {
		t.Fatalf("expected inside, got %s", x.Current())
	}
	x.Feed(1, 0.0)
	x.Finish()
	if len(seen) != 2 || seen[0] != StateInside || seen[1] != StateOutside {
		t.Fatalf("unexpected transitions %v", seen)
	}
}

func TestSmooth_LengthAndIdentity(t *testing.T) {
	in := []float64{1, 5, 2, 8, 3, 9, 4}
	for w := 1; w <= 10; w++ {
		if got := Smooth(in, w); len(got) != len(in) {
			t.Fatalf("window %d changed length to %d", w, len(got))
		}
	}
	id := Smooth(in, 1)
	for i := range in {
		if id[i] != in[i] {
			t.Fatalf("window 1 should be identity at %d", i)
		}
	}
	if len(Smooth(nil, 5)) != 0 {
		t.Fatalf("empty input should give empty output")
	}
}

func TestSmooth_CenteredShrinkingWindow(t *testing.T) {
	got := Smooth([]float64{0, 3, 6, 9}, 3)
	want := []float64{1.5, 3, 6, 7.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("smooth[%d]=%v, want %v", i, got[i], want[i])
		}
	}
	// even window W=4 uses half=2 on each side
	got = Smooth([]float64{0, 0, 10, 0, 0}, 4)
	if math.Abs(got[2]-2) > 1e-12 || math.Abs(got[0]-10.0/3) > 1e-12 {
		t.Fatalf("unexpected even window output %v", got)
	}
}

func TestWindowSize(t *testing.T) {
	if WindowSize(5, 5) != 25 {
		t.Fatalf("5s at 5fps should be 25")
	}
	if WindowSize(0, 5) != 1 || WindowSize(0.05, 5) != 1 {
		t.Fatalf("window floor is 1")
	}
	if WindowSize(0.5, 5) != 2 {
		t.Fatalf("2.5 rounds half to even")
	}
}

func TestConstantBelowThreshold_NoEvents(t *testing.T) {
	ts, vs := stepSeries(100, 5, 0.02, 0.02, 0, 0)
	for _, w := range []int{1, 2, 7, 25, 200} {
		if got := Extract(ts, Smooth(vs, w), ratioParams(), nil); len(got) != 0 {
			t.Fatalf("window %d produced %d events", w, len(got))
		}
	}
}
