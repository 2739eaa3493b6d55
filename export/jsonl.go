package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/soocke/bleedscan-go/domain/bleed"
)

// Record is the canonical JSONL form of an event: the event fields followed by SRT
// renderings of its bounds.
type Record struct {
	bleed.Event
	StartSRT string `json:"start_srt"`
	EndSRT   string `json:"end_srt"`
}

// meta is the subset of a record carried in SRT blocks; time keys live on the time line.
type meta struct {
	Type          string  `json:"type"`
	Metric        string  `json:"metric"`
	Threshold     float64 `json:"thr"`
	MinDuration   float64 `json:"k_s"`
	SmoothSeconds float64 `json:"smooth_s"`
	Peak          float64 `json:"delta_max"`
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// NewRecord converts an event into its exported form. The peak is rounded to 6 places.
func NewRecord(ev bleed.Event) Record {
	ev.Peak = roundTo(ev.Peak, 6)
	return Record{Event: ev, StartSRT: FormatTime(ev.Start), EndSRT: FormatTime(ev.End)}
}

// WriteEvents writes one JSON object per event.
func WriteEvents(w io.Writer, events []bleed.Event) error {
	recs := make([]Record, len(events))
	for i, ev := range events {
		recs[i] = NewRecord(ev)
	}
	return WriteRecords(w, recs)
}

// WriteRecords writes records as JSON lines.
func WriteRecords(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadRecords reads JSON lines best-effort: malformed lines are skipped with a warning.
// Records are returned sorted by start time.
func ReadRecords(r io.Reader, logger *slog.Logger) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var out []Record
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			warn(logger, "jsonl line skipped", "line", line, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// TagFor returns the human-readable tag line for an event type.
func TagFor(eventType string) string {
	switch eventType {
	case bleed.EventType:
		return "[bleed] delta_over_threshold"
	case "cut":
		return "[cut] transnet"
	default:
		return fmt.Sprintf("[%s] event", eventType)
	}
}

// RecordsToSRT renders records as subtitle entries: tag line then metadata JSON. An
// empty eventType keeps every record.
func RecordsToSRT(recs []Record, eventType string) []Entry {
	sorted := append([]Record(nil), recs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	var out []Entry
	for _, r := range sorted {
		if eventType != "" && r.Type != eventType {
			continue
		}
		m, _ := json.Marshal(meta{
			Type:          r.Type,
			Metric:        r.Metric,
			Threshold:     r.Threshold,
			MinDuration:   r.MinDuration,
			SmoothSeconds: r.SmoothSeconds,
			Peak:          r.Peak,
		})
		out = append(out, Entry{
			Index: len(out) + 1,
			Start: r.Start,
			End:   r.End,
			Lines: []string{TagFor(r.Type), string(m)},
		})
	}
	return out
}

var (
	bleedTagRe = regexp.MustCompile(`^\[bleed\]`)
	cutTagRe   = regexp.MustCompile(`^\[cut\]`)
)

// SRTToRecords recovers records from edited subtitles, best-effort. Blocks without a tag
// line or with bad times are skipped with a warning; unparsable metadata JSON keeps only
// the type derived from the tag.
func SRTToRecords(r io.Reader, logger *slog.Logger) ([]Record, error) {
	blocks, err := splitBlocks(r)
	if err != nil {
		return nil, err
	}
	var out []Record
	for bi, b := range blocks {
		if len(b) < 3 {
			warn(logger, "srt block skipped", "block", bi+1, "reason", "fewer than 3 lines")
			continue
		}
		start, end, err := parseTimeLine(b[1])
		if err != nil {
			warn(logger, "srt block skipped", "block", bi+1, "error", err)
			continue
		}
		tag := strings.TrimSpace(b[2])
		var rec Record
		if len(b) > 3 {
			payload := strings.TrimSpace(strings.Join(b[3:], "\n"))
			if err := json.Unmarshal([]byte(payload), &rec.Event); err != nil {
				warn(logger, "srt metadata ignored", "block", bi+1, "error", err)
				rec = Record{}
			}
		}
		if rec.Type == "" {
			switch {
			case bleedTagRe.MatchString(tag):
				rec.Type = bleed.EventType
			case cutTagRe.MatchString(tag):
				rec.Type = "cut"
			default:
				rec.Type = "unknown"
			}
		}
		rec.Start = roundTo(start, 3)
		rec.End = roundTo(end, 3)
		rec.StartSRT = FormatTime(rec.Start)
		rec.EndSRT = FormatTime(rec.End)
		out = append(out, rec)
	}
	return out, nil
}
