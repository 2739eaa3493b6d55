package export

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var srtTimeRe = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})`)

// FormatTime renders seconds as an SRT timestamp HH:MM:SS,mmm. Negative input is clamped to 0.
func FormatTime(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	whole := math.Floor(sec)
	ms := int(math.RoundToEven((sec - whole) * 1000))
	if ms > 999 {
		ms = 999
	}
	total := int64(whole)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTime parses an SRT timestamp (comma or dot before milliseconds) into seconds.
func ParseTime(s string) (float64, error) {
	m := srtTimeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("bad srt time %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	se, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	return float64(h*3600+mi*60+se) + float64(ms)/1000, nil
}

// Entry is one subtitle block.
type Entry struct {
	Index int
	Start float64
	End   float64
	Lines []string
}

// WriteSRT writes entries numbered from 1 in the order given.
func WriteSRT(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for i, e := range entries {
		fmt.Fprintf(bw, "%d\n%s --> %s\n", i+1, FormatTime(e.Start), FormatTime(e.End))
		for _, l := range e.Lines {
			fmt.Fprintln(bw, l)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// splitBlocks splits SRT text into non-empty blocks of trimmed-right lines.
func splitBlocks(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")
	var blocks [][]string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks, nil
}

// parseTimeLine parses "start --> end".
func parseTimeLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad time line %q", line)
	}
	start, err := ParseTime(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTime(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ReadSRT parses subtitle blocks best-effort: malformed blocks are skipped with a warning.
func ReadSRT(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	blocks, err := splitBlocks(r)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for bi, b := range blocks {
		if len(b) < 2 {
			warn(logger, "srt block skipped", "block", bi+1, "reason", "too few lines")
			continue
		}
		start, end, err := parseTimeLine(b[1])
		if err != nil {
			warn(logger, "srt block skipped", "block", bi+1, "error", err)
			continue
		}
		idx, _ := strconv.Atoi(strings.TrimSpace(b[0]))
		out = append(out, Entry{Index: idx, Start: start, End: end, Lines: append([]string(nil), b[2:]...)})
	}
	return out, nil
}

// MergeSRT concatenates entry lists, stable-sorts by start and renumbers from 1.
func MergeSRT(lists ...[]Entry) []Entry {
	var all []Entry
	for _, l := range lists {
		all = append(all, l...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })
	for i := range all {
		all[i].Index = i + 1
	}
	return all
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
