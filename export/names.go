package export

import (
	"path/filepath"
	"strings"

	"github.com/soocke/bleedscan-go/domain/metrics"
)

// Names are the output file names of one analysed video.
type Names struct {
	CSV     string
	JSONL   string
	SRT     string
	Archive string
	Plot    string
}

var suffixes = map[metrics.Variant][3]string{
	metrics.VariantRatio:     {"_redlog.csv", "_events.jsonl", "_bleed.srt"},
	metrics.VariantExpansion: {"_bleedlog.csv", "_bleed_events.jsonl", "_bleed_expansion.srt"},
	metrics.VariantSpread:    {"_spreadlog.csv", "_spread_events.jsonl", "_bleed_spread.srt"},
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NamesFor returns the outputs for stem in dir. An empty dir keeps names relative.
func NamesFor(dir, stem string, v metrics.Variant) Names {
	s := suffixes[v]
	join := func(name string) string {
		if dir == "" {
			return name
		}
		return filepath.Join(dir, name)
	}
	return Names{
		CSV:     join(stem + s[0]),
		JSONL:   join(stem + s[1]),
		SRT:     join(stem + s[2]),
		Archive: join(stem + "_" + v.String() + ".cbor"),
		Plot:    join(stem + "_" + v.String() + "_plot.html"),
	}
}

// StemFromCSV strips the series CSV suffix of any variant from a file name, so that
// annotating "clip_redlog.csv" writes next to it as "clip_events.jsonl".
func StemFromCSV(path string) string {
	base := filepath.Base(path)
	for _, s := range suffixes {
		if strings.HasSuffix(base, s[0]) {
			return strings.TrimSuffix(base, s[0])
		}
	}
	return Stem(path)
}
