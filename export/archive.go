package export

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/metrics"
)

// Archive is a complete session in one binary document: samples, smoothed signal,
// events and the parameters that produced them.
type Archive struct {
	SessionID string           `cbor:"session_id"`
	Source    string           `cbor:"source"`
	Variant   string           `cbor:"variant"`
	Reader    string           `cbor:"reader"`
	FPS       float64          `cbor:"fps"`
	Params    ArchiveParams    `cbor:"params"`
	Samples   []metrics.Sample `cbor:"samples"`
	Smoothed  []float64        `cbor:"smoothed"`
	Events    []bleed.Event    `cbor:"events"`
}

// ArchiveParams records the segmentation parameters.
type ArchiveParams struct {
	Threshold     float64 `cbor:"thr"`
	MinDuration   float64 `cbor:"k_s"`
	SmoothSeconds float64 `cbor:"smooth_s"`
}

// NewArchive bundles a session.
func NewArchive(id, src string, s *metrics.Series, events []bleed.Event, p ArchiveParams) Archive {
	return Archive{
		SessionID: id,
		Source:    src,
		Variant:   s.Variant.String(),
		Reader:    s.Reader,
		FPS:       s.FPS,
		Params:    p,
		Samples:   s.Samples,
		Smoothed:  s.Smoothed,
		Events:    events,
	}
}

// Series rebuilds the metric series held by the archive.
func (a Archive) Series() (*metrics.Series, error) {
	v, err := metrics.ParseVariant(a.Variant)
	if err != nil {
		return nil, err
	}
	return &metrics.Series{Variant: v, Reader: a.Reader, FPS: a.FPS, Samples: a.Samples, Smoothed: a.Smoothed}, nil
}

// WriteArchive encodes the archive as CBOR.
func WriteArchive(w io.Writer, a Archive) error {
	if err := cbor.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	return nil
}

// ReadArchive decodes a CBOR archive.
func ReadArchive(r io.Reader) (Archive, error) {
	var a Archive
	if err := cbor.NewDecoder(r).Decode(&a); err != nil {
		return a, fmt.Errorf("decode archive: %w", err)
	}
	return a, nil
}
