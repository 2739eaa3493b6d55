package presenter

import (
	"fmt"
	"image"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/soocke/bleedscan-go/domain/redness"
	"github.com/soocke/bleedscan-go/ui/images"
	"github.com/soocke/bleedscan-go/ui/model"
)

// FrameSource fetches the frame nearest to a timestamp of a video.
type FrameSource interface {
	FrameAt(src string, t float64) (*image.RGBA, error)
}

// ReviewView describes the UI surface updated by the presenter.
type ReviewView interface {
	SetEvents(labels []string, selected int)
	SetSelected(i int)
	SetStateLabel(text string)
	SetPreview(img image.Image)
	SetSummary(count int, coveredSeconds float64)
}

// PreviewOptions controls how event frames are rendered.
type PreviewOptions struct {
	Classifier redness.Classifier
	ROIMargin  float64
	NoROI      bool
	MaxW, MaxH int
	CacheSize  int
}

// DefaultPreviewOptions matches the default classification settings.
func DefaultPreviewOptions() PreviewOptions {
	return PreviewOptions{Classifier: redness.DefaultClassifier(), ROIMargin: 0.08, MaxW: 640, MaxH: 360, CacheSize: 32}
}

// ReviewPresenter steps through events and shows the annotated frame at each event start.
// Rendered previews are cached by event index.
type ReviewPresenter struct {
	model  *model.ReviewModel
	frames FrameSource
	video  string
	opts   PreviewOptions
	view   ReviewView
	cache  *lru.Cache[int, image.Image]
	logger *slog.Logger
}

func NewReviewPresenter(m *model.ReviewModel, frames FrameSource, video string, opts PreviewOptions, view ReviewView, logger *slog.Logger) (*ReviewPresenter, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 32
	}
	cache, err := lru.New[int, image.Image](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("preview cache: %w", err)
	}
	return &ReviewPresenter{model: m, frames: frames, video: video, opts: opts, view: view, cache: cache, logger: logger}, nil
}

// Start populates the selector and shows the first event.
func (p *ReviewPresenter) Start() {
	if p == nil || p.view == nil {
		return
	}
	p.view.SetEvents(p.model.Labels(), p.model.Index())
	p.view.SetSummary(p.model.Len(), p.model.Covered())
	p.show()
}

// Next shows the following event. Idempotent at the last event.
func (p *ReviewPresenter) Next() {
	if p != nil && p.model.Next() {
		p.view.SetSelected(p.model.Index())
		p.show()
	}
}

// Prev shows the preceding event. Idempotent at the first event.
func (p *ReviewPresenter) Prev() {
	if p != nil && p.model.Prev() {
		p.view.SetSelected(p.model.Index())
		p.show()
	}
}

// Select shows event i, as chosen in the selector.
func (p *ReviewPresenter) Select(i int) {
	if p != nil && p.model.Select(i) {
		p.show()
	}
}

func (p *ReviewPresenter) show() {
	ev, ok := p.model.Current()
	if !ok {
		p.view.SetStateLabel("No events")
		p.view.SetPreview(nil)
		return
	}
	i := p.model.Index()
	p.view.SetStateLabel(fmt.Sprintf("Event %d/%d  %.2fs - %.2fs  peak=%.4f", i+1, p.model.Len(), ev.Start, ev.End, ev.Peak))
	img, ok := p.cache.Get(i)
	if !ok {
		var err error
		img, err = p.render(ev.Start)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("preview frame unavailable", "event", i+1, "t", ev.Start, "error", err)
			}
			p.view.SetStateLabel(fmt.Sprintf("Event %d/%d  frame unavailable: %v", i+1, p.model.Len(), err))
			p.view.SetPreview(nil)
			return
		}
		p.cache.Add(i, img)
	}
	p.view.SetPreview(img)
}

func (p *ReviewPresenter) render(t float64) (image.Image, error) {
	frame, err := p.frames.FrameAt(p.video, t)
	if err != nil {
		return nil, err
	}
	b := frame.Bounds()
	var roi *redness.Mask
	if !p.opts.NoROI {
		roi = redness.CircularROI(b.Dy(), b.Dx(), p.opts.ROIMargin)
	}
	red := p.opts.Classifier.Classify(frame, roi)
	view := images.CropToMask(images.Overlay(frame, red, roi), roi)
	return images.ScaleToFit(view, p.opts.MaxW, p.opts.MaxH), nil
}

// CacheLen reports the number of cached previews.
func (p *ReviewPresenter) CacheLen() int { return p.cache.Len() }
