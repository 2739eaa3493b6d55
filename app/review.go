package app

import (
	"fmt"
	"path/filepath"

	"github.com/soocke/bleedscan-go/domain/redness"
	"github.com/soocke/bleedscan-go/ui/model"
	"github.com/soocke/bleedscan-go/ui/presenter"
	"github.com/soocke/bleedscan-go/ui/theme"
	"github.com/soocke/bleedscan-go/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Review opens the event review window for video and blocks until it is closed.
func (a *App) Review(video, eventsPath string, width, height int) error {
	events, err := readEvents(eventsPath, a.logger)
	if err != nil {
		return err
	}
	cfg := a.c.Config
	opts := presenter.DefaultPreviewOptions()
	opts.Classifier = redness.NewClassifier(cfg.SMin, cfg.VMin)
	opts.ROIMargin = cfg.ROIMargin
	opts.NoROI = cfg.NoROI

	theme.Init(false)
	App.WmTitle(fmt.Sprintf("bleedscan review: %s", filepath.Base(video)))
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))

	root := view.NewRootView(a.logger)
	p, err := presenter.NewReviewPresenter(model.NewReviewModel(events), a.c.Seeker, video, opts, root, a.logger)
	if err != nil {
		return err
	}
	exit := func() { Destroy(App) }
	WmProtocol(App, "WM_DELETE_WINDOW", exit)
	root.Build(p.Select, p.Prev, p.Next, exit)
	p.Start()
	a.logger.Info("review started", "video", video, "events", len(events))
	App.Wait()
	return nil
}
