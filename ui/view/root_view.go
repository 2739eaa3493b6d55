package view

import (
	"image"
	"log/slog"
	"strconv"

	"github.com/soocke/bleedscan-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// RootView composes the review window: event selector, navigation, state line and preview.
type RootView struct {
	logger *slog.Logger

	Stats   EventStats
	Preview Preview

	StateLabel  *TLabelWidget
	EventSelect *TComboboxWidget
	labels      []string
	onSelect    func(int)
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger}
}

// Build constructs the layout. Handlers are invoked on user actions.
func (rv *RootView) Build(onSelect func(int), onPrev, onNext, onExit func()) {
	if rv == nil {
		return
	}
	rv.onSelect = onSelect
	rv.Stats = NewEventStats(nil, 0, 0)
	rv.StateLabel = TLabel(Txt("State: <none>"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(0), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(1), Column(0), Columnspan(3), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	rv.EventSelect = TCombobox(Values([]string{"<none>"}), Width(30))
	Grid(rv.EventSelect, In(btnFrame), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(rv.EventSelect, "<<ComboboxSelected>>", Command(func() {
		idx, err := strconv.Atoi(rv.EventSelect.Current(nil))
		if err != nil || idx < 0 || idx >= len(rv.labels) {
			if rv.logger != nil {
				rv.logger.Error("event selection parse error", "error", err)
			}
			return
		}
		if rv.onSelect != nil {
			rv.onSelect(idx)
		}
	}))
	Grid(TButton(Txt("< Prev"), Style(theme.StylePrimaryButton), Command(onPrev)), In(btnFrame), Row(0), Column(1), Padx("0.2m"))
	Grid(TButton(Txt("Next >"), Style(theme.StylePrimaryButton), Command(onNext)), In(btnFrame), Row(0), Column(2), Padx("0.2m"))
	Grid(TButton(Txt("Exit"), Style(theme.StyleDangerButton), Command(onExit)), In(btnFrame), Row(0), Column(3), Padx("0.2m"))

	rv.Preview = NewPreview(2, 3)
}

// SetEvents fills the selector.
func (rv *RootView) SetEvents(labels []string, selected int) {
	if rv == nil || rv.EventSelect == nil {
		return
	}
	rv.labels = labels
	if len(labels) == 0 {
		rv.EventSelect.Configure(Values([]string{"<none>"}))
		rv.EventSelect.Current(0)
		return
	}
	rv.EventSelect.Configure(Values(labels))
	rv.SetSelected(selected)
}

// SetSelected moves the selector without firing the selection handler.
func (rv *RootView) SetSelected(i int) {
	if rv != nil && rv.EventSelect != nil && i >= 0 && i < len(rv.labels) {
		rv.EventSelect.Current(i)
	}
}

// SetStateLabel updates the state label text.
func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetPreview proxies to the preview subview.
func (rv *RootView) SetPreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.Update(img)
	}
}

// SetSummary proxies to the stats subview.
func (rv *RootView) SetSummary(count int, covered float64) {
	if rv != nil && rv.Stats != nil {
		rv.Stats.Set(count, covered)
	}
}
