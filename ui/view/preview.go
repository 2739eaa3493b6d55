package view

import (
	"image"

	"github.com/soocke/bleedscan-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows the annotated frame of the selected event.
type Preview interface {
	Update(img image.Image)
	Reset()
}

type preview struct {
	label     *LabelWidget
	prevPhoto *Img // disposed before replacement
}

const (
	placeholderW = 320
	placeholderH = 180
)

// NewPreview creates the preview label and grids it across the given row.
func NewPreview(row, columns int) Preview {
	photo := NewPhoto(Data(images.EncodePNG(image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH)))))
	lbl := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(lbl, Row(row), Column(0), Columnspan(columns), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &preview{label: lbl, prevPhoto: photo}
}

func (v *preview) Update(img image.Image) {
	if v.label == nil {
		return
	}
	if img == nil {
		v.Reset()
		return
	}
	v.replace(NewPhoto(Data(images.EncodePNG(img))))
}

func (v *preview) Reset() {
	if v.label == nil {
		return
	}
	v.replace(NewPhoto(Data(images.EncodePNG(image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH))))))
}

func (v *preview) replace(photo *Img) {
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = photo
	v.label.Configure(Image(photo))
}
