// Preview widget showing the blurred wallpaper
package gui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// PreviewCanvas displays the latest derived image. Double tapping asks for
// another random stock image.
type PreviewCanvas struct {
	widget.BaseWidget

	logger logrus.FieldLogger

	currentImage *canvas.Image
	displayed    image.Image
	background   *canvas.Rectangle

	onDoubleTap func()
}

func NewPreviewCanvas(logger logrus.FieldLogger) *PreviewCanvas {
	pc := &PreviewCanvas{logger: logger}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *PreviewCanvas) CreateRenderer() fyne.WidgetRenderer {
	pc.background = canvas.NewRectangle(color.Black)

	placeholder := pc.displayed
	if placeholder == nil {
		placeholder = image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	pc.currentImage = canvas.NewImageFromImage(placeholder)
	pc.currentImage.FillMode = canvas.ImageFillContain
	pc.currentImage.ScaleMode = canvas.ImageScaleSmooth

	return &previewCanvasRenderer{
		canvas:     pc,
		image:      pc.currentImage,
		background: pc.background,
	}
}

// UpdateImage shows img. It must run on the UI thread.
func (pc *PreviewCanvas) UpdateImage(img image.Image) {
	if img == nil {
		return
	}
	pc.displayed = img
	if pc.currentImage != nil {
		pc.currentImage.Image = img
		pc.currentImage.Refresh()
	}
}

// Displayed returns the image currently on screen, nil before the first frame.
// It must run on the UI thread.
func (pc *PreviewCanvas) Displayed() image.Image {
	return pc.displayed
}

func (pc *PreviewCanvas) SetDoubleTapCallback(fn func()) {
	pc.onDoubleTap = fn
}

func (pc *PreviewCanvas) DoubleTapped(*fyne.PointEvent) {
	pc.logger.Debug("Preview double tapped")
	if pc.onDoubleTap != nil {
		pc.onDoubleTap()
	}
}

type previewCanvasRenderer struct {
	canvas     *PreviewCanvas
	image      *canvas.Image
	background *canvas.Rectangle
}

func (r *previewCanvasRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.image.Resize(size)
}

func (r *previewCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(360, 540)
}

func (r *previewCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.image}
}

func (r *previewCanvasRenderer) Refresh() {
	r.image.Refresh()
}

func (r *previewCanvasRenderer) Destroy() {
}
