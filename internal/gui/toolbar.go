// internal/gui/toolbar.go
// Bottom toolbar: intensity slider plus pick, random and save actions
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/effect"
	"blur-wallpaper/internal/export"
)

type Toolbar struct {
	logger logrus.FieldLogger

	container *fyne.Container

	pickBtn   *widget.Button
	randomBtn *widget.Button
	saveBtn   *widget.Button

	intensitySlider *widget.Slider
	intensityLabel  *widget.Label
	stateLabel      *widget.Label

	loaded    bool
	exporting bool

	// Callbacks
	onPick      func()
	onRandom    func()
	onSave      func()
	onIntensity func(effect.Intensity)
}

func NewToolbar(initial effect.Intensity, logger logrus.FieldLogger) *Toolbar {
	tb := &Toolbar{logger: logger}
	tb.initializeUI(initial)
	return tb
}

func (tb *Toolbar) initializeUI(initial effect.Intensity) {
	tb.pickBtn = widget.NewButtonWithIcon("Pick", theme.FolderOpenIcon(), func() {
		if tb.onPick != nil {
			tb.onPick()
		}
	})

	tb.randomBtn = widget.NewButtonWithIcon("Random", theme.ViewRefreshIcon(), func() {
		if tb.onRandom != nil {
			tb.onRandom()
		}
	})

	tb.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		if tb.onSave != nil {
			tb.onSave()
		}
	})
	tb.saveBtn.Importance = widget.HighImportance
	tb.saveBtn.Disable()

	tb.intensityLabel = widget.NewLabel("")
	tb.intensitySlider = widget.NewSlider(float64(effect.MinIntensity), float64(effect.MaxIntensity))
	tb.intensitySlider.Step = 1
	tb.intensitySlider.SetValue(float64(initial))
	tb.setIntensityLabel(float64(initial))
	tb.intensitySlider.OnChanged = func(value float64) {
		tb.setIntensityLabel(value)
		if tb.onIntensity != nil {
			tb.onIntensity(effect.Intensity(value))
		}
	}

	tb.stateLabel = widget.NewLabel("")

	buttons := container.NewHBox(tb.pickBtn, tb.randomBtn, tb.saveBtn, tb.stateLabel)
	tb.container = container.NewVBox(
		container.NewBorder(nil, nil, widget.NewIcon(theme.ColorPaletteIcon()), tb.intensityLabel, tb.intensitySlider),
		buttons,
	)
}

func (tb *Toolbar) setIntensityLabel(value float64) {
	tb.intensityLabel.SetText(fmt.Sprintf("%.0f", value))
}

// SetIntensity moves the slider without firing the intensity callback.
func (tb *Toolbar) SetIntensity(value effect.Intensity) {
	cb := tb.onIntensity
	tb.onIntensity = nil
	tb.intensitySlider.SetValue(float64(value))
	tb.onIntensity = cb
}

// SetImageLoaded enables saving once there is something to save and no
// export is running.
func (tb *Toolbar) SetImageLoaded(loaded bool) {
	tb.loaded = loaded
	tb.refreshSave()
}

func (tb *Toolbar) refreshSave() {
	if tb.loaded && !tb.exporting {
		tb.saveBtn.Enable()
	} else {
		tb.saveBtn.Disable()
	}
}

// SetExportState reflects an export in progress. Saving stays disabled
// until the export settles.
func (tb *Toolbar) SetExportState(state export.State) {
	tb.logger.WithField("state", state.String()).Debug("Toolbar export state")
	tb.exporting = state.Active()
	tb.refreshSave()
	tb.stateLabel.SetText(exportStateText(state))
}

func exportStateText(state export.State) string {
	switch state {
	case export.Rasterizing:
		return "Capturing…"
	case export.Authorizing:
		return "Waiting for access…"
	case export.Persisting:
		return "Saving…"
	default:
		return ""
	}
}

func (tb *Toolbar) SaveEnabled() bool {
	return !tb.saveBtn.Disabled()
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}

func (tb *Toolbar) SetCallbacks(
	onPick func(),
	onRandom func(),
	onSave func(),
	onIntensity func(effect.Intensity),
) {
	tb.onPick = onPick
	tb.onRandom = onRandom
	tb.onSave = onSave
	tb.onIntensity = onIntensity
}
