// internal/gui/info_panel.go
// Status line with the current source and scheduler counters
package gui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"blur-wallpaper/internal/core"
)

// InfoPanel shows what is on screen and how the scheduler is doing.
type InfoPanel struct {
	container *fyne.Container

	sourceLabel  *widget.Label
	frameLabel   *widget.Label
	statsLabel   *widget.Label
	messageLabel *widget.Label
}

func NewInfoPanel() *InfoPanel {
	ip := &InfoPanel{
		sourceLabel:  widget.NewLabel("No image"),
		frameLabel:   widget.NewLabel(""),
		statsLabel:   widget.NewLabel(""),
		messageLabel: widget.NewLabel(""),
	}
	ip.messageLabel.Truncation = fyne.TextTruncateEllipsis

	ip.container = container.NewVBox(
		container.NewHBox(ip.sourceLabel, ip.frameLabel),
		ip.statsLabel,
		ip.messageLabel,
	)
	return ip
}

func (ip *InfoPanel) GetContainer() fyne.CanvasObject {
	return ip.container
}

// UpdateFrame describes a newly displayed frame.
func (ip *InfoPanel) UpdateFrame(d *core.DerivedImage, stats core.SchedulerStats) {
	ip.sourceLabel.SetText(d.Source.String())
	ip.frameLabel.SetText(fmt.Sprintf("intensity %.0f in %s", float64(d.Intensity), d.Elapsed.Round(time.Millisecond)))
	ip.statsLabel.SetText(fmt.Sprintf("requested %d, shown %d, skipped %d, failed %d",
		stats.Requested, stats.Delivered, stats.Discarded, stats.Failed))
}

func (ip *InfoPanel) SetMessage(msg string) {
	ip.messageLabel.SetText(msg)
}

func (ip *InfoPanel) Message() string {
	return ip.messageLabel.Text
}
