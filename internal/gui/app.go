// Main application window: preview, toolbar and status
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/config"
	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/effect"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/services"
)

const (
	shuffleTipText   = "Double-tap the image or press space for another random image."
	wallpaperTipText = "Saved! Open your photo library and set the image as your wallpaper."
)

// Application represents the main window and the services behind it
type Application struct {
	app    fyne.App
	window fyne.Window
	cfg    *config.Config
	logger logrus.FieldLogger

	// Core components
	services *services.Services
	editor   *core.Editor
	exporter *export.Pipeline
	prompter *accessPrompter

	// GUI components
	canvas      *PreviewCanvas
	toolbar     *Toolbar
	infoPanel   *InfoPanel
	menuHandler *MenuHandler
}

func NewApplication(app fyne.App, cfg *config.Config, logger logrus.FieldLogger) (*Application, error) {
	window := app.NewWindow("Blur Wallpaper")
	window.Resize(fyne.NewSize(540, 900))
	window.CenterOnScreen()

	a := &Application{
		app:      app,
		window:   window,
		cfg:      cfg,
		logger:   logger,
		prompter: &accessPrompter{window: window},
	}

	if err := a.initializeCore(); err != nil {
		return nil, err
	}
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a, nil
}

func (a *Application) initializeCore() error {
	svc, err := services.Build(a.cfg, services.Options{
		Preferences: a.app.Preferences(),
		Prompter:    a.prompter.Prompt,
	}, a.logger)
	if err != nil {
		return err
	}
	a.services = svc

	a.editor, err = svc.NewEditor(fyne.Do)
	if err != nil {
		svc.Close()
		return err
	}

	settings := &accessSettings{photos: svc.Photos, logger: a.logger}
	a.exporter = svc.NewExporter(export.RasterizerFunc(a.rasterize), settings, fyne.Do)
	return nil
}

func (a *Application) initializeGUI() {
	a.canvas = NewPreviewCanvas(a.logger)
	a.toolbar = NewToolbar(effect.Intensity(a.cfg.InitialIntensity), a.logger)
	a.infoPanel = NewInfoPanel()
	a.menuHandler = NewMenuHandler()
}

func (a *Application) setupLayout() {
	bottom := container.NewVBox(
		widget.NewSeparator(),
		a.toolbar.GetContainer(),
		a.infoPanel.GetContainer(),
	)

	content := container.NewBorder(nil, bottom, nil, nil, a.canvas)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	// Scheduler callbacks already run on the UI thread through fyne.Do
	a.editor.Scheduler.SetCallbacks(
		func(d *core.DerivedImage) {
			a.canvas.UpdateImage(d.Image)
			a.toolbar.SetImageLoaded(true)
			a.infoPanel.UpdateFrame(d, a.editor.Scheduler.Stats())
		},
		func(err error) {
			a.showError("Processing Error", err)
		},
	)

	a.toolbar.SetCallbacks(a.pickImage, a.randomImage, a.saveImage, a.setIntensity)
	a.menuHandler.SetCallbacks(a.pickImage, a.randomImage, a.saveImage, a.openAlbum, a.showShuffleTip)
	a.canvas.SetDoubleTapCallback(a.randomImage)

	a.window.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeySpace {
			a.randomImage()
		}
	})

	a.exporter.SetTipCallback(func() {
		dialog.ShowInformation("Tip", wallpaperTipText, a.window)
	})
}

func (a *Application) setIntensity(v effect.Intensity) {
	if _, err := a.editor.SetIntensity(v); err != nil {
		a.showError("Invalid Intensity", err)
	}
}

func (a *Application) randomImage() {
	go func() {
		if err := a.services.Shuffle(a.editor); err != nil {
			fyne.Do(func() { a.showError("Stock Image Error", err) })
		}
	}()
}

func (a *Application) pickImage() {
	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			a.showError("Open Error", err)
			return
		}
		if reader == nil {
			return
		}

		name := reader.URI().Name()
		go func() {
			defer reader.Close()
			if err := a.loadSource(reader, name); err != nil {
				fyne.Do(func() { a.showError("Open Error", err) })
			}
		}()
	}, a.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".jpg", ".jpeg", ".png", ".bmp"}))
	fileDialog.Show()
}

func (a *Application) loadSource(reader fyne.URIReadCloser, name string) error {
	img, err := a.services.Loader.DecodeImage(reader)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	src, err := core.NewSourceImage(img, name)
	if err != nil {
		return fmt.Errorf("invalid image %s: %w", name, err)
	}
	return a.editor.SetSource(src)
}

// rasterize captures the frame on screen. It is called off the UI thread.
func (a *Application) rasterize(context.Context) (image.Image, error) {
	var img image.Image
	fyne.DoAndWait(func() {
		img = a.canvas.Displayed()
	})
	if img == nil {
		return nil, core.ErrNoImage
	}
	return img, nil
}

func (a *Application) saveImage() {
	if !a.toolbar.SaveEnabled() {
		return
	}
	a.toolbar.SetExportState(export.Rasterizing)

	a.exporter.SaveAsync(context.Background(), a.toolbar.SetExportState, func(res export.Result, err error) {
		if err != nil {
			a.handleExportError(err)
			return
		}
		a.infoPanel.SetMessage(fmt.Sprintf("Saved to %s", res.Album))
	})
}

func (a *Application) handleExportError(err error) {
	var denied *export.PermissionDeniedError
	if !errors.As(err, &denied) {
		a.showError("Save Error", err)
		return
	}

	a.logger.WithError(err).Warn("Photo library access denied")
	if !denied.RecoveryAvailable {
		dialog.ShowInformation("Photo Library", denied.Error(), a.window)
		return
	}
	dialog.ShowCustomConfirm("Photo Library", "Settings", "OK", widget.NewLabel(denied.Error()), func(open bool) {
		if !open {
			return
		}
		if err := denied.Recover(); err != nil {
			a.showError("Settings Error", err)
			return
		}
		a.infoPanel.SetMessage("Access will be requested on the next save")
	}, a.window)
}

func (a *Application) openAlbum() {
	root := storage.NewFileURI(a.services.Photos.Root())
	u, err := url.Parse(root.String())
	if err != nil {
		a.showError("Album Error", err)
		return
	}
	if err := a.app.OpenURL(u); err != nil {
		a.showError("Album Error", err)
	}
}

func (a *Application) showAfter(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { fyne.Do(fn) })
}

func (a *Application) showShuffleTip() {
	dialog.ShowInformation("Tip", shuffleTipText, a.window)
}

// ShowAndRun shows the first stock image, the first-launch tip if due, and
// runs the event loop.
func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.randomImage()
	if a.services.FirstLaunch(context.Background()) {
		a.showAfter(a.cfg.ShakeTipDelay, a.showShuffleTip)
	}

	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	a.editor.Close()
	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close services")
	}
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.infoPanel.SetMessage(fmt.Sprintf("Error: %s", err.Error()))
}
