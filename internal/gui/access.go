package gui

import (
	"context"
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/photostore"
)

const accessPromptText = "Blurred wallpapers are saved to an album in your photo library. Allow access?"

// accessPrompter asks for photo library access with a confirm dialog. It is
// called off the UI thread and waits for the answer.
type accessPrompter struct {
	window fyne.Window
}

func (p *accessPrompter) Prompt(ctx context.Context) (bool, error) {
	if p.window == nil {
		return false, errors.New("no window to ask from")
	}

	answer := make(chan bool, 1)
	fyne.Do(func() {
		dialog.ShowConfirm("Photo Library", accessPromptText, func(ok bool) {
			answer <- ok
		}, p.window)
	})

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// accessSettings forgets a refused answer so the next save asks again.
type accessSettings struct {
	photos *photostore.Directory
	logger logrus.FieldLogger
}

func (s *accessSettings) CanOpenSettings() bool { return s.photos != nil }

func (s *accessSettings) OpenSettings() error {
	if err := s.photos.Reset(context.Background()); err != nil {
		return err
	}
	s.logger.Info("Photo library access reset")
	return nil
}
