// Menu handler for application actions
package gui

import (
	"fyne.io/fyne/v2"
)

// MenuHandler builds the main menu over the application's actions.
type MenuHandler struct {
	onPick      func()
	onRandom    func()
	onSave      func()
	onOpenAlbum func()
	onShowTips  func()
}

func NewMenuHandler() *MenuHandler {
	return &MenuHandler{}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Pick Image...", call(&mh.onPick)),
		fyne.NewMenuItem("Random Image", call(&mh.onRandom)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save to Album", call(&mh.onSave)),
		fyne.NewMenuItem("Show Album Folder", call(&mh.onOpenAlbum)),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Tips", call(&mh.onShowTips)),
	)

	return fyne.NewMainMenu(fileMenu, helpMenu)
}

func call(fn *func()) func() {
	return func() {
		if *fn != nil {
			(*fn)()
		}
	}
}

func (mh *MenuHandler) SetCallbacks(onPick, onRandom, onSave, onOpenAlbum, onShowTips func()) {
	mh.onPick = onPick
	mh.onRandom = onRandom
	mh.onSave = onSave
	mh.onOpenAlbum = onOpenAlbum
	mh.onShowTips = onShowTips
}
