// Blur Wallpaper - turns photos into soft, blurred wallpapers

package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/config"
	"blur-wallpaper/internal/gui"
	"blur-wallpaper/internal/logging"
)

const (
	AppName    = "Blur Wallpaper"
	AppID      = "com.blurwallpaper.app"
	AppVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to a TOML config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(false).WithError(err).Fatal("Failed to load configuration")
	}
	cfg.Debug = cfg.Debug || *debugMode

	logger := logging.New(cfg.Debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": cfg.Debug,
		"config":     *configPath,
	}).Info("Starting " + AppName)

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaPhotoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp, err := gui.NewApplication(myApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start application")
	}
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}
