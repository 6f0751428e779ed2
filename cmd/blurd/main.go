// blurd serves the blur editor over HTTP without a window.

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/config"
	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/logging"
	"blur-wallpaper/internal/server"
	"blur-wallpaper/internal/services"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	listen := flag.String("listen", "", "Address to listen on, overrides the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(false).WithError(err).Fatal("Failed to load configuration")
	}
	cfg.Debug = cfg.Debug || *debugMode
	if *listen != "" {
		cfg.Listen = *listen
	}
	// No window to ask from, and fyne preferences need a running app.
	cfg.AutoAuthorize = true
	if cfg.KV == config.KVPreferences {
		cfg.KV = config.KVSQLite
	}

	logger := logging.New(cfg.Debug)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("blurd stopped")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	svc, err := services.Build(cfg, services.Options{}, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	loop := core.NewLoop(16)
	defer loop.Close()

	editor, err := svc.NewEditor(loop.Do)
	if err != nil {
		return err
	}
	defer editor.Close()

	exporter := svc.NewExporter(server.LatestFrame(editor), nil, loop.Do)
	srv := server.New(editor, svc.Stock, svc.Loader, exporter, svc.Photos, cfg.Album, logger)

	if err := svc.Shuffle(editor); err != nil {
		logger.WithError(err).Warn("Could not show a first stock image")
	}

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("listen", cfg.Listen).Info("blurd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
