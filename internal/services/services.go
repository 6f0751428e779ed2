// Package services builds the long-lived collaborators shared by the GUI
// and the headless front from a Config.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/config"
	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/effect"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/gate"
	"blur-wallpaper/internal/imageio"
	"blur-wallpaper/internal/kvstore"
	"blur-wallpaper/internal/photostore"
	"blur-wallpaper/internal/stock"
	"blur-wallpaper/internal/storage"
)

// Options carry the host specific pieces.
type Options struct {
	// Preferences backs the kv store when the config selects it.
	Preferences fyne.Preferences
	// Prompter asks the user for photo library access.
	Prompter photostore.Prompter
	// Rand seeds the stock rotation; nil picks a random seed.
	Rand *rand.Rand
}

type Services struct {
	Config    *config.Config
	DB        *sql.DB
	Flags     kvstore.Store
	Gate      *gate.Gate
	Loader    *imageio.ImageLoader
	Stock     *stock.Provider
	Photos    *photostore.Directory
	Transform effect.Transform

	shuffleMu sync.Mutex
	logger    logrus.FieldLogger
}

func Build(cfg *config.Config, opts Options, logger logrus.FieldLogger) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	profile, err := effect.ParseProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	transform, err := effect.New(cfg.Backend, profile)
	if err != nil {
		return nil, err
	}
	codec, err := imageio.NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:    cfg,
		DB:        db,
		Transform: transform,
		Loader:    imageio.NewImageLoader(codec, cfg.MaxPixelSize, logger),
		logger:    logger,
	}

	switch cfg.KV {
	case config.KVPreferences:
		if opts.Preferences == nil {
			db.Close()
			return nil, fmt.Errorf("kv backend %q needs a fyne app", cfg.KV)
		}
		s.Flags = kvstore.NewPreferences(opts.Preferences)
	case config.KVMemory:
		s.Flags = kvstore.NewMemory()
	default:
		s.Flags = kvstore.NewSQLite(db)
	}
	s.Gate = gate.New(s.Flags, logger)

	s.Stock, err = stock.NewProvider(cfg.StockDir, s.Loader, opts.Rand, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s.Photos, err = photostore.NewDirectory(cfg.AlbumRoot(), s.Loader, s.Flags, photostore.Options{
		DB:            db,
		Prompter:      opts.Prompter,
		AutoAuthorize: cfg.AutoAuthorize,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.DataDir,
		"backend":  transform.Name(),
		"codec":    codec.Name(),
		"kv":       cfg.KV,
	}).Info("Services ready")
	return s, nil
}

// NewEditor returns an editor at the configured initial intensity, with no source yet.
func (s *Services) NewEditor(dispatch core.Dispatcher) (*core.Editor, error) {
	return core.NewEditor(effect.Intensity(s.Config.InitialIntensity), s.Transform, dispatch, core.SchedulerConfig{
		DebounceDelay: s.Config.DebounceDelay,
		Workers:       s.Config.Workers,
	}, s.logger)
}

// Shuffle puts the next stock image into the editor. Concurrent calls are
// serialized so images reach the editor in the order they were drawn.
func (s *Services) Shuffle(editor *core.Editor) error {
	s.shuffleMu.Lock()
	defer s.shuffleMu.Unlock()

	src, err := s.Stock.Next()
	if err != nil {
		return err
	}
	return editor.SetSource(src)
}

func (s *Services) NewExporter(raster export.Rasterizer, opener export.SettingsOpener, dispatch core.Dispatcher) *export.Pipeline {
	return export.New(export.Config{
		Album:       s.Config.Album,
		SettleDelay: s.Config.SettleDelay,
		TipName:     gate.WallpaperTip,
		TipDelay:    s.Config.TipDelay,
	}, raster, s.Photos, s.Gate, opener, dispatch, s.logger)
}

// FirstLaunch reports whether this is the first start ever, arming the gate.
func (s *Services) FirstLaunch(ctx context.Context) bool {
	first, err := s.Gate.ConsultAndArm(ctx, gate.FirstLaunch)
	if err != nil {
		s.logger.WithError(err).Warn("Could not consult first launch gate")
		return false
	}
	return first
}

func (s *Services) Close() error {
	return s.DB.Close()
}
