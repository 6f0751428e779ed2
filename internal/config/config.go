// Package config loads application settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"blur-wallpaper/internal/effect"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/imageio"
)

// Persisted flag backends.
const (
	KVSQLite      = "sqlite"
	KVPreferences = "preferences"
	KVMemory      = "memory"
)

const appDir = "blur-wallpaper"

// Config holds every tunable of the application. Durations are written as
// strings such as "1.5s".
type Config struct {
	DataDir  string `toml:"data_dir"`
	StockDir string `toml:"stock_dir"`
	Album    string `toml:"album"`

	Backend          string  `toml:"backend"`
	Codec            string  `toml:"codec"`
	Profile          string  `toml:"profile"`
	InitialIntensity float64 `toml:"initial_intensity"`
	MaxPixelSize     int     `toml:"max_pixel_size"`

	DebounceDelay time.Duration `toml:"debounce_delay"`
	Workers       int           `toml:"workers"`

	SettleDelay   time.Duration `toml:"settle_delay"`
	TipDelay      time.Duration `toml:"tip_delay"`
	ShakeTipDelay time.Duration `toml:"shake_tip_delay"`

	KV            string `toml:"kv"`
	AutoAuthorize bool   `toml:"auto_authorize"`

	Listen string `toml:"listen"`
	Debug  bool   `toml:"debug"`
}

func Default() *Config {
	return &Config{
		DataDir:          defaultDataDir(),
		Album:            export.DefaultAlbum,
		Backend:          effect.BackendOpenCV,
		Codec:            imageio.CodecOpenCV,
		Profile:          string(effect.ProfileLarge),
		InitialIntensity: float64(effect.DefaultIntensity),
		MaxPixelSize:     2000,
		Workers:          2,
		TipDelay:         time.Second,
		ShakeTipDelay:    1500 * time.Millisecond,
		KV:               KVSQLite,
		Listen:           "127.0.0.1:8420",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir)
	}
	return "." + appDir
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if c.Album == "" || strings.ContainsAny(c.Album, `/\`) {
		errs = append(errs, fmt.Errorf("album %q is not a valid name", c.Album))
	}
	if _, err := effect.New(c.Backend, effect.ProfileLarge); err != nil {
		errs = append(errs, err)
	}
	if _, err := imageio.NewCodec(c.Codec); err != nil {
		errs = append(errs, err)
	}
	if _, err := effect.ParseProfile(c.Profile); err != nil {
		errs = append(errs, err)
	}
	if !effect.Intensity(c.InitialIntensity).Valid() {
		errs = append(errs, fmt.Errorf("initial_intensity must be within [%v, %v]", effect.MinIntensity, effect.MaxIntensity))
	}
	if c.MaxPixelSize < 0 {
		errs = append(errs, errors.New("max_pixel_size cannot be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"debounce_delay":  c.DebounceDelay,
		"settle_delay":    c.SettleDelay,
		"tip_delay":       c.TipDelay,
		"shake_tip_delay": c.ShakeTipDelay,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		}
	}
	switch c.KV {
	case KVSQLite, KVPreferences, KVMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown kv backend %q", c.KV))
	}

	return errors.Join(errs...)
}

// DBPath is the SQLite database inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "blur.db")
}

// AlbumRoot is where exported albums are written.
func (c *Config) AlbumRoot() string {
	return filepath.Join(c.DataDir, "albums")
}
