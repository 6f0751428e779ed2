// Package photostore keeps exported images in named albums on disk.
package photostore

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/imageio"
	"blur-wallpaper/internal/kvstore"
)

const (
	answeredKey = "photos.answered"
	grantedKey  = "photos.granted"

	assetExt = ".jpg"
)

// Prompter asks the user for write access. It may block until they answer.
type Prompter func(ctx context.Context) (bool, error)

// Asset is one saved image.
type Asset struct {
	ID        string    `json:"id"`
	Album     string    `json:"album"`
	Path      string    `json:"path"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configure a Directory.
type Options struct {
	// DB, when set, indexes written assets.
	DB *sql.DB
	// Prompter asks for access. Without one, access that was never granted
	// is reported as restricted.
	Prompter Prompter
	// AutoAuthorize skips the prompt entirely.
	AutoAuthorize bool
}

// Directory stores albums as sub-directories of root.
type Directory struct {
	root   string
	loader *imageio.ImageLoader
	flags  kvstore.Store
	db     *sql.DB

	prompter Prompter
	auto     bool

	promptMu sync.Mutex
	logger   logrus.FieldLogger
}

func NewDirectory(root string, loader *imageio.ImageLoader, flags kvstore.Store, opts Options, logger logrus.FieldLogger) (*Directory, error) {
	if root == "" {
		return nil, fmt.Errorf("photo store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo store root: %w", err)
	}
	return &Directory{
		root:     root,
		loader:   loader,
		flags:    flags,
		db:       opts.DB,
		prompter: opts.Prompter,
		auto:     opts.AutoAuthorize,
		logger:   logger,
	}, nil
}

func (d *Directory) Root() string { return d.root }

func (d *Directory) AuthorizationStatus(ctx context.Context) (export.AuthStatus, error) {
	if d.auto {
		return export.Authorized, nil
	}

	answered, err := d.flags.Get(ctx, answeredKey)
	if err != nil {
		return export.NotDetermined, err
	}
	if !answered {
		if d.prompter == nil {
			return export.Restricted, nil
		}
		return export.NotDetermined, nil
	}

	granted, err := d.flags.Get(ctx, grantedKey)
	if err != nil {
		return export.NotDetermined, err
	}
	if granted {
		return export.Authorized, nil
	}
	return export.Denied, nil
}

// RequestAuthorization shows the prompt at most once per unanswered state.
// Concurrent callers wait for the same answer.
func (d *Directory) RequestAuthorization(ctx context.Context) (export.AuthStatus, error) {
	d.promptMu.Lock()
	defer d.promptMu.Unlock()

	status, err := d.AuthorizationStatus(ctx)
	if err != nil || status != export.NotDetermined {
		return status, err
	}

	granted, err := d.prompter(ctx)
	if err != nil {
		return export.NotDetermined, fmt.Errorf("authorization prompt failed: %w", err)
	}
	if err := d.flags.Set(ctx, grantedKey, granted); err != nil {
		return export.NotDetermined, err
	}
	if err := d.flags.Set(ctx, answeredKey, true); err != nil {
		return export.NotDetermined, err
	}

	d.logger.WithField("granted", granted).Info("PHOTOS: Authorization answered")
	if granted {
		return export.Authorized, nil
	}
	return export.Denied, nil
}

// Reset forgets the user's answer so the next save prompts again.
func (d *Directory) Reset(ctx context.Context) error {
	d.promptMu.Lock()
	defer d.promptMu.Unlock()
	if err := d.flags.Set(ctx, grantedKey, false); err != nil {
		return err
	}
	return d.flags.Set(ctx, answeredKey, false)
}

// Write encodes img into album on a background goroutine. The album is
// created on first use. done is called exactly once.
func (d *Directory) Write(img image.Image, album string, done func(assetID string, err error)) {
	go func() {
		asset, err := d.write(img, album)
		if err != nil {
			d.logger.WithError(err).WithField("album", album).Error("PHOTOS: Write failed")
			done("", err)
			return
		}
		d.logger.WithFields(logrus.Fields{
			"asset": asset.ID,
			"album": album,
			"path":  asset.Path,
		}).Info("PHOTOS: Asset written")
		done(asset.ID, nil)
	}()
}

func (d *Directory) write(img image.Image, album string) (*Asset, error) {
	dir, err := d.albumDir(album)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create album %q: %w", album, err)
	}

	id := uuid.NewString()
	path := filepath.Join(dir, id+assetExt)
	tmp := filepath.Join(dir, "."+id+".tmp"+assetExt)

	if err := d.loader.SaveImage(img, tmp); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("could not finalize asset: %w", err)
	}

	asset := &Asset{
		ID:        id,
		Album:     album,
		Path:      path,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		CreatedAt: time.Now(),
	}
	if d.db != nil {
		if err := d.index(asset); err != nil {
			os.Remove(path)
			return nil, err
		}
	}
	return asset, nil
}

func (d *Directory) index(a *Asset) error {
	_, err := d.db.Exec(
		`INSERT INTO assets (id, album, path, width, height, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Album, a.Path, a.Width, a.Height, a.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("could not index asset: %w", err)
	}
	return nil
}

// Assets lists album's assets, oldest first.
func (d *Directory) Assets(ctx context.Context, album string) ([]Asset, error) {
	if d.db == nil {
		return d.scan(album)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, album, path, width, height, created_at FROM assets WHERE album = ? ORDER BY created_at`,
		album,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var (
			a       Asset
			created int64
		)
		if err := rows.Scan(&a.ID, &a.Album, &a.Path, &a.Width, &a.Height, &created); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.CreatedAt = time.Unix(0, created)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// scan lists the album directory when no index is available. Dimensions
// are left zero.
func (d *Directory) scan(album string) ([]Asset, error) {
	dir, err := d.albumDir(album)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var assets []Asset
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, assetExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		assets = append(assets, Asset{
			ID:        strings.TrimSuffix(name, assetExt),
			Album:     album,
			Path:      filepath.Join(dir, name),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].CreatedAt.Before(assets[j].CreatedAt) })
	return assets, nil
}

func (d *Directory) albumDir(album string) (string, error) {
	if album == "" || album == "." || album == ".." || strings.ContainsAny(album, `/\`) {
		return "", fmt.Errorf("invalid album name %q", album)
	}
	return filepath.Join(d.root, album), nil
}
