// Package gate records one-time actions such as tips that must fire at most once ever.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/kvstore"
)

// Well-known gate names.
const (
	FirstLaunch  = "__hasLaunched__"
	WallpaperTip = "showWallpaperTip"
)

const keyPrefix = "gate."

var ErrEmptyName = errors.New("gate name is empty")

// Gate hands out each name exactly once over the lifetime of its store.
type Gate struct {
	store  kvstore.Store
	mu     sync.Mutex
	logger logrus.FieldLogger
}

func New(store kvstore.Store, logger logrus.FieldLogger) *Gate {
	return &Gate{store: store, logger: logger}
}

// ConsultAndArm returns true the first time name is consulted and records
// that it has fired. Concurrent callers never both see true.
func (g *Gate) ConsultAndArm(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, ErrEmptyName
	}
	key := keyPrefix + name

	var (
		first bool
		err   error
	)
	if armer, ok := g.store.(kvstore.Armer); ok {
		first, err = armer.Arm(ctx, key)
	} else {
		first, err = g.getAndSet(ctx, key)
	}
	if err != nil {
		return false, fmt.Errorf("gate %q: %w", name, err)
	}

	if first {
		g.logger.WithField("gate", name).Info("GATE: Armed")
	}
	return first, nil
}

// Fired reports whether name has already been consulted, without arming it.
func (g *Gate) Fired(ctx context.Context, name string) (bool, error) {
	return g.store.Get(ctx, keyPrefix+name)
}

func (g *Gate) getAndSet(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fired, err := g.store.Get(ctx, key)
	if err != nil || fired {
		return false, err
	}
	if err := g.store.Set(ctx, key, true); err != nil {
		return false, err
	}
	return true, nil
}
