package services

import (
	"context"
	"image"
	"io"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blur-wallpaper/internal/config"
	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/imageio"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig(t *testing.T) *config.Config {
	stockDir := t.TempDir()
	loader := imageio.NewImageLoader(imageio.BildCodec{}, 0, quietLogger())
	require.NoError(t, loader.SaveImage(image.NewRGBA(image.Rect(0, 0, 32, 48)), filepath.Join(stockDir, "stock.png")))

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.StockDir = stockDir
	cfg.Backend = "bild"
	cfg.Codec = "bild"
	cfg.AutoAuthorize = true
	return cfg
}

func TestBuildAndSave(t *testing.T) {
	s, err := Build(testConfig(t), Options{Rand: rand.New(rand.NewPCG(1, 2))}, quietLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.FirstLaunch(context.Background()))
	assert.False(t, s.FirstLaunch(context.Background()))

	editor, err := s.NewEditor(core.Immediate)
	require.NoError(t, err)
	defer editor.Close()

	require.NoError(t, s.Shuffle(editor))
	require.Eventually(t, func() bool { return editor.Scheduler.Latest() != nil }, 10*time.Second, 10*time.Millisecond)

	raster := export.RasterizerFunc(func(context.Context) (image.Image, error) {
		return editor.Scheduler.Latest().Image, nil
	})
	res, err := s.NewExporter(raster, nil, core.Immediate).Save(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.TipFired)

	assets, err := s.Photos.Assets(context.Background(), "Blurred")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, res.AssetID, assets[0].ID)
}

func TestConcurrentShufflesArriveInDrawOrder(t *testing.T) {
	cfg := testConfig(t)
	loader := imageio.NewImageLoader(imageio.BildCodec{}, 0, quietLogger())
	require.NoError(t, loader.SaveImage(image.NewRGBA(image.Rect(0, 0, 24, 24)), filepath.Join(cfg.StockDir, "second.png")))

	s, err := Build(cfg, Options{Rand: rand.New(rand.NewPCG(3, 4))}, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, 2, s.Stock.Len())

	editor, err := s.NewEditor(core.Immediate)
	require.NoError(t, err)
	defer editor.Close()

	var (
		mu    sync.Mutex
		names []string
	)
	editor.Store.OnChange(func(snap core.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, snap.Source.Name())
	})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Shuffle(editor))
		}()
	}
	wg.Wait()

	require.Len(t, names, 40)
	for i := 1; i < len(names); i++ {
		assert.NotEqual(t, names[i-1], names[i], "image %d repeats the previous one", i)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 0
	_, err := Build(cfg, Options{}, quietLogger())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.KV = config.KVPreferences
	_, err = Build(cfg, Options{}, quietLogger())
	assert.Error(t, err)
}
