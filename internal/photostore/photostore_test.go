package photostore

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blur-wallpaper/internal/export"
	"blur-wallpaper/internal/imageio"
	"blur-wallpaper/internal/kvstore"
	"blur-wallpaper/internal/storage"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func loader() *imageio.ImageLoader {
	return imageio.NewImageLoader(imageio.BildCodec{}, 0, quietLogger())
}

func picture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 28), B: 90, A: 255})
		}
	}
	return img
}

func write(t *testing.T, d *Directory, album string) (string, error) {
	t.Helper()
	type outcome struct {
		id  string
		err error
	}
	ch := make(chan outcome, 2)
	d.Write(picture(), album, func(id string, err error) { ch <- outcome{id, err} })

	select {
	case out := <-ch:
		return out.id, out.err
	case <-time.After(5 * time.Second):
		t.Fatal("write never completed")
		return "", nil
	}
}

func TestWriteCreatesAlbumAndIndexes(t *testing.T) {
	root := t.TempDir()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer db.Close()

	d, err := NewDirectory(root, loader(), kvstore.NewMemory(), Options{DB: db, AutoAuthorize: true}, quietLogger())
	require.NoError(t, err)

	first, err := write(t, d, "Blurred")
	require.NoError(t, err)
	second, err := write(t, d, "Blurred")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.FileExists(t, filepath.Join(root, "Blurred", first+".jpg"))

	assets, err := d.Assets(context.Background(), "Blurred")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, first, assets[0].ID)
	assert.Equal(t, 16, assets[0].Width)
	assert.Equal(t, 9, assets[0].Height)

	entries, err := os.ReadDir(filepath.Join(root, "Blurred"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files are left behind")
}

func TestAssetsWithoutIndex(t *testing.T) {
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{AutoAuthorize: true}, quietLogger())
	require.NoError(t, err)

	assets, err := d.Assets(context.Background(), "Blurred")
	require.NoError(t, err)
	assert.Empty(t, assets)

	id, err := write(t, d, "Blurred")
	require.NoError(t, err)

	assets, err = d.Assets(context.Background(), "Blurred")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, id, assets[0].ID)
}

func TestWriteRejectsBadAlbum(t *testing.T) {
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{AutoAuthorize: true}, quietLogger())
	require.NoError(t, err)

	for _, album := range []string{"", "..", "a/b"} {
		_, err := write(t, d, album)
		assert.Error(t, err, album)
	}
}

func TestAuthorizationFlow(t *testing.T) {
	ctx := context.Background()
	flags := kvstore.NewMemory()

	var asked atomic.Int32
	prompt := func(context.Context) (bool, error) {
		asked.Add(1)
		return false, nil
	}
	d, err := NewDirectory(t.TempDir(), loader(), flags, Options{Prompter: prompt}, quietLogger())
	require.NoError(t, err)

	status, err := d.AuthorizationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, export.NotDetermined, status)

	status, err = d.RequestAuthorization(ctx)
	require.NoError(t, err)
	assert.Equal(t, export.Denied, status)

	status, err = d.RequestAuthorization(ctx)
	require.NoError(t, err)
	assert.Equal(t, export.Denied, status)
	assert.Equal(t, int32(1), asked.Load())

	require.NoError(t, d.Reset(ctx))
	status, err = d.AuthorizationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, export.NotDetermined, status)
}

func TestConcurrentRequestsPromptOnce(t *testing.T) {
	var asked atomic.Int32
	release := make(chan struct{})
	prompt := func(context.Context) (bool, error) {
		asked.Add(1)
		<-release
		return true, nil
	}
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{Prompter: prompt}, quietLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	statuses := make([]export.AuthStatus, 4)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := d.RequestAuthorization(context.Background())
			assert.NoError(t, err)
			statuses[i] = s
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), asked.Load())
	for _, s := range statuses {
		assert.Equal(t, export.Authorized, s)
	}
}

func TestPromptError(t *testing.T) {
	prompt := func(context.Context) (bool, error) { return false, errors.New("window closed") }
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{Prompter: prompt}, quietLogger())
	require.NoError(t, err)

	_, err = d.RequestAuthorization(context.Background())
	assert.Error(t, err)

	status, err := d.AuthorizationStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, export.NotDetermined, status, "a failed prompt is not an answer")
}

func TestNoPrompterIsRestricted(t *testing.T) {
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{}, quietLogger())
	require.NoError(t, err)

	status, err := d.AuthorizationStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, export.Restricted, status)
}

func TestPipelineIntegration(t *testing.T) {
	d, err := NewDirectory(t.TempDir(), loader(), kvstore.NewMemory(), Options{AutoAuthorize: true}, quietLogger())
	require.NoError(t, err)

	raster := export.RasterizerFunc(func(context.Context) (image.Image, error) { return picture(), nil })
	p := export.New(export.Config{}, raster, d, nil, nil, nil, quietLogger())

	res, err := p.Save(context.Background(), nil)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(d.Root(), export.DefaultAlbum, res.AssetID+".jpg"))
}
