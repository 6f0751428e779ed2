package imageio

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestIsSupportedImageFormat(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("/photos/stock1.JPG"))
	assert.True(t, IsSupportedImageFormat("a.png"))
	assert.False(t, IsSupportedImageFormat("notes.txt"))
	assert.False(t, IsSupportedImageFormat("dir.jpg/file"))
	assert.False(t, IsSupportedImageFormat("noext"))
}

func TestFitSize(t *testing.T) {
	w, h, scaled := fitSize(4000, 3000, 2000)
	assert.True(t, scaled)
	assert.Equal(t, 2000, w)
	assert.Equal(t, 1500, h)

	w, h, scaled = fitSize(1000, 4000, 2000)
	assert.True(t, scaled)
	assert.Equal(t, 500, w)
	assert.Equal(t, 2000, h)

	_, _, scaled = fitSize(800, 600, 2000)
	assert.False(t, scaled)
}

func TestBildCodecRoundTrip(t *testing.T) {
	loader := NewImageLoader(BildCodec{}, 0, quietLogger())
	path := filepath.Join(t.TempDir(), "out.png")

	src := checker(12, 8)
	require.NoError(t, loader.SaveImage(src, path))

	got, err := loader.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds().Size(), got.Bounds().Size())

	r, _, b, _ := got.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), b)
}

func TestLoaderFitsLargeImages(t *testing.T) {
	loader := NewImageLoader(BildCodec{}, 10, quietLogger())

	var buf bytes.Buffer
	require.NoError(t, BildCodec{}.EncodePNG(&buf, checker(40, 20)))

	img, err := loader.DecodeImage(&buf)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
}

func TestLoaderErrors(t *testing.T) {
	loader := NewImageLoader(BildCodec{}, 0, quietLogger())

	_, err := loader.LoadImage("photo.gif")
	assert.Error(t, err)

	_, err = loader.DecodeImage(strings.NewReader(""))
	assert.Error(t, err)

	_, err = loader.DecodeImage(strings.NewReader("not an image"))
	assert.Error(t, err)

	assert.Error(t, loader.SaveImage(nil, filepath.Join(t.TempDir(), "x.png")))
	assert.Error(t, loader.SaveImage(checker(2, 2), filepath.Join(t.TempDir(), "x.gif")))
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec("bild")
	require.NoError(t, err)
	assert.Equal(t, CodecBild, c.Name())

	c, err = NewCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecOpenCV, c.Name())

	_, err = NewCodec("imagemagick")
	assert.Error(t, err)
}
