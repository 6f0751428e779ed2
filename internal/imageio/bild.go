package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

const jpegQuality = 92

// BildCodec is the pure Go codec.
type BildCodec struct{}

func (BildCodec) Name() string { return CodecBild }

func (BildCodec) Load(path string) (image.Image, error) {
	return imgio.Open(path)
}

func (BildCodec) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func (BildCodec) Save(path string, img image.Image) error {
	var encoder imgio.Encoder
	switch strings.ToLower(getFileExtension(path)) {
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(jpegQuality)
	case ".png":
		encoder = imgio.PNGEncoder()
	case ".bmp":
		encoder = imgio.BMPEncoder()
	default:
		return fmt.Errorf("no encoder for %s", path)
	}
	return imgio.Save(path, img, encoder)
}

func (BildCodec) EncodePNG(w io.Writer, img image.Image) error {
	return imgio.PNGEncoder()(w, img)
}

func (BildCodec) Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h, scaled := fitSize(b.Dx(), b.Dy(), maxSide)
	if !scaled {
		return img
	}
	return transform.Resize(img, w, h, transform.Linear)
}
