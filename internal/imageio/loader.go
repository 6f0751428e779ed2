// Image file loading, decoding and saving
package imageio

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Codec decodes, encodes and resizes images.
type Codec interface {
	Name() string
	Load(path string) (image.Image, error)
	Decode(data []byte) (image.Image, error)
	// Save picks the file format from the path extension.
	Save(path string, img image.Image) error
	EncodePNG(w io.Writer, img image.Image) error
	// Fit scales img down so neither side exceeds maxSide. Smaller images
	// are returned unchanged.
	Fit(img image.Image, maxSide int) image.Image
}

// Codec names accepted by NewCodec.
const (
	CodecOpenCV = "opencv"
	CodecBild   = "bild"
)

func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecOpenCV:
		return OpenCVCodec{}, nil
	case CodecBild:
		return BildCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown image codec %q", name)
	}
}

// ImageLoader handles image file operations
type ImageLoader struct {
	codec        Codec
	maxPixelSize int
	logger       logrus.FieldLogger
}

// NewImageLoader returns a loader that scales every loaded image down to
// maxPixelSize on its longest side. Zero disables scaling.
func NewImageLoader(codec Codec, maxPixelSize int, logger logrus.FieldLogger) *ImageLoader {
	return &ImageLoader{
		codec:        codec,
		maxPixelSize: maxPixelSize,
		logger:       logger,
	}
}

func (il *ImageLoader) Codec() Codec {
	return il.codec
}

func (il *ImageLoader) LoadImage(filepath string) (image.Image, error) {
	il.logger.WithField("filepath", filepath).Debug("Loading image")

	if !IsSupportedImageFormat(filepath) {
		return nil, fmt.Errorf("unsupported image format: %s", filepath)
	}

	img, err := il.codec.Load(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", filepath, err)
	}

	img = il.fit(img)
	il.logger.WithFields(logrus.Fields{
		"filepath": filepath,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("Image loaded successfully")

	return img, nil
}

// DecodeImage reads an encoded image from r, as delivered by a picker or an upload.
func (il *ImageLoader) DecodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	img, err := il.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return il.fit(img), nil
}

// EncodePNG writes img to w as PNG.
func (il *ImageLoader) EncodePNG(w io.Writer, img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot encode empty image")
	}
	return il.codec.EncodePNG(w, img)
}

func (il *ImageLoader) SaveImage(img image.Image, filepath string) error {
	il.logger.WithField("filepath", filepath).Debug("Saving image")

	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}

	if !IsSupportedImageFormat(filepath) {
		return fmt.Errorf("unsupported image format: %s", filepath)
	}

	if err := il.codec.Save(filepath, img); err != nil {
		return fmt.Errorf("failed to save image %s: %w", filepath, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": filepath,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("Image saved successfully")

	return nil
}

func (il *ImageLoader) fit(img image.Image) image.Image {
	if il.maxPixelSize <= 0 {
		return img
	}
	return il.codec.Fit(img, il.maxPixelSize)
}

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".bmp"}

// IsSupportedImageFormat reports whether the extension of path is one the codecs handle.
func IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(getFileExtension(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

func getFileExtension(filepath string) string {
	for i := len(filepath) - 1; i >= 0; i-- {
		if filepath[i] == '.' {
			return filepath[i:]
		}
		if filepath[i] == '/' || filepath[i] == '\\' {
			break
		}
	}
	return ""
}

// fitSize returns the scaled dimensions for a maxSide bound.
func fitSize(w, h, maxSide int) (int, int, bool) {
	if w <= maxSide && h <= maxSide {
		return w, h, false
	}
	if w >= h {
		return maxSide, max(1, h*maxSide/w), true
	}
	return max(1, w*maxSide/h), maxSide, true
}
