// Core image types shared by the parameter store and the scheduler
package core

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"blur-wallpaper/internal/effect"
)

// ErrNoImage is returned when an operation needs a source image and none is set.
var ErrNoImage = errors.New("no source image")

const maxDimension = 16384

// SourceImage is an immutable RGBA copy of a picked or stock image.
// The pixel buffer is never written after construction.
type SourceImage struct {
	pixels *image.RGBA
	name   string
}

// NewSourceImage validates img and copies it into an owned buffer anchored at the origin.
func NewSourceImage(img image.Image, name string) (*SourceImage, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}

	b := img.Bounds()
	pixels := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(pixels, pixels.Bounds(), img, b.Min, draw.Src)

	return &SourceImage{pixels: pixels, name: name}, nil
}

// Image returns the pixels. Callers must treat the result as read-only.
func (s *SourceImage) Image() image.Image {
	return s.pixels
}

func (s *SourceImage) Name() string { return s.name }
func (s *SourceImage) Width() int   { return s.pixels.Rect.Dx() }
func (s *SourceImage) Height() int  { return s.pixels.Rect.Dy() }

func (s *SourceImage) String() string {
	return fmt.Sprintf("%s (%dx%d)", s.name, s.Width(), s.Height())
}

// DerivedImage is the transform output for one (source, intensity) request.
type DerivedImage struct {
	Image      image.Image
	Source     *SourceImage
	Intensity  effect.Intensity
	Generation uint64
	Elapsed    time.Duration
}

// ValidateImage checks an image for basic requirements
func ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", b.Dx(), b.Dy())
	}

	if b.Dx() > maxDimension || b.Dy() > maxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", b.Dx(), b.Dy(), maxDimension)
	}

	return nil
}
