package effect

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrEmptySource is returned when a transform receives a zero-sized image.
var ErrEmptySource = errors.New("source image is empty")

// Transform turns a source image into its blurred, tinted derivative.
// Implementations hold no mutable state and may be called concurrently.
// They check ctx between stages and return ctx.Err() once it is done.
type Transform interface {
	Name() string
	Apply(ctx context.Context, src image.Image, intensity Intensity) (image.Image, error)
}

// Backend names accepted by New.
const (
	BackendOpenCV = "opencv"
	BackendBild   = "bild"
)

// New returns the transform for a backend name.
func New(backend string, profile Profile) (Transform, error) {
	switch backend {
	case "", BackendOpenCV:
		return NewOpenCV(profile), nil
	case BackendBild:
		return NewBild(profile), nil
	default:
		return nil, fmt.Errorf("unknown effect backend %q", backend)
	}
}

func checkSource(src image.Image) error {
	if src == nil || src.Bounds().Empty() {
		return ErrEmptySource
	}
	return nil
}

// recoverInto converts a panic inside a backend into an error.
func recoverInto(name string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic in %s transform: %v", name, r)
	}
}
