package effect

import (
	"context"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
)

// Bild applies the effect in pure Go. It is slower than OpenCV but needs no cgo.
type Bild struct {
	profile Profile
}

func NewBild(profile Profile) *Bild {
	return &Bild{profile: profile}
}

func (b *Bild) Name() string { return BackendBild }

func (b *Bild) Apply(ctx context.Context, src image.Image, intensity Intensity) (out image.Image, err error) {
	defer recoverInto(b.Name(), &err)

	if err := checkSource(src); err != nil {
		return nil, err
	}
	params, err := ParamsFor(intensity, b.profile)
	if err != nil {
		return nil, err
	}

	blurred := blur.Gaussian(src, params.Sigma())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// bild takes the relative change, 0 meaning unchanged.
	saturated := adjust.Saturation(blurred, params.Saturation-1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alpha := params.TintAlpha
	return adjust.Apply(saturated, func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: towardWhite(c.R, alpha),
			G: towardWhite(c.G, alpha),
			B: towardWhite(c.B, alpha),
			A: c.A,
		}
	}), nil
}

func towardWhite(v uint8, alpha float64) uint8 {
	return uint8(float64(v)*(1-alpha) + 255*alpha + 0.5)
}
