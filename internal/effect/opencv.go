package effect

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCV applies the effect with gocv.
type OpenCV struct {
	profile Profile
}

func NewOpenCV(profile Profile) *OpenCV {
	return &OpenCV{profile: profile}
}

func (o *OpenCV) Name() string { return BackendOpenCV }

func (o *OpenCV) Apply(ctx context.Context, src image.Image, intensity Intensity) (out image.Image, err error) {
	defer recoverInto(o.Name(), &err)

	if err := checkSource(src); err != nil {
		return nil, err
	}
	params, err := ParamsFor(intensity, o.profile)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert source: %w", err)
	}
	defer mat.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	sigma := params.Sigma()
	if err := gocv.GaussianBlur(mat, &blurred, image.Point{}, sigma, sigma, gocv.BorderReflect101); err != nil {
		return nil, fmt.Errorf("gaussian blur failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	saturated, err := o.saturate(blurred, params.Saturation)
	if err != nil {
		return nil, err
	}
	defer saturated.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tinted := gocv.NewMat()
	defer tinted.Close()
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), saturated.Rows(), saturated.Cols(), saturated.Type())
	defer white.Close()
	if err := gocv.AddWeighted(saturated, 1-params.TintAlpha, white, params.TintAlpha, 0, &tinted); err != nil {
		return nil, fmt.Errorf("tint failed: %w", err)
	}

	result, err := tinted.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}
	return result, nil
}

// saturate scales the S channel in HSV space.
func (o *OpenCV) saturate(src gocv.Mat, factor float64) (gocv.Mat, error) {
	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV); err != nil {
		return gocv.NewMat(), fmt.Errorf("hsv conversion failed: %w", err)
	}

	channels := gocv.Split(hsv)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.NewMat(), fmt.Errorf("unexpected channel count %d", len(channels))
	}
	channels[1].MultiplyFloat(float32(factor))

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	out := gocv.NewMat()
	if err := gocv.CvtColor(merged, &out, gocv.ColorHSVToBGR); err != nil {
		out.Close()
		return gocv.NewMat(), fmt.Errorf("bgr conversion failed: %w", err)
	}
	return out, nil
}
