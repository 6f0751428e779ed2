// Package effect maps blur intensity onto concrete blur, tint and saturation
// parameters and applies them to images.
package effect

import (
	"errors"
	"fmt"
	"math"
)

// Intensity bounds.
const (
	MinIntensity     Intensity = 10
	MaxIntensity     Intensity = 100
	DefaultIntensity Intensity = 50
)

// ErrInvalidIntensity is returned for values that cannot be clamped (NaN).
var ErrInvalidIntensity = errors.New("intensity is not a number")

// Intensity is the user-controlled blur strength in [MinIntensity, MaxIntensity].
type Intensity float64

// Clamp returns the intensity forced into the valid domain.
func (i Intensity) Clamp() (Intensity, error) {
	if math.IsNaN(float64(i)) {
		return 0, ErrInvalidIntensity
	}
	return Intensity(clamp(float64(i), float64(MinIntensity), float64(MaxIntensity))), nil
}

// Valid reports whether i already lies inside the domain.
func (i Intensity) Valid() bool {
	return i >= MinIntensity && i <= MaxIntensity
}

// Profile selects the saturation slope. Large displays get a gentler curve.
type Profile string

const (
	ProfileCompact Profile = "compact"
	ProfileLarge   Profile = "large"
)

// ParseProfile accepts "compact" or "large"; empty means compact.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case "", ProfileCompact:
		return ProfileCompact, nil
	case ProfileLarge:
		return ProfileLarge, nil
	default:
		return "", fmt.Errorf("unknown display profile %q", s)
	}
}

func (p Profile) saturationSlope() float64 {
	if p == ProfileLarge {
		return 0.035
	}
	return 0.045
}

const (
	radiusPerIntensity = 0.8
	tintPerIntensity   = 0.004
	maxTintAlpha       = 0.25
	minSaturation      = 1.0
	maxSaturation      = 2.8
)

// Params are the concrete knobs a backend applies.
type Params struct {
	// Radius grows linearly with intensity.
	Radius float64
	// TintAlpha is the opacity of the white overlay, capped at 0.25.
	TintAlpha float64
	// Saturation multiplies the saturation channel, in [1, 2.8].
	Saturation float64
}

// Sigma is the Gaussian standard deviation backends use for Radius.
func (p Params) Sigma() float64 {
	return p.Radius / 2
}

// ParamsFor maps an intensity onto backend parameters. The intensity is
// clamped first.
func ParamsFor(i Intensity, profile Profile) (Params, error) {
	i, err := i.Clamp()
	if err != nil {
		return Params{}, err
	}
	v := float64(i)
	return Params{
		Radius:     v * radiusPerIntensity,
		TintAlpha:  clamp(v*tintPerIntensity, 0, maxTintAlpha),
		Saturation: clamp(v*profile.saturationSlope(), minSaturation, maxSaturation),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
