// Package stock serves the bundled wallpapers in random order without
// showing the same one twice in a row.
package stock

import (
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/core"
	"blur-wallpaper/internal/imageio"
	"blur-wallpaper/internal/sequence"
)

type entry struct {
	name string
	path string
	// palette entries are rendered instead of loaded
	palette [2]color.RGBA
}

// Provider hands out stock images. It is safe for concurrent use.
type Provider struct {
	loader *imageio.ImageLoader
	logger logrus.FieldLogger

	mu    sync.Mutex
	cycle *sequence.Cycle[entry]
}

// NewProvider resolves the images in dir once. When dir is empty or holds
// no supported images, a set of rendered gradients is used instead.
func NewProvider(dir string, loader *imageio.ImageLoader, rng *rand.Rand, logger logrus.FieldLogger) (*Provider, error) {
	var entries []entry
	if dir != "" {
		paths, err := Discover(dir)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			entries = append(entries, entry{name: filepath.Base(p), path: p})
		}
	}

	if len(entries) == 0 {
		logger.WithField("dir", dir).Warn("STOCK: No bundled images found, using gradients")
		entries = gradients()
	}

	cycle, err := sequence.NewCycle(entries, rng)
	if err != nil {
		return nil, err
	}

	logger.WithField("count", cycle.Len()).Info("STOCK: Images resolved")
	return &Provider{loader: loader, logger: logger, cycle: cycle}, nil
}

// Discover lists the supported image files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stock directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if imageio.IsSupportedImageFormat(p) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle.Len()
}

// Next returns the next stock image, never the same as the previous one
// unless only one exists.
func (p *Provider) Next() (*core.SourceImage, error) {
	p.mu.Lock()
	e := p.cycle.Next()
	p.mu.Unlock()

	var (
		img image.Image
		err error
	)
	if e.path != "" {
		img, err = p.loader.LoadImage(e.path)
		if err != nil {
			return nil, err
		}
	} else {
		img = render(e.palette, gradientWidth, gradientHeight)
	}

	return core.NewSourceImage(img, e.name)
}

const (
	gradientWidth  = 1200
	gradientHeight = 1800
)

func gradients() []entry {
	palettes := [][2]color.RGBA{
		{{R: 0x1d, G: 0x2b, B: 0x64, A: 0xff}, {R: 0xf8, G: 0xcd, B: 0xda, A: 0xff}},
		{{R: 0x0f, G: 0x20, B: 0x27, A: 0xff}, {R: 0x2c, G: 0x53, B: 0x64, A: 0xff}},
		{{R: 0xff, G: 0x7e, B: 0x5f, A: 0xff}, {R: 0xfe, G: 0xb4, B: 0x7b, A: 0xff}},
		{{R: 0x13, G: 0x4e, B: 0x5e, A: 0xff}, {R: 0x71, G: 0xb2, B: 0x80, A: 0xff}},
		{{R: 0x41, G: 0x29, B: 0x5a, A: 0xff}, {R: 0x2f, G: 0x07, B: 0x43, A: 0xff}},
	}
	out := make([]entry, len(palettes))
	for i, pal := range palettes {
		out[i] = entry{name: fmt.Sprintf("gradient-%d", i+1), palette: pal}
	}
	return out
}

// render draws a diagonal gradient between the two colors.
func render(pal [2]color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	span := float64(w + h - 2)
	if span <= 0 {
		span = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / span
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(pal[0].R, pal[1].R, t),
				G: lerp(pal[0].G, pal[1].G, t),
				B: lerp(pal[0].B, pal[1].B, t),
				A: 0xff,
			})
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
