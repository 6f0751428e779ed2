package core

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"blur-wallpaper/internal/effect"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func solid(t *testing.T, name string, w, h int) *SourceImage {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	src, err := NewSourceImage(img, name)
	require.NoError(t, err)
	return src
}

// gatedTransform blocks each call until the gate for its intensity is
// opened. It ignores ctx so stale work runs to completion, like CPU-bound
// code that cannot be interrupted.
type gatedTransform struct {
	mu      sync.Mutex
	gates   map[effect.Intensity]chan struct{}
	calls   []effect.Intensity
	failing map[effect.Intensity]bool
}

func newGatedTransform() *gatedTransform {
	return &gatedTransform{
		gates:   make(map[effect.Intensity]chan struct{}),
		failing: make(map[effect.Intensity]bool),
	}
}

func (g *gatedTransform) gate(v effect.Intensity) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[v]
	if !ok {
		ch = make(chan struct{})
		g.gates[v] = ch
	}
	return ch
}

func (g *gatedTransform) release(v effect.Intensity) {
	close(g.gate(v))
}

func (g *gatedTransform) fail(v effect.Intensity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing[v] = true
}

func (g *gatedTransform) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *gatedTransform) Name() string { return "gated" }

func (g *gatedTransform) Apply(_ context.Context, src image.Image, v effect.Intensity) (image.Image, error) {
	g.mu.Lock()
	g.calls = append(g.calls, v)
	failing := g.failing[v]
	g.mu.Unlock()

	<-g.gate(v)

	if failing {
		return nil, errors.New("bad parameters")
	}
	out := image.NewRGBA(src.Bounds())
	out.Set(0, 0, color.RGBA{R: uint8(v), A: 255})
	return out, nil
}

// instantTransform returns immediately.
type instantTransform struct {
	mu    sync.Mutex
	calls []effect.Intensity
}

func (i *instantTransform) Name() string { return "instant" }

func (i *instantTransform) Apply(ctx context.Context, src image.Image, v effect.Intensity) (image.Image, error) {
	i.mu.Lock()
	i.calls = append(i.calls, v)
	i.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return image.NewRGBA(src.Bounds()), nil
}

func (i *instantTransform) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.calls)
}

// recorder collects what the scheduler publishes.
type recorder struct {
	mu     sync.Mutex
	images []*DerivedImage
	errs   []error
}

func (r *recorder) onImage(d *DerivedImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, d)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) intensities() []effect.Intensity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]effect.Intensity, len(r.images))
	for i, d := range r.images {
		out[i] = d.Intensity
	}
	return out
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// settled reports whether every request has either been delivered, discarded or failed.
func settled(s *Scheduler) bool {
	st := s.Stats()
	return st.Requested == st.Delivered+st.Discarded+st.Failed
}

type panicTransform struct{}

func (panicTransform) Name() string { return "panic" }

func (panicTransform) Apply(context.Context, image.Image, effect.Intensity) (image.Image, error) {
	panic("kernel exploded")
}
