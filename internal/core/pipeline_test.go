package core

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blur-wallpaper/internal/effect"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newTestEditor(t *testing.T, tr effect.Transform, dispatch Dispatcher, cfg SchedulerConfig) (*Editor, *recorder) {
	t.Helper()
	editor, err := NewEditor(50, tr, dispatch, cfg, quietLogger())
	require.NoError(t, err)
	rec := &recorder{}
	editor.Scheduler.SetCallbacks(rec.onImage, rec.onError)
	t.Cleanup(editor.Close)
	return editor, rec
}

func TestSchedulerDeliversLatestOfBurst(t *testing.T) {
	tr := newGatedTransform()
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 16})

	require.NoError(t, editor.SetSource(solid(t, "a", 8, 8)))
	burst := []effect.Intensity{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	for _, v := range burst {
		_, err := editor.SetIntensity(v)
		require.NoError(t, err)
	}

	// complete in reverse submission order
	for i := len(burst) - 1; i >= 0; i-- {
		tr.release(burst[i])
	}
	tr.release(50)

	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	assert.Equal(t, []effect.Intensity{20}, rec.intensities())
	assert.Equal(t, effect.Intensity(20), editor.Scheduler.Latest().Intensity)
	assert.False(t, editor.Scheduler.Pending())

	st := editor.Scheduler.Stats()
	assert.Equal(t, uint64(11), st.Requested)
	assert.Equal(t, uint64(1), st.Delivered)
	assert.Equal(t, uint64(10), st.Discarded)
}

func TestSchedulerLateStaleResultIsDiscarded(t *testing.T) {
	tr := newGatedTransform()
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 4})

	require.NoError(t, editor.SetSource(solid(t, "A", 8, 8)))
	tr.release(50)
	require.Eventually(t, func() bool { return len(rec.intensities()) == 1 }, waitFor, tick)

	_, err := editor.SetIntensity(90)
	require.NoError(t, err)
	_, err = editor.SetIntensity(20)
	require.NoError(t, err)

	// 20 finishes first, 90 finishes late
	tr.release(20)
	require.Eventually(t, func() bool { return len(rec.intensities()) == 2 }, waitFor, tick)
	tr.release(90)
	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	assert.Equal(t, []effect.Intensity{50, 20}, rec.intensities())
	latest := editor.Scheduler.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, effect.Intensity(20), latest.Intensity)
	assert.Equal(t, "A", latest.Source.Name())
}

func TestSchedulerNeverPublishesOlderAfterNewer(t *testing.T) {
	tr := &instantTransform{}
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 8})
	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			for v := 10; v <= 100; v++ {
				_, _ = editor.SetIntensity(effect.Intensity(v))
			}
		}(round)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.images)
	for i := 1; i < len(rec.images); i++ {
		assert.Greater(t, rec.images[i].Generation, rec.images[i-1].Generation)
	}
	final := rec.images[len(rec.images)-1]
	assert.Equal(t, editor.Store.Current().Intensity, final.Intensity)
}

func TestSchedulerDropsResultOvertakenInDispatchQueue(t *testing.T) {
	var (
		mu     sync.Mutex
		queued []func()
	)
	manual := func(fn func()) {
		mu.Lock()
		queued = append(queued, fn)
		mu.Unlock()
	}
	drain := func() {
		mu.Lock()
		fns := queued
		queued = nil
		mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	}
	queueLen := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(queued)
	}

	tr := &instantTransform{}
	editor, rec := newTestEditor(t, tr, manual, SchedulerConfig{Workers: 1})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	require.Eventually(t, func() bool { return queueLen() == 1 }, waitFor, tick)

	// a newer request arrives while the first result waits for the UI thread
	_, err := editor.SetIntensity(70)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return queueLen() == 2 }, waitFor, tick)

	drain()
	assert.Equal(t, []effect.Intensity{70}, rec.intensities())
}

func TestSchedulerKeepsPreviousImageOnError(t *testing.T) {
	tr := newGatedTransform()
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 2})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	tr.release(50)
	require.Eventually(t, func() bool { return len(rec.intensities()) == 1 }, waitFor, tick)

	tr.fail(30)
	_, err := editor.SetIntensity(30)
	require.NoError(t, err)
	tr.release(30)

	require.Eventually(t, func() bool { return len(rec.errors()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	var compErr *ComputationError
	require.True(t, errors.As(rec.errors()[0], &compErr))
	assert.Equal(t, effect.Intensity(30), compErr.Intensity)
	assert.Equal(t, []effect.Intensity{50}, rec.intensities())
	assert.Equal(t, effect.Intensity(50), editor.Scheduler.Latest().Intensity)
	assert.Equal(t, uint64(1), editor.Scheduler.Stats().Failed)
}

func TestSchedulerStaleErrorIsNotReported(t *testing.T) {
	tr := newGatedTransform()
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 4})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	tr.fail(50)
	_, err := editor.SetIntensity(60)
	require.NoError(t, err)

	tr.release(50)
	tr.release(60)
	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	assert.Empty(t, rec.errors())
	assert.Equal(t, []effect.Intensity{60}, rec.intensities())
}

func TestSchedulerDebounceSkipsSupersededRequests(t *testing.T) {
	tr := &instantTransform{}
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{DebounceDelay: 200 * time.Millisecond, Workers: 1})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	for _, v := range []effect.Intensity{20, 30, 40} {
		_, err := editor.SetIntensity(v)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(rec.intensities()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)

	assert.Equal(t, []effect.Intensity{40}, rec.intensities())
	assert.Equal(t, 1, tr.count())
}

func TestSchedulerPanicBecomesError(t *testing.T) {
	editor, rec := newTestEditor(t, panicTransform{}, Immediate, SchedulerConfig{Workers: 1})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	require.Eventually(t, func() bool { return len(rec.errors()) == 1 }, waitFor, tick)
	assert.Contains(t, rec.errors()[0].Error(), "panic in transform")
	assert.Nil(t, editor.Scheduler.Latest())
}

func TestSchedulerStopIgnoresLaterRequests(t *testing.T) {
	tr := newGatedTransform()
	editor, rec := newTestEditor(t, tr, Immediate, SchedulerConfig{Workers: 2})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	editor.Close()
	tr.release(50)

	_, err := editor.SetIntensity(70)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)
	assert.Empty(t, rec.intensities())
	assert.Equal(t, uint64(1), editor.Scheduler.Stats().Requested)
}

func TestSchedulerWithLoopDispatcher(t *testing.T) {
	loop := NewLoop(16)
	defer loop.Close()

	tr := &instantTransform{}
	editor, rec := newTestEditor(t, tr, loop.Do, SchedulerConfig{Workers: 2})

	require.NoError(t, editor.SetSource(solid(t, "a", 4, 4)))
	_, err := editor.SetIntensity(80)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return settled(editor.Scheduler) }, waitFor, tick)
	got := rec.intensities()
	require.NotEmpty(t, got)
	assert.Equal(t, effect.Intensity(80), got[len(got)-1])
}

func TestSchedulerWithBildTransform(t *testing.T) {
	editor, rec := newTestEditor(t, effect.NewBild(effect.ProfileCompact), Immediate, SchedulerConfig{Workers: 1})

	require.NoError(t, editor.SetSource(solid(t, "a", 16, 12)))
	require.Eventually(t, func() bool { return len(rec.intensities()) == 1 }, waitFor, tick)

	latest := editor.Scheduler.Latest()
	assert.Equal(t, 16, latest.Image.Bounds().Dx())
	assert.Equal(t, 12, latest.Image.Bounds().Dy())
}
