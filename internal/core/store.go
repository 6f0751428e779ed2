package core

import (
	"sync"

	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/effect"
)

// Snapshot is a consistent (source, intensity) pairing. Version increases
// with every accepted change.
type Snapshot struct {
	Source    *SourceImage
	Intensity effect.Intensity
	Version   uint64
}

// ParameterStore holds the current source image and intensity and is the
// single place either one changes.
type ParameterStore struct {
	mu       sync.Mutex
	snap     Snapshot
	onChange func(Snapshot)
	logger   logrus.FieldLogger
}

func NewParameterStore(initial effect.Intensity, logger logrus.FieldLogger) (*ParameterStore, error) {
	clamped, err := initial.Clamp()
	if err != nil {
		return nil, err
	}
	return &ParameterStore{
		snap:   Snapshot{Intensity: clamped},
		logger: logger,
	}, nil
}

// OnChange registers the recomputation hook. It is called with the store
// locked so successive snapshots arrive in the order they were made; fn must
// not block or call back into the store.
func (s *ParameterStore) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetSource replaces the source image and requests a recomputation with the
// current intensity.
func (s *ParameterStore) SetSource(src *SourceImage) error {
	if src == nil {
		return ErrNoImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Source = src
	s.snap.Version++
	s.logger.WithFields(logrus.Fields{
		"source":    src.String(),
		"intensity": float64(s.snap.Intensity),
		"version":   s.snap.Version,
	}).Debug("STORE: Source replaced")

	s.notifyLocked()
	return nil
}

// SetIntensity clamps v into range and stores it. A recomputation is
// requested only when the clamped value differs from the stored one and a
// source is set. The clamped value is returned.
func (s *ParameterStore) SetIntensity(v effect.Intensity) (effect.Intensity, error) {
	clamped, err := v.Clamp()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if clamped == s.snap.Intensity {
		return clamped, nil
	}

	s.snap.Intensity = clamped
	s.snap.Version++
	if clamped != v {
		s.logger.WithFields(logrus.Fields{
			"requested": float64(v),
			"clamped":   float64(clamped),
		}).Debug("STORE: Intensity clamped")
	}

	if s.snap.Source != nil {
		s.notifyLocked()
	}
	return clamped, nil
}

// Current returns the latest snapshot.
func (s *ParameterStore) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *ParameterStore) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.snap)
	}
}
