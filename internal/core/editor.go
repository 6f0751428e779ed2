package core

import (
	"github.com/sirupsen/logrus"

	"blur-wallpaper/internal/effect"
)

// Editor connects a ParameterStore to a Scheduler: every accepted change in
// the store becomes a scheduler request.
type Editor struct {
	Store     *ParameterStore
	Scheduler *Scheduler
}

func NewEditor(initial effect.Intensity, transform effect.Transform, dispatch Dispatcher, cfg SchedulerConfig, logger logrus.FieldLogger) (*Editor, error) {
	store, err := NewParameterStore(initial, logger)
	if err != nil {
		return nil, err
	}
	scheduler := NewScheduler(transform, dispatch, cfg, logger)
	store.OnChange(scheduler.Request)

	return &Editor{Store: store, Scheduler: scheduler}, nil
}

// SetSource forwards to the store.
func (e *Editor) SetSource(src *SourceImage) error {
	return e.Store.SetSource(src)
}

// SetIntensity forwards to the store.
func (e *Editor) SetIntensity(v effect.Intensity) (effect.Intensity, error) {
	return e.Store.SetIntensity(v)
}

// Close stops background work.
func (e *Editor) Close() {
	e.Scheduler.Stop()
}
