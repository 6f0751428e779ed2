package kvstore

import (
	"context"
	"sync"

	"fyne.io/fyne/v2"
)

// Preferences stores flags in the fyne app preferences. Arm is atomic only
// within this process.
type Preferences struct {
	mu    sync.Mutex
	prefs fyne.Preferences
}

func NewPreferences(prefs fyne.Preferences) *Preferences {
	return &Preferences{prefs: prefs}
}

func (p *Preferences) Get(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prefs.BoolWithFallback(key, false), nil
}

func (p *Preferences) Set(_ context.Context, key string, value bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs.SetBool(key, value)
	return nil
}

func (p *Preferences) Arm(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefs.BoolWithFallback(key, false) {
		return false, nil
	}
	p.prefs.SetBool(key, true)
	return true, nil
}
