// Package kvstore persists named boolean flags.
package kvstore

import (
	"context"
	"sync"
)

// Store reads and writes boolean flags. Unknown keys read as false.
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value bool) error
}

// Armer is implemented by stores that can atomically flip a flag from
// unset to set. Arm reports true only for the caller that flipped it.
type Armer interface {
	Arm(ctx context.Context, key string) (bool, error)
}

// Memory is a process-local Store, mainly for tests and headless runs
// without a data directory.
type Memory struct {
	mu    sync.Mutex
	flags map[string]bool
}

func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) Get(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[key], nil
}

func (m *Memory) Set(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = value
	return nil
}

func (m *Memory) Arm(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flags[key] {
		return false, nil
	}
	m.flags[key] = true
	return true, nil
}
