// Package sequence produces endless random orderings over fixed collections.
package sequence

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyCollection is returned when a sequence is requested over zero items.
var ErrEmptyCollection = errors.New("sequence: collection is empty")

// Unique yields random indices in [0, n) such that no two consecutive draws
// are equal when n >= 2. With n == 1 the only index repeats forever.
//
// Unique is not safe for concurrent use; callers must serialize Next.
type Unique struct {
	n        int
	previous int
	rng      *rand.Rand
}

// NewUnique returns a sequence over n items. A nil rng uses a randomly seeded source.
func NewUnique(n int, rng *rand.Rand) (*Unique, error) {
	if n <= 0 {
		return nil, ErrEmptyCollection
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Unique{n: n, previous: -1, rng: rng}, nil
}

// Len returns the size of the backing collection.
func (u *Unique) Len() int {
	return u.n
}

// Next draws uniformly among every index except the previous one.
func (u *Unique) Next() int {
	if u.n == 1 {
		u.previous = 0
		return 0
	}

	var next int
	if u.previous < 0 {
		next = u.rng.IntN(u.n)
	} else {
		// Draw from n-1 slots and skip over the previous index.
		next = u.rng.IntN(u.n - 1)
		if next >= u.previous {
			next++
		}
	}

	u.previous = next
	return next
}

// Cycle walks a fixed collection in consecutively unique random order.
type Cycle[T any] struct {
	items []T
	seq   *Unique
}

// NewCycle copies items and wraps them in a Unique sequence.
func NewCycle[T any](items []T, rng *rand.Rand) (*Cycle[T], error) {
	seq, err := NewUnique(len(items), rng)
	if err != nil {
		return nil, err
	}
	owned := make([]T, len(items))
	copy(owned, items)
	return &Cycle[T]{items: owned, seq: seq}, nil
}

// Next returns the next item.
func (c *Cycle[T]) Next() T {
	return c.items[c.seq.Next()]
}

// Len returns the number of items being cycled.
func (c *Cycle[T]) Len() int {
	return len(c.items)
}
