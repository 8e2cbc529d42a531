// Package counter provides the process-wide request sequence and the
// mutex-guarded cell it lives in.
package counter

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoisoned is returned once a critical section has panicked while
// holding the guard. The protected value can no longer be trusted.
var ErrPoisoned = errors.New("counter: lock poisoned")

// Guard owns an int64 and only exposes it inside Do.
type Guard struct {
	mux      sync.Mutex // guards fields below
	v        int64
	poisoned bool
}

// Do runs fn with exclusive access to the guarded value. fn works on a
// copy which is committed only when fn returns nil, so an error or a
// panic leaves the value untouched. A panic poisons the guard: the call
// and every later call return ErrPoisoned.
func (g *Guard) Do(fn func(v *int64) error) (err error) {
	g.mux.Lock()
	defer g.mux.Unlock()
	if g.poisoned {
		return ErrPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			err = fmt.Errorf("%w: %v", ErrPoisoned, r)
		}
	}()

	tmp := g.v
	if err := fn(&tmp); err != nil {
		return err
	}
	g.v = tmp
	return nil
}

// Load reads the guarded value.
func (g *Guard) Load() (int64, error) {
	var out int64
	err := g.Do(func(v *int64) error {
		out = *v
		return nil
	})
	return out, err
}

// Poisoned reports whether a critical section has panicked.
func (g *Guard) Poisoned() bool {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.poisoned
}
