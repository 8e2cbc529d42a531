package counter

import "math"

// Counter hands out request numbers 1, 2, 3, ... to concurrent callers.
// Its zero value is ready to use.
type Counter struct {
	g Guard
}

// New returns a Counter starting at zero.
func New() *Counter {
	return new(Counter)
}

// Next advances the counter by one and returns the new value. Overflow
// is treated as an abnormal exit from the critical section and poisons
// the counter.
func (c *Counter) Next() (int64, error) {
	var n int64
	err := c.g.Do(func(v *int64) error {
		if *v == math.MaxInt64 {
			panic("counter overflow")
		}
		*v++
		n = *v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Value returns the last value handed out by Next.
func (c *Counter) Value() (int64, error) {
	return c.g.Load()
}

// Poisoned reports whether the counter is unusable.
func (c *Counter) Poisoned() bool {
	return c.g.Poisoned()
}
