// Package traffic tallies requests per route and alerts on request rate.
package traffic

import (
	"sort"
	"sync"
)

type keyCounter struct {
	count uint64
	mux   sync.RWMutex
}

func (k *keyCounter) Add(inc uint64) {
	k.mux.Lock()
	k.count += inc
	k.mux.Unlock()
}

func (k *keyCounter) Get() uint64 {
	k.mux.RLock()
	defer k.mux.RUnlock()
	return k.count
}

// RequestCounter provides safe concurrent counting
// of requests made per route.
type RequestCounter struct {
	reqs sync.Map
}

// IncKey safely increments a key's count. Adds a new keyCounter to the map,
// iff it does not exist.
func (r *RequestCounter) IncKey(key string, i uint64) {
	if kc, ok := r.reqs.Load(key); ok {
		kc.(*keyCounter).Add(i)
		return
	}
	kc, _ := r.reqs.LoadOrStore(key, new(keyCounter))
	kc.(*keyCounter).Add(i)
}

// Export provides a standard map of collected key values.
func (r *RequestCounter) Export() map[string]uint64 {
	output := make(map[string]uint64)
	r.reqs.Range(func(key, value interface{}) bool {
		output[key.(string)] = value.(*keyCounter).Get()
		return true
	})
	return output
}

// Request is a single route's tally.
type Request struct {
	Route string
	C     uint64
}

// TopN orders m by count, highest first, breaking ties by route name,
// and returns at most n entries.
func TopN(m map[string]uint64, n int) []Request {
	out := make([]Request, 0, len(m))
	for k, v := range m {
		out = append(out, Request{Route: k, C: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].C != out[j].C {
			return out[i].C > out[j].C
		}
		return out[i].Route < out[j].Route
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
