package watch

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of triggers per key into one callback after a
// quiet period. A generation counter invalidates timers superseded by a
// newer trigger.
type debouncer struct {
	delay time.Duration
	fn    func(key string)

	mu   sync.Mutex
	gens map[string]uint64
}

func newDebouncer(delay time.Duration, fn func(key string)) *debouncer {
	return &debouncer{
		delay: delay,
		fn:    fn,
		gens:  make(map[string]uint64),
	}
}

func (d *debouncer) trigger(key string) {
	d.mu.Lock()
	d.gens[key]++
	gen := d.gens[key]
	d.mu.Unlock()

	time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := d.gens[key] == gen
		if current {
			delete(d.gens, key)
		}
		d.mu.Unlock()
		if current {
			d.fn(key)
		}
	})
}
