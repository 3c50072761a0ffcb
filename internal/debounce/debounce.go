// Package debounce coalesces bursts of events into a single trailing-edge
// emission. A reviewer working through a file's findings produces a rapid
// stream of status changes; only the last one per file needs to trigger a
// score recalculation.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period required before an emission fires.
const DefaultDelay = 500 * time.Millisecond

// Debouncer delivers the most recent value passed to Emit once no new value
// has arrived for the configured delay. Safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fire  func(T)

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	latest T
}

// New builds a Debouncer that calls fire with the last emitted value after
// each quiet period. A non-positive delay falls back to DefaultDelay.
func New[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fire: fire}
}

// Emit records v and restarts the quiet-period timer. Earlier pending values
// are discarded.
func (d *Debouncer[T]) Emit(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.latest = v
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// Stop on an already-expired timer is a no-op: a callback that lost
		// the race to a newer Emit or a Cancel still runs, so it has to
		// check it is the current timer before firing.
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		v := d.latest
		d.timer = nil
		d.mu.Unlock()
		d.fire(v)
	})
}

// Cancel drops any pending emission.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Keyed maintains an independent Debouncer per key, so events for one file
// never delay or absorb events for another.
type Keyed[T any] struct {
	delay time.Duration
	fire  func(key string, v T)

	mu        sync.Mutex
	debouncer map[string]*Debouncer[T]
}

// NewKeyed builds a Keyed debouncer set.
func NewKeyed[T any](delay time.Duration, fire func(key string, v T)) *Keyed[T] {
	return &Keyed[T]{
		delay:     delay,
		fire:      fire,
		debouncer: make(map[string]*Debouncer[T]),
	}
}

// Emit records v under key, restarting that key's quiet period only.
func (k *Keyed[T]) Emit(key string, v T) {
	k.mu.Lock()
	d, ok := k.debouncer[key]
	if !ok {
		d = New(k.delay, func(v T) { k.fire(key, v) })
		k.debouncer[key] = d
	}
	k.mu.Unlock()

	d.Emit(v)
}

// CancelAll drops every pending emission.
func (k *Keyed[T]) CancelAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, d := range k.debouncer {
		d.Cancel()
	}
}
