package content

import (
	"sync"
	"sync/atomic"
)

type registration struct {
	id     ListenerID
	fn     Listener
	active atomic.Bool
}

// emitter is an ordered listener registry. Emission happens outside the
// lock so a listener may remove itself or others while being called. A
// listener removed or cleared before its turn in an emission is skipped.
type emitter struct {
	mu        sync.RWMutex
	nextID    ListenerID
	listeners []*registration
}

func newEmitter() *emitter {
	return &emitter{}
}

func (e *emitter) add(fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	r := &registration{id: e.nextID, fn: fn}
	r.active.Store(true)
	e.listeners = append(e.listeners, r)
	return e.nextID
}

func (e *emitter) remove(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range e.listeners {
		if r.id == id {
			r.active.Store(false)
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *emitter) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range e.listeners {
		r.active.Store(false)
	}
	e.listeners = nil
}

func (e *emitter) len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

func (e *emitter) emit(line string) {
	e.mu.RLock()
	snapshot := make([]*registration, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	for _, r := range snapshot {
		if !r.active.Load() {
			continue
		}
		r.fn(line)
	}
}
