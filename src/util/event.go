package util

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// listenerBuffer is the number of events a listener may lag behind before
// events are dropped for it.
const listenerBuffer = 64

// An Eventer is a type that exposes an Emitter.
type Eventer interface {
	Events() *Emitter
}

// An Emitter broadcasts events to all listeners that are registered at the
// time of emission. The zero value is ready to use.
//
// Events are delivered to each listener in the order in which they were
// emitted. Emit never blocks: a listener that falls too far behind misses
// events.
type Emitter struct {
	lock      sync.Mutex
	listeners map[chan interface{}]struct{}
}

// Emit sends the event to all current listeners.
func (emitter *Emitter) Emit(event interface{}) {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()
	for ch := range emitter.listeners {
		select {
		case ch <- event:
		default:
			log.Debugf("Dropped event %T for a slow listener", event)
		}
	}
}

// Listen registers a new listener. The listener is removed when the context
// is cancelled. The returned channel is never closed, consumers should
// select on the context as well.
func (emitter *Emitter) Listen(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{}, listenerBuffer)

	emitter.lock.Lock()
	if emitter.listeners == nil {
		emitter.listeners = map[chan interface{}]struct{}{}
	}
	emitter.listeners[ch] = struct{}{}
	emitter.lock.Unlock()

	go func() {
		<-ctx.Done()
		emitter.lock.Lock()
		delete(emitter.listeners, ch)
		emitter.lock.Unlock()
	}()
	return ch
}

// NumListeners returns the number of currently registered listeners.
func (emitter *Emitter) NumListeners() int {
	emitter.lock.Lock()
	defer emitter.lock.Unlock()
	return len(emitter.listeners)
}
