// Package events carries typed notifications about entity changes between
// the services and whoever needs to react to them, such as the stats cache
// or a client-side data manager.
package events

import (
	"sync"

	"github.com/gofrs/uuid"
)

// Event is one of Created, Updated, Deleted or Failed.
type Event interface {
	// Source is the collection the event concerns, e.g. "tasks".
	Source() string
}

type Created struct {
	Collection string
	ID         uuid.UUID
	Document   interface{}
}

type Updated struct {
	Collection string
	ID         uuid.UUID
	Document   interface{}
}

type Deleted struct {
	Collection string
	ID         uuid.UUID
}

// Failed reports an operation that did not complete.
type Failed struct {
	Collection string
	Op         string
	Err        error
}

func (e Created) Source() string { return e.Collection }
func (e Updated) Source() string { return e.Collection }
func (e Deleted) Source() string { return e.Collection }
func (e Failed) Source() string  { return e.Collection }

type Observer interface {
	Notify(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

type subscription struct {
	id       uint64
	observer Observer
}

// Bus delivers events synchronously, in subscription order, on the
// publisher's goroutine. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers o and returns a function that removes it.
func (b *Bus) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, observer: o})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish is a no-op on a nil bus.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.observer.Notify(e)
	}
}

func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
