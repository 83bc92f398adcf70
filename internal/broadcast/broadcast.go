// Package broadcast delivers heading readings to any number of listeners
// inside the process.
package broadcast

import (
	"sync"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

// Publisher receives readings.
type Publisher interface {
	Publish(compass.Reading)
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(compass.Reading)

func (f PublisherFunc) Publish(r compass.Reading) { f(r) }

type subscription struct {
	id  uint64
	pub Publisher
}

// Broadcaster fans a reading out to its subscribers in subscription order.
// Subscribe and the returned cancel func may be called from any goroutine;
// Publish runs the subscribers synchronously on the caller's goroutine.
type Broadcaster struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers p and returns a func that removes it again.
func (b *Broadcaster) Subscribe(p Publisher) (cancel func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, pub: p})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Broadcaster) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers r to every subscriber.
func (b *Broadcaster) Publish(r compass.Reading) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		s.pub.Publish(r)
	}
}
