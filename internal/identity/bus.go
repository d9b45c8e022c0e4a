package identity

import (
	"context"
	"sync"
	"time"

	applog "homedeck/internal/log"
)

// Change describes a transition of the identity seen by one browser context.
// Previous is nil when the context was anonymous or not seen before; Current
// is nil on sign-out.
type Change struct {
	Key      string
	Previous *Identity
	Current  *Identity
}

// Listener receives identity changes.
type Listener func(ctx context.Context, change Change)

type lastSeen struct {
	identity Identity
	seen     time.Time
}

// Bus remembers the last identity per browser context and delivers a Change
// to every subscriber at most once per actual transition. Contexts that stop
// publishing are forgotten by Sweep.
type Bus struct {
	mu        sync.Mutex
	last      map[string]lastSeen
	listeners map[uint64]Listener
	nextID    uint64
	now       func() time.Time
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{
		last:      make(map[string]lastSeen),
		listeners: make(map[uint64]Listener),
		now:       time.Now,
	}
}

// Subscribe registers fn and returns the function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish records current as the identity of key. Listeners run only when it
// differs from the recorded one; the return value reports whether they did.
func (b *Bus) Publish(ctx context.Context, key string, current *Identity) bool {
	if key == "" {
		return false
	}

	b.mu.Lock()
	now := b.now()
	entry, seen := b.last[key]
	prev := entry.identity
	switch {
	case current == nil && !seen:
		b.mu.Unlock()
		return false
	case current != nil && seen && prev.ID == current.ID:
		b.last[key] = lastSeen{identity: *current, seen: now}
		b.mu.Unlock()
		return false
	}

	change := Change{Key: key}
	if seen {
		p := prev
		change.Previous = &p
	}
	if current == nil {
		delete(b.last, key)
	} else {
		b.last[key] = lastSeen{identity: *current, seen: now}
		c := *current
		change.Current = &c
	}
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, change)
	}
	return true
}

// Last returns the identity recorded for key.
func (b *Bus) Last(key string) (Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.last[key]
	return entry.identity, ok
}

// Forget drops key without notifying.
func (b *Bus) Forget(key string) {
	b.mu.Lock()
	delete(b.last, key)
	b.mu.Unlock()
}

// Sweep forgets contexts that have not published for longer than ttl and
// returns how many were dropped. A forgotten context that comes back is
// reported as a new sign-in.
func (b *Bus) Sweep(ttl time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-ttl)
	removed := 0
	for key, entry := range b.last {
		if entry.seen.Before(cutoff) {
			delete(b.last, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (b *Bus) Run(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.Sweep(ttl); n > 0 {
				applog.Debug(ctx, "forgot idle identity contexts", "count", n)
			}
		}
	}
}
