package progress

import "sync"

// Broadcaster publishes completion percentages for one pipeline run. Each run
// owns its own instance, so listeners never see another run's progress.
// Delivery is fire-and-forget: a run never blocks on, or gets canceled by,
// its listeners.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]func(percent int)
	nextID int
	last   int
}

// NewBroadcaster creates a new per-run progress broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(int))}
}

// Subscribe registers a listener callback and returns its id. Safe to call
// while an emission is in progress; the listener receives events starting
// with the next emission.
func (b *Broadcaster) Subscribe(fn func(percent int)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return id
}

// Unsubscribe removes a listener. Unknown ids are ignored, so a disconnected
// client can deregister at any point without affecting the run.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// SubscribeChan registers a buffered channel listener and returns the channel
// with its cancel func. Events a full channel cannot take are dropped rather
// than blocking the run.
func (b *Broadcaster) SubscribeChan(buffer int) (<-chan int, func()) {
	ch := make(chan int, buffer)
	id := b.Subscribe(func(percent int) {
		select {
		case ch <- percent:
		default:
		}
	})
	return ch, func() { b.Unsubscribe(id) }
}

// ChunkDone reports completion of chunk i of n. The emitted percent is capped
// at 99 so the terminal 100 is reserved for Finish.
func (b *Broadcaster) ChunkDone(i, n int) {
	if n <= 0 {
		return
	}
	percent := int(100 * (float64(i) + 0.5) / float64(n))
	if percent > 99 {
		percent = 99
	}
	b.publish(percent)
}

// Finish emits the terminal 100.
func (b *Broadcaster) Finish() {
	b.publish(100)
}

// publish delivers percent to every listener registered at emission time.
// Values are clamped so a listener never observes progress moving backwards.
func (b *Broadcaster) publish(percent int) {
	b.mu.Lock()
	if percent < b.last {
		percent = b.last
	}
	b.last = percent
	// snapshot so listeners can subscribe/unsubscribe from their callback
	listeners := make([]func(int), 0, len(b.subs))
	for _, fn := range b.subs {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(percent)
	}
}

// Last returns the most recently emitted percent.
func (b *Broadcaster) Last() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
