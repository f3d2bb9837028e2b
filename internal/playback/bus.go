package playback

import (
	"sync"
	"time"

	"github.com/ivlev/prompt2path/internal/video"
)

// Update is published on status changes and, throttled, while playing.
type Update struct {
	Status   Status
	Progress float64
	Command  int
	At       time.Time
	// Recording is set once when a recording finishes.
	Recording *video.Blob
}

// Bus fans updates out to subscribers. Publishing never blocks; a subscriber that
// does not keep up misses updates.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Update
	nextID int
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Update)}
}

// Subscribe returns a channel of updates and a function that cancels the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Bus) Publish(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
