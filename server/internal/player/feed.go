package player

import "sync"

const feedBuffer = 100

// Notification is one presentation event addressed to a player.
type Notification struct {
	Type    string         `json:"type"`
	MatchID string         `json:"match_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Feed fans notifications out to every current subscriber. A subscriber that
// falls behind by more than the buffer loses notifications rather than
// stalling the publisher.
type Feed struct {
	mu     sync.Mutex
	buffer int
	subs   map[int]chan Notification
	next   int
	closed bool
}

func NewFeed(buffer int) *Feed {
	return &Feed{
		buffer: buffer,
		subs:   make(map[int]chan Notification),
	}
}

// Subscribe returns a channel of notifications and a function that ends the
// subscription. The channel is closed when either is called or the feed
// closes.
func (f *Feed) Subscribe() (<-chan Notification, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Notification, f.buffer)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.next
	f.next++
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}
}

func (f *Feed) Publish(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
