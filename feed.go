package walletd

import "sync"

// Feed is a latest-value broadcast: every subscriber immediately receives
// the most recently published value, then every later one. Subscribers
// never interfere with one another.
type Feed[T any] struct {
	mu   sync.Mutex
	last T
	set  bool
	subs map[chan T]struct{}
}

func NewFeed[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[chan T]struct{})}
}

// Publish stores v as the latest value and delivers it to every subscriber.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = v
	f.set = true

	for ch := range f.subs {
		send(ch, v)
	}
}

// Last returns the most recently published value, if any.
func (f *Feed[T]) Last() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.last, f.set
}

// Subscribe returns a channel primed with the latest value and a cancel
// func. Cancelling has no effect on other subscribers.
func (f *Feed[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 16)

	f.mu.Lock()
	if f.set {
		ch <- f.last
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}

	return ch, cancel
}

// send never blocks the publisher; a full subscriber loses its oldest
// pending value so the latest always lands.
func send[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}
