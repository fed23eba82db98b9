package repository

import (
	"context"
	"sync"
)

// broadcaster fans the latest snapshot out to any number of subscribers.
// Each subscriber channel buffers exactly one value; publish replaces a
// stale unread value instead of blocking, so a slow reader always observes
// the newest state and never stalls a mutation.
type broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

func newBroadcaster[T any]() *broadcaster[T] {
	return &broadcaster[T]{subs: make(map[int]chan T)}
}

// subscribe registers a channel that receives snapshots until ctx is done.
func (b *broadcaster[T]) subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	return ch
}

// publish delivers v to every subscriber, dropping any unread stale value.
// It returns once every subscriber channel holds the new snapshot, which is
// what makes mutations strictly consistent with the watch streams.
func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
