// Package seqcasttest provides observer fixtures
// for tests involving a seqcast.Source.
package seqcasttest

import "sync"

// ChannelObserver forwards its callbacks into channels,
// so tests can synchronize on deliveries instead of sleeping.
//
// Both channels are buffered with the capacity given to
// [NewChannelObserver]; if a test lets a buffer fill up,
// the source's main loop blocks on the next delivery.
type ChannelObserver[T any] struct {
	Nexts     chan T
	Completes chan struct{}
}

// NewChannelObserver returns a ChannelObserver
// whose channels are buffered to size buf.
func NewChannelObserver[T any](buf int) *ChannelObserver[T] {
	return &ChannelObserver[T]{
		Nexts:     make(chan T, buf),
		Completes: make(chan struct{}, buf),
	}
}

func (o *ChannelObserver[T]) Next(v T) {
	o.Nexts <- v
}

func (o *ChannelObserver[T]) Complete() {
	o.Completes <- struct{}{}
}

// RecordingObserver records every delivery under a mutex,
// for tests that only inspect state after the fact.
type RecordingObserver[T any] struct {
	mu        sync.Mutex
	values    []T
	completes int
}

func (o *RecordingObserver[T]) Next(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = append(o.values, v)
}

func (o *RecordingObserver[T]) Complete() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completes++
}

// Values returns a copy of the values delivered so far.
func (o *RecordingObserver[T]) Values() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]T, len(o.values))
	copy(out, o.values)
	return out
}

// Completions returns how many times Complete has been called.
func (o *RecordingObserver[T]) Completions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completes
}
