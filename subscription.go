package seqcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Subscription is the handle returned by [*Source.Subscribe].
type Subscription[T any] struct {
	src *Source[T]
	obs Observer[T]

	// Indices delivered to this subscription.
	// Only mutated from the source's main loop.
	seen *bitset.BitSet

	cancelOnce sync.Once
	canceled   chan struct{}
}

// Unsubscribe removes this registration from the source.
// The observer receives no further callbacks.
// If this was the last active registration,
// the pending emission step is canceled and run state discarded.
//
// Unsubscribe is idempotent, and safe to call both from
// other goroutines and from inside this or another
// observer's callback.
func (s *Subscription[T]) Unsubscribe() {
	s.cancelOnce.Do(func() {
		close(s.canceled)

		// Non-blocking: a pending nudge already covers us,
		// and the main loop also prunes before every delivery.
		select {
		case s.src.unsubscribeNudges <- struct{}{}:
		default:
		}
	})
}

func (s *Subscription[T]) isCanceled() bool {
	select {
	case <-s.canceled:
		return true
	default:
		return false
	}
}

// Received returns the set of sequence indices
// that have been delivered to this subscription so far.
// A late joiner can use the clear prefix bits
// to see exactly which values it missed.
//
// The snapshot remains valid after unsubscribing.
func (s *Subscription[T]) Received(ctx context.Context) (*bitset.BitSet, error) {
	req := receivedRequest[T]{
		Sub:  s,
		Resp: make(chan *bitset.BitSet, 1),
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while making received request: %w",
			context.Cause(ctx),
		)
	case <-s.src.mainLoopDone:
		return nil, ErrSourceStopped
	case s.src.receivedRequests <- req:
		// Okay.
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while waiting for received response: %w",
			context.Cause(ctx),
		)
	case bs := <-req.Resp:
		return bs, nil
	}
}
