package seqcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/seqcast/seqcast/sqpubsub"
)

// ErrSourceStopped is returned from blocking methods on [Source]
// after the source's context has been canceled.
var ErrSourceStopped = errors.New("source stopped")

// Config is the configuration passed to [New].
type Config[T any] struct {
	// The ordered sequence of values to emit.
	// The source will own this slice,
	// so the caller must not retain any references to it.
	Values []T

	// Delay between consecutive emission steps,
	// and before the first one.
	// Must be positive.
	Interval time.Duration
}

// Source is a hot multicast source over a timed value sequence.
//
// All registered observers share a single timer-driven run:
// each emitted value reaches every currently registered observer
// in registration order, within the same loop turn.
// The run starts lazily on the first subscription into an empty registry,
// and its timer is canceled when the last subscriber leaves.
// Once the registry has emptied, a later subscription
// starts an entirely new run from the beginning of the sequence.
//
// The registry and the emission cursor are owned by
// a single main loop goroutine, so no locks are involved;
// subscribe and watch are request-response exchanges with that loop.
type Source[T any] struct {
	log *slog.Logger

	values   []T
	interval time.Duration

	subscribeRequests chan subscribeRequest[T]
	watchRequests     chan watchRequest[T]
	receivedRequests  chan receivedRequest[T]

	// Nudged by [*Subscription.Unsubscribe].
	// One-buffered: the main loop prunes every canceled registration
	// on a single nudge, so coalescing concurrent nudges is fine.
	unsubscribeNudges chan struct{}

	mainLoopDone chan struct{}
}

// subscribeRequest carries a prepared registration to the main loop.
// The response channel is buffered;
// the loop sends on it once the registration is in the registry.
type subscribeRequest[T any] struct {
	Sub  *Subscription[T]
	Resp chan struct{}
}

// watchRequest asks the main loop for the current tail
// of the hot event stream.
type watchRequest[T any] struct {
	Resp chan *sqpubsub.Stream[T]
}

// receivedRequest asks the main loop for a snapshot
// of the indices delivered to one subscription.
type receivedRequest[T any] struct {
	Sub  *Subscription[T]
	Resp chan *bitset.BitSet
}

// New returns a Source emitting cfg.Values one at a time,
// cfg.Interval apart, to all subscribed observers.
//
// The source runs until ctx is canceled.
// Use [*Source.Wait] to block until its main loop has returned.
func New[T any](
	ctx context.Context,
	log *slog.Logger,
	cfg Config[T],
) *Source[T] {
	if cfg.Interval <= 0 {
		panic(fmt.Errorf(
			"BUG: interval must be positive (got %s)", cfg.Interval,
		))
	}

	if len(cfg.Values) == 0 {
		// Allowed, but every run will complete on its first tick
		// without emitting anything.
		log.Warn("Source has an empty value sequence; runs will only ever complete")
	}

	s := &Source[T]{
		log: log,

		values:   cfg.Values,
		interval: cfg.Interval,

		// Unbuffered since callers block on the response anyway.
		subscribeRequests: make(chan subscribeRequest[T]),
		watchRequests:     make(chan watchRequest[T]),
		receivedRequests:  make(chan receivedRequest[T]),

		unsubscribeNudges: make(chan struct{}, 1),

		mainLoopDone: make(chan struct{}),
	}

	go s.mainLoop(ctx)

	return s
}

// runState is the main loop's private view of the current run.
// It is only ever touched from the main loop goroutine.
type runState[T any] struct {
	// Insertion-ordered active registrations.
	Regs []*Subscription[T]

	// Index of the next emission step.
	Idx int

	Timer *time.Timer

	// Nil whenever no emission step is pending,
	// i.e. the registry is empty or the run has completed.
	TimerCh <-chan time.Time

	// Tail of the hot event stream served by [*Source.Watch].
	// Replaced with a fresh stream whenever a run ends.
	Events *sqpubsub.Stream[T]
}

func (s *Source[T]) mainLoop(ctx context.Context) {
	defer close(s.mainLoopDone)

	st := runState[T]{
		Events: sqpubsub.NewStream[T](),
	}

	defer func() {
		if st.TimerCh != nil {
			st.Timer.Stop()
		}
		// Unblock any watchers still waiting on the tail.
		st.Events.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info(
				"Stopping due to context cancellation",
				"cause", context.Cause(ctx),
			)
			return

		case req := <-s.subscribeRequests:
			s.handleSubscribe(&st, req)

		case req := <-s.watchRequests:
			// Response channel is buffered.
			req.Resp <- st.Events

		case req := <-s.receivedRequests:
			// Response channel is buffered.
			req.Resp <- req.Sub.seen.Clone()

		case <-s.unsubscribeNudges:
			st.Regs = pruneCanceled(st.Regs)
			if len(st.Regs) == 0 && st.TimerCh != nil {
				s.discardRun(&st)
			}

		case <-st.TimerCh:
			s.handleTick(&st)
		}
	}
}

// handleSubscribe appends the registration,
// starting a fresh run if the registry was empty.
func (s *Source[T]) handleSubscribe(st *runState[T], req subscribeRequest[T]) {
	// Prune first so that a raced unsubscribe of the final
	// prior registration still counts the registry as empty.
	st.Regs = pruneCanceled(st.Regs)

	if len(st.Regs) == 0 && st.TimerCh != nil {
		// This subscribe request won the select over the
		// last unsubscriber's pending nudge.
		// The old run must still be discarded here,
		// otherwise its watch taps would never terminate
		// and would observe the new run's values.
		s.discardRun(st)
	}

	wasEmpty := len(st.Regs) == 0
	st.Regs = append(st.Regs, req.Sub)

	if wasEmpty {
		st.Idx = 0
		if st.Timer == nil {
			st.Timer = time.NewTimer(s.interval)
		} else {
			st.Timer.Reset(s.interval)
		}
		st.TimerCh = st.Timer.C
	}

	// Response channel is buffered.
	req.Resp <- struct{}{}
}

// handleTick performs one emission step:
// fan out the current value, then either arm the next step
// or complete the run.
func (s *Source[T]) handleTick(st *runState[T]) {
	st.TimerCh = nil

	st.Regs = pruneCanceled(st.Regs)
	if len(st.Regs) == 0 {
		// The last subscriber left between arming and firing.
		s.discardRun(st)
		return
	}

	if st.Idx < len(s.values) {
		v := s.values[st.Idx]
		for _, r := range st.Regs {
			if r.isCanceled() {
				// Unsubscribed from inside an earlier
				// observer's callback in this same step.
				continue
			}
			r.obs.Next(v)
			r.seen.Set(uint(st.Idx))
		}

		st.Events.Publish(v)
		st.Events = st.Events.Next
	}

	if st.Idx >= len(s.values)-1 {
		s.completeRun(st)
		return
	}

	st.Idx++
	st.Timer.Reset(s.interval)
	st.TimerCh = st.Timer.C
}

// completeRun notifies completion and retires the run.
// Registrations stay in the registry until explicitly unsubscribed,
// but with no timer pending they receive nothing further.
func (s *Source[T]) completeRun(st *runState[T]) {
	// Snapshot so that an unsubscribe from inside a callback
	// cannot shift later registrations out of this fan-out.
	for _, r := range slices.Clone(st.Regs) {
		if r.isCanceled() {
			continue
		}
		r.obs.Complete()
	}

	st.Events.Close()
	st.Events = sqpubsub.NewStream[T]()

	s.log.Debug("Run completed", "len", len(s.values))
}

// discardRun cancels the pending step and resets the event stream,
// leaving the source idle until the next subscription.
func (s *Source[T]) discardRun(st *runState[T]) {
	if st.TimerCh != nil {
		st.Timer.Stop()
		st.TimerCh = nil
	}

	st.Events.Close()
	st.Events = sqpubsub.NewStream[T]()

	s.log.Debug("Run discarded with no subscribers left", "idx", st.Idx)
}

func pruneCanceled[T any](regs []*Subscription[T]) []*Subscription[T] {
	return slices.DeleteFunc(regs, func(r *Subscription[T]) bool {
		return r.isCanceled()
	})
}

// Subscribe registers obs with the source.
// If the registry was empty, a new run of the sequence begins,
// with the first value due one interval from now.
// Otherwise obs joins the in-progress cursor
// and never observes values already emitted.
//
// Observer callbacks are invoked from the source's main loop,
// so a blocking observer delays emission for every subscriber.
func (s *Source[T]) Subscribe(
	ctx context.Context, obs Observer[T],
) (*Subscription[T], error) {
	if obs == nil {
		panic(errors.New("BUG: Subscribe called with nil observer"))
	}

	sub := &Subscription[T]{
		src: s,
		obs: obs,

		seen: bitset.New(uint(len(s.values))),

		canceled: make(chan struct{}),
	}

	req := subscribeRequest[T]{
		Sub:  sub,
		Resp: make(chan struct{}, 1),
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while making subscribe request: %w",
			context.Cause(ctx),
		)
	case <-s.mainLoopDone:
		return nil, ErrSourceStopped
	case s.subscribeRequests <- req:
		// Okay.
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while waiting for subscribe response: %w",
			context.Cause(ctx),
		)
	case <-req.Resp:
		return sub, nil
	}
}

// Watch returns the current tail of the source's event stream.
// The stream carries every value of the active run from this moment on
// (never history), and is closed when the run completes
// or is discarded, or when the source stops.
//
// While the source is idle, the returned tail belongs to
// whichever run starts next.
func (s *Source[T]) Watch(ctx context.Context) (*sqpubsub.Stream[T], error) {
	req := watchRequest[T]{
		Resp: make(chan *sqpubsub.Stream[T], 1),
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while making watch request: %w",
			context.Cause(ctx),
		)
	case <-s.mainLoopDone:
		return nil, ErrSourceStopped
	case s.watchRequests <- req:
		// Okay.
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf(
			"context canceled while waiting for watch response: %w",
			context.Cause(ctx),
		)
	case st := <-req.Resp:
		return st, nil
	}
}

// Wait blocks until the source's main loop has returned,
// which happens when the context given to [New] is canceled.
func (s *Source[T]) Wait() {
	<-s.mainLoopDone
}
