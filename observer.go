package seqcast

// Observer is the capability notified by a [Source].
//
// Both callbacks run on the source's main loop:
// they must not block for long,
// and calling a blocking [Source] method from inside one
// (other than [*Subscription.Unsubscribe]) will deadlock.
type Observer[T any] interface {
	// Next is called once per emission step,
	// with the value at the shared cursor.
	Next(v T)

	// Complete is called exactly once,
	// after the final value of the sequence,
	// for every registration still active at that step.
	Complete()
}

// ObserverFuncs adapts a pair of functions into an [Observer].
// Either field may be nil, in which case that callback is ignored.
type ObserverFuncs[T any] struct {
	OnNext     func(v T)
	OnComplete func()
}

func (o ObserverFuncs[T]) Next(v T) {
	if o.OnNext != nil {
		o.OnNext(v)
	}
}

func (o ObserverFuncs[T]) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}
