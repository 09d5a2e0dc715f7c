package sqpubsub

// Stream is a linked list of event-driven values.
// The list has a single writer and many readers.
// Readers can each consume the list at their own pace.
//
// A reader holds the current node and waits on Ready.
// Once Ready is closed, a nil Next marks the end of the stream;
// otherwise Val holds the published value
// and the reader advances to Next.
//
// If readers do not actively consume the list,
// the node they observe will never be garbage collected,
// which is a memory leak.
type Stream[T any] struct {
	Ready chan struct{}
	Next  *Stream[T]
	Val   T
}

// NewStream returns an initialized pubsub stream.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		Ready: make(chan struct{}),
	}
}

// Publish assigns s's value and initializes s.Next.
// Then s.Ready is closed, notifying any readers that
// s.Val can now be safely read.
//
// If Publish is called on a node that was already
// published or closed, Publish panics.
func (s *Stream[T]) Publish(t T) {
	s.Val = t
	s.Next = NewStream[T]()
	close(s.Ready)
}

// Close marks s as the end of the stream,
// waking any readers waiting on s.Ready.
// Readers distinguish a closed node from a published one
// by its nil Next field.
//
// If Close is called on a node that was already
// published or closed, Close panics.
func (s *Stream[T]) Close() {
	close(s.Ready)
}
