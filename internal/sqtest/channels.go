package sqtest

import (
	"testing"
	"time"
)

// How long the Soon helpers wait before failing the test.
// Far beyond any delay a healthy test should observe,
// but short enough to not stall a broken run.
const soonTimeout = time.Second

// ReceiveSoon returns a value received from ch,
// or fails t if nothing arrives within a generous timeout.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(soonTimeout):
		t.Fatalf("nothing received on channel within %s", soonTimeout)
		panic("unreachable")
	}
}

// SendSoon sends v on ch,
// or fails t if the send does not complete within a generous timeout.
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	select {
	case ch <- v:
		// Okay.
	case <-time.After(soonTimeout):
		t.Fatalf("channel did not accept send within %s", soonTimeout)
	}
}

// IsSending asserts that ch has a value immediately available,
// returning that value.
// Useful for channels that are closed or already populated.
func IsSending[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	default:
		t.Fatal("expected channel to be sending, but it was not")
		panic("unreachable")
	}
}

// NotSending asserts that no value is immediately available on ch.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	select {
	case v := <-ch:
		t.Fatalf("expected channel to not be sending, but received %v", v)
	default:
		// Okay.
	}
}
