// Package seqcast provides a hot multicast source
// over a timed sequence of values.
//
// A [Source] drives one shared, timer-paced run of a fixed value sequence,
// fanning each value out live to every registered [Observer].
// Late subscribers attach to the in-progress cursor
// rather than replaying history,
// and the driving timer stops as soon as the last subscriber leaves.
package seqcast
