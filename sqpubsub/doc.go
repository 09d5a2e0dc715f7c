// Package sqpubsub contains the in-application
// publish-subscribe stream backing the seqcast.Source event tap.
//
// The [Stream] type simplifies the pattern of a single publisher
// with many concurrent subscribers who all need to observe
// the same sequence of values.
// Unlike the source's observer registry, a stream is pull-based:
// each reader walks the linked list at its own pace.
package sqpubsub
