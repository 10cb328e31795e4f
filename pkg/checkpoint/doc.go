// Package checkpoint provides the durable write primitives every store in
// clipharvest builds on.
//
// All writes go to a temporary file in the destination directory, are
// fsynced, and then atomically renamed over the target, so a crash leaves
// either the previous version or the new one on disk, never a torn file.
//
// On top of that it offers List, an insertion-ordered set of strings
// persisted as a pretty-printed JSON array. The hashtag registry and the
// invalid-url ledger are both Lists.
package checkpoint
