// Package lifecycle tracks images from discovery to disposal.
//
// Each image moves through the states defined in package overlay:
//
//	Unmanaged -> Priming -> Pending -> Rendered
//	any state -> Disposed
//
// A [Controller] issues at most one fetch per image. Fetches run on their own
// goroutines and report back through a [Poster], normally an eventloop.Loop.
// Every fetch carries a token and a cancellable context; a completion whose
// token no longer matches its record, or whose record is gone, is dropped.
//
// A failed fetch returns the image to Unmanaged so that a later [Controller.Retrigger]
// can try again. A rendered image is never fetched again until it is disposed.
package lifecycle
