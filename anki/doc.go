// Package anki exports page snapshots to Anki through the AnkiConnect
// add-on.
//
// [Client.ExportImage] encodes an image as PNG, stores it in the media
// folder and points the image field of the newest note added today at it:
//
//	c := anki.NewClient("http://127.0.0.1:8765", anki.WithImageField("Picture"))
//	name, err := c.ExportImage(ctx, img)
//
// Every request is bounded by a timeout (default 15s). Errors reported by
// AnkiConnect are returned as Go errors.
package anki
