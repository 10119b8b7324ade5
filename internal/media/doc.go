// Package media defines the values passed between the extractor, the codec
// backends and the harness: Frame units, track Format metadata, the
// sync/async Mode flag, and the mime types the harness knows about.
package media
