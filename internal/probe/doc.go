// Package probe wraps ffprobe: one JSON call per asset yields typed stream
// and format information, and an optional packet table locates every
// compressed sample in the file.
//
// The packet table backs the extractor for containers that have no
// dedicated demuxer (MP3 elementary streams, raw AMR, and the like).
package probe
