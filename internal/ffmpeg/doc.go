// Package ffmpeg is the codec backend: it drives an ffmpeg subprocess as
// a black-box decoder or encoder and lists the codecs the local build
// provides.
//
// Compressed input reaches ffmpeg on stdin, re-muxed into Matroska when the
// codec has a Matroska mapping and as an elementary stream otherwise. The
// framecrc muxer on stdout reports one line per output frame, which drives
// the timing recorder. When capture is requested the tee muxer also writes
// the decoded or encoded stream to fd 3.
//
// Files:
//   - builder.go: argument construction for decode and encode runs
//   - feed.go: stdin feeds (Matroska via ebml-go, elementary streams)
//   - framecrc.go: output line and header parsing
//   - executor.go: process lifecycle, sync and async scheduling
//   - errors.go: stderr classification into codec status codes
//   - decoder.go, encoder.go: codec.Decoder and codec.Encoder
//   - registry.go: codec discovery per mime type
package ffmpeg
